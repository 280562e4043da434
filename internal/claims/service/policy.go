package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/events"
	"claimdesk_backend/internal/metrics"

	"github.com/google/uuid"
)

// RefinementRequest is a deferred policy rewrite, replayed by the scheduler.
type RefinementRequest struct {
	CompanyID    uuid.UUID
	IssueContext string
	Correction   string
}

// Refine rewrites the company policy from a reviewer correction and returns
// the policy now in effect. Failures leave the stored policy untouched and
// return current. A language service outage additionally publishes
// PolicyRefinementDeferred so the rewrite can be retried in the background.
func (s *Service) Refine(ctx context.Context, companyID uuid.UUID, issueContext, correction, current string) string {
	log := s.log.WithContext(ctx)

	proposed, err := s.proposePolicy(ctx, issueContext, correction, current)
	if err != nil {
		if errors.Is(err, agent.ErrEmptyCompletion) {
			metrics.PolicyRefinements.WithLabelValues("empty").Inc()
			log.Warn("policy refinement produced no text, keeping current policy", "company_id", companyID.String())
			return current
		}
		metrics.PolicyRefinements.WithLabelValues("deferred").Inc()
		metrics.GatewayFailures.WithLabelValues("policy_refinement").Inc()
		log.GatewayError("policy_refinement", err)
		s.bus.Publish(ctx, events.PolicyRefinementDeferred{
			BaseEvent:    events.NewBaseEvent(),
			CompanyID:    companyID,
			IssueContext: issueContext,
			Correction:   correction,
		})
		return current
	}

	if err := s.storePolicy(ctx, companyID, proposed); err != nil {
		metrics.PolicyRefinements.WithLabelValues("store_failed").Inc()
		log.DatabaseError("update_company_policy", err)
		return current
	}
	metrics.PolicyRefinements.WithLabelValues("refined").Inc()
	return proposed
}

// RefinePolicy is the strict form of Refine used by background retries: it
// reports every failure so the caller can retry.
func (s *Service) RefinePolicy(ctx context.Context, req RefinementRequest) (string, error) {
	company, err := s.store.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return "", fmt.Errorf("load company: %w", err)
	}
	current := company.PolicyOrDefault()

	proposed, err := s.proposePolicy(ctx, req.IssueContext, req.Correction, current)
	if err != nil {
		metrics.PolicyRefinements.WithLabelValues("retry_failed").Inc()
		return "", err
	}
	if err := s.storePolicy(ctx, req.CompanyID, proposed); err != nil {
		metrics.PolicyRefinements.WithLabelValues("retry_failed").Inc()
		return "", err
	}
	metrics.PolicyRefinements.WithLabelValues("refined").Inc()
	return proposed, nil
}

func (s *Service) proposePolicy(ctx context.Context, issueContext, correction, current string) (string, error) {
	prompt, err := s.prompts.Refinement(agent.RefinementInput{
		CurrentPolicy: current,
		IssueContext:  issueContext,
		Feedback:      correction,
	})
	if err != nil {
		return "", fmt.Errorf("render refinement prompt: %w", err)
	}

	text, err := s.gateway.Complete(ctx, agent.CompletionRequest{UserText: prompt})
	if err != nil {
		return "", fmt.Errorf("refine policy: %w", err)
	}
	proposed := strings.TrimSpace(agent.StripDecisions(text))
	if proposed == "" {
		return "", fmt.Errorf("refine policy: %w", agent.ErrEmptyCompletion)
	}
	return proposed, nil
}

func (s *Service) storePolicy(ctx context.Context, companyID uuid.UUID, policy string) error {
	if err := s.store.UpdateCompanyPolicy(ctx, companyID, policy); err != nil {
		return fmt.Errorf("store refined policy: %w", err)
	}
	s.bus.Publish(ctx, events.PolicyRefined{
		BaseEvent: events.NewBaseEvent(),
		CompanyID: companyID,
		Policy:    policy,
	})
	return nil
}

// currentPolicy reads the stored company policy, falling back to the default
// when the company cannot be loaded.
func (s *Service) currentPolicy(ctx context.Context, companyID uuid.UUID) string {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("load_company_policy", err)
		return domain.DefaultPolicy
	}
	return company.PolicyOrDefault()
}

// Policy returns the policy text currently in effect for a company.
func (s *Service) Policy(ctx context.Context, companyID uuid.UUID) (string, error) {
	company, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return "", err
	}
	return company.PolicyOrDefault(), nil
}

package service

import (
	"context"
	"fmt"
	"strings"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/events"
	"claimdesk_backend/internal/metrics"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRefundReason     = "Approved by AI"
	defaultEscalationReason = "User Request"
)

// applyAction persists the outcome of an assistant decision. Every failure is
// logged and skipped; the customer reply has already been produced.
func (s *Service) applyAction(ctx context.Context, in ConverseInput, action domain.Action, transcript string) {
	if action.Kind == domain.ActionReject {
		return
	}
	log := s.log.WithContext(ctx)

	ref := strings.TrimSpace(action.TransactionRef)
	if ref == "" {
		log.Info("decision without transaction reference ignored", "action", string(action.Kind))
		return
	}

	tx, err := s.resolver.LookupReference(ctx, ref, in.CompanyID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			log.Info("decision references unknown transaction", "action", string(action.Kind), "reference", ref)
			return
		}
		log.DatabaseError("lookup_decision_reference", err)
		return
	}

	existing, err := s.resolver.ActiveClaim(ctx, tx.ID)
	if err != nil {
		log.DatabaseError("recheck_active_claim", err)
		return
	}
	if existing != nil {
		log.Info("transaction already has an active claim",
			"transaction_id", tx.ID.String(), "kind", string(existing.Kind), "status", string(existing.Status))
		return
	}

	switch action.Kind {
	case domain.ActionRefund:
		s.recordRefund(ctx, tx, in, action, transcript)
	case domain.ActionEscalate:
		s.recordEscalation(ctx, tx, in, action, transcript)
	}
}

// recordRefund queues the payout and stores the approved refund as the
// carrier of the conversation context. The writes are independent.
func (s *Service) recordRefund(ctx context.Context, tx *domain.Transaction, in ConverseInput, action domain.Action, transcript string) {
	s.insertClaim(ctx, domain.ClaimRecord{
		Kind:          domain.KindPayout,
		TransactionID: tx.ID,
		CompanyID:     tx.CompanyID,
		Status:        domain.StatusReadyForPayout,
		AmountCents:   tx.AmountCents,
	})

	reason := action.Reason
	if reason == "" {
		reason = defaultRefundReason
	}
	s.insertClaim(ctx, domain.ClaimRecord{
		Kind:          domain.KindRefund,
		TransactionID: tx.ID,
		CompanyID:     tx.CompanyID,
		Status:        domain.StatusApproved,
		Reasoning:     reason,
		EvidenceRef:   in.EvidenceRef,
		Transcript:    &transcript,
	})
}

// recordEscalation stores the context on an ESCALATED refund record and opens
// the escalation for staff.
func (s *Service) recordEscalation(ctx context.Context, tx *domain.Transaction, in ConverseInput, action domain.Action, transcript string) {
	reason := action.Reason
	if reason == "" {
		reason = defaultEscalationReason
	}

	s.insertClaim(ctx, domain.ClaimRecord{
		Kind:          domain.KindRefund,
		TransactionID: tx.ID,
		CompanyID:     tx.CompanyID,
		Status:        domain.StatusEscalated,
		Reasoning:     reason,
		EvidenceRef:   in.EvidenceRef,
		Transcript:    &transcript,
	})

	esc, ok := s.insertClaim(ctx, domain.ClaimRecord{
		Kind:          domain.KindEscalation,
		TransactionID: tx.ID,
		CompanyID:     tx.CompanyID,
		Status:        domain.StatusOpen,
		Reasoning:     reason,
		CustomerID:    in.CustomerID,
	})
	if !ok {
		return
	}

	customerID := ""
	if in.CustomerID != nil {
		customerID = *in.CustomerID
	}
	s.bus.Publish(ctx, events.EscalationOpened{
		BaseEvent:     events.NewBaseEvent(),
		EscalationID:  esc.ID,
		TransactionID: tx.ID,
		CompanyID:     tx.CompanyID,
		CustomerID:    customerID,
		Reason:        reason,
	})
}

func (s *Service) insertClaim(ctx context.Context, rec domain.ClaimRecord) (domain.ClaimRecord, bool) {
	saved, err := s.store.InsertClaim(ctx, rec)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("insert_"+string(rec.Kind)+"_claim", err)
		return domain.ClaimRecord{}, false
	}

	metrics.ClaimsCreated.WithLabelValues(string(saved.Kind)).Inc()
	s.bus.Publish(ctx, events.ClaimCreated{
		BaseEvent:     events.NewBaseEvent(),
		ClaimID:       saved.ID,
		Kind:          string(saved.Kind),
		Status:        string(saved.Status),
		TransactionID: saved.TransactionID,
		CompanyID:     saved.CompanyID,
		AmountCents:   saved.AmountCents,
	})
	return saved, true
}

// DecisionInput is a reviewer verdict on one claim record.
type DecisionInput struct {
	CompanyID  uuid.UUID
	Kind       domain.Kind
	ClaimID    uuid.UUID
	Decision   string
	Correction string
	ReviewedBy string
}

// DecisionResult reports the stored status and, when the verdict rewrote the
// company policy, the new policy text.
type DecisionResult struct {
	Status    domain.Status
	NewPolicy *string
}

// Decide applies a reviewer verdict. The record must still await review. The
// conversation context linked to the claim is cleared in the same step. A
// declined refund or payout with a correction feeds the policy loop.
func (s *Service) Decide(ctx context.Context, in DecisionInput) (DecisionResult, error) {
	status, err := domain.ResolveDecision(in.Kind, in.Decision)
	if err != nil {
		return DecisionResult{}, apperr.Validation(err.Error()).
			WithOp("decide").
			WithDetails(map[string][]string{"allowed": domain.Decisions(in.Kind)})
	}

	// Read the context before finalizing clears it.
	view, err := s.store.GetClaim(ctx, in.Kind, in.ClaimID, in.CompanyID)
	if err != nil {
		return DecisionResult{}, err
	}
	if !domain.IsActive(in.Kind, view.Record.Status) {
		return DecisionResult{}, apperr.Conflict(fmt.Sprintf("%s claim is already %s", in.Kind, view.Record.Status))
	}

	transactionID, err := s.store.FinalizeClaim(ctx, in.Kind, in.ClaimID, in.CompanyID, status)
	if err != nil {
		return DecisionResult{}, err
	}

	metrics.ClaimsFinalized.WithLabelValues(string(in.Kind), string(status)).Inc()
	s.bus.Publish(ctx, events.ClaimFinalized{
		BaseEvent:     events.NewBaseEvent(),
		ClaimID:       in.ClaimID,
		Kind:          string(in.Kind),
		Status:        string(status),
		TransactionID: transactionID,
		CompanyID:     in.CompanyID,
		ReviewedBy:    in.ReviewedBy,
	})

	result := DecisionResult{Status: status}

	correction := sanitize.Text(in.Correction)
	if !domain.IsDeclined(in.Decision) || correction == "" || !domain.FeedsPolicy(in.Kind) {
		return result, nil
	}

	current := s.currentPolicy(ctx, in.CompanyID)
	if refined := s.Refine(ctx, in.CompanyID, view.IssueContext(), correction, current); refined != current {
		result.NewPolicy = &refined
	}
	return result, nil
}

// PendingClaims is the reviewer work queue of a company.
type PendingClaims struct {
	Refunds     []domain.ClaimView
	Escalations []domain.ClaimView
	Payouts     []domain.ClaimView
}

// ListPending loads every claim awaiting review, each enriched with the
// context of its linked refund record.
func (s *Service) ListPending(ctx context.Context, companyID uuid.UUID) (PendingClaims, error) {
	var out PendingClaims

	g, gctx := errgroup.WithContext(ctx)
	targets := map[domain.Kind]*[]domain.ClaimView{
		domain.KindRefund:     &out.Refunds,
		domain.KindEscalation: &out.Escalations,
		domain.KindPayout:     &out.Payouts,
	}
	for kind, dst := range targets {
		g.Go(func() error {
			views, err := s.store.ListPending(gctx, companyID, kind)
			if err != nil {
				return fmt.Errorf("list pending %s claims: %w", kind, err)
			}
			*dst = views
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return PendingClaims{}, err
	}
	return out, nil
}

// GetClaim returns one claim with its conversation context.
func (s *Service) GetClaim(ctx context.Context, companyID uuid.UUID, kind domain.Kind, id uuid.UUID) (domain.ClaimView, error) {
	return s.store.GetClaim(ctx, kind, id, companyID)
}

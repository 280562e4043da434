package service

import (
	"context"
	"strings"
	"time"

	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/metrics"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultMaxMessageRunes = 4000
	transcriptHistoryTurns = 3
)

// ConverseInput is one customer turn. ImageAnalysis and EvidenceRef come
// from an earlier AnalyzeEvidence call on the same conversation.
type ConverseInput struct {
	Message string
	History []agent.Turn
	// Policy replaces the stored company policy for this turn. The HTTP
	// layer never sets it; it serves in-process callers such as replays.
	Policy        string
	ImageAnalysis string
	EvidenceRef   *string
	CustomerID    *string
	CompanyID     *uuid.UUID
}

// ConverseResult is what the customer and the dashboard see.
type ConverseResult struct {
	Reply         string
	Action        *domain.Action
	Events        []dashboard.Event
	ImageAnalysis string
}

// Converse runs one turn: it verifies any referenced order, asks the language
// service for a reply, applies a recognized decision and reports the outcome
// to the dashboard. A language service failure yields the fallback reply
// rather than an error.
func (s *Service) Converse(ctx context.Context, in ConverseInput) (ConverseResult, error) {
	start := time.Now()
	log := s.log.WithContext(ctx)

	message := sanitize.Message(in.Message, s.maxRunes)
	if message == "" {
		return ConverseResult{}, apperr.Validation("message is required")
	}
	analysis := strings.TrimSpace(in.ImageAnalysis)

	resolution := s.resolver.Resolve(ctx, message, in.CompanyID)

	userText := message
	if analysis != "" {
		userText += "\n\n[IMAGE ANALYSIS]: " + analysis
	}
	if side := resolution.SideInfo(); side != "" {
		userText += "\n" + side
	}

	raw, err := s.gateway.Complete(ctx, agent.CompletionRequest{
		SystemPrompt: s.prompts.SystemPrompt(s.policyFor(ctx, in)),
		History:      in.History,
		UserText:     userText,
	})
	if err != nil {
		metrics.GatewayFailures.WithLabelValues("chat").Inc()
		log.GatewayError("chat", err)
		result := ConverseResult{
			Reply:         s.prompts.FallbackReply,
			Events:        dashboard.Events(nil, analysis),
			ImageAnalysis: analysis,
		}
		s.broadcast(ctx, in.CompanyID, result.Events)
		return result, nil
	}

	extraction := agent.Extract(raw)
	transcript := buildTranscript(in.History, message, extraction.Transcript)

	kind := ""
	if extraction.Action != nil {
		kind = string(extraction.Action.Kind)
		s.applyAction(ctx, in, *extraction.Action, transcript)
	}

	elapsed := time.Since(start)
	s.stats.Update(float64(elapsed.Milliseconds()), kind)
	metrics.ChatTurnDuration.Observe(float64(elapsed.Milliseconds()))
	metrics.ChatTurns.WithLabelValues(actionLabel(kind)).Inc()

	result := ConverseResult{
		Reply:         extraction.CleanText,
		Action:        extraction.Action,
		Events:        dashboard.Events(extraction.Action, analysis),
		ImageAnalysis: analysis,
	}
	s.broadcast(ctx, in.CompanyID, result.Events)
	return result, nil
}

// policyFor returns the policy text the turn is judged against.
func (s *Service) policyFor(ctx context.Context, in ConverseInput) string {
	if policy := strings.TrimSpace(in.Policy); policy != "" {
		return policy
	}
	if in.CompanyID == nil {
		return domain.DefaultPolicy
	}

	company, err := s.store.GetCompany(ctx, *in.CompanyID)
	if err != nil {
		s.log.WithContext(ctx).Warn("company policy unavailable, using default", "company_id", in.CompanyID.String(), "error", err)
		return domain.DefaultPolicy
	}
	return company.PolicyOrDefault()
}

func (s *Service) broadcast(ctx context.Context, companyID *uuid.UUID, evts []dashboard.Event) {
	if len(evts) == 0 {
		return
	}
	s.dashboard.Publish(ctx, dashboard.Broadcast{CompanyID: companyID, Events: evts})
}

// buildTranscript keeps the last few prior turns plus the current exchange.
func buildTranscript(history []agent.Turn, message, reply string) string {
	if len(history) > transcriptHistoryTurns {
		history = history[len(history)-transcriptHistoryTurns:]
	}

	var b strings.Builder
	for _, turn := range history {
		b.WriteString(speaker(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("User: ")
	b.WriteString(message)
	b.WriteString("\nAI: ")
	b.WriteString(reply)
	return b.String()
}

func speaker(role agent.Role) string {
	if role == agent.RoleUser {
		return "User"
	}
	return "AI"
}

func actionLabel(kind string) string {
	if kind == "" {
		return "none"
	}
	return strings.ToLower(kind)
}

// AnalyzeEvidence judges an uploaded photo ahead of the chat turn that
// refers to it.
func (s *Service) AnalyzeEvidence(ctx context.Context, img agent.Image) (string, error) {
	analysis, err := s.analyzer.Analyze(ctx, img)
	if err != nil {
		metrics.GatewayFailures.WithLabelValues("image_analysis").Inc()
		s.log.WithContext(ctx).GatewayError("image_analysis", err)
		return "", apperr.Unavailable("image analysis is temporarily unavailable", err)
	}
	return analysis, nil
}

// Package service holds the claims business logic: the conversation turn,
// the claim lifecycle driven by assistant decisions and reviewer verdicts,
// and the policy feedback loop.
package service

import (
	"context"

	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/claims/resolver"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/events"
	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence the service needs. Implemented by
// repository.Repository.
type Store interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	UpdateCompanyPolicy(ctx context.Context, id uuid.UUID, policy string) error
	InsertClaim(ctx context.Context, rec domain.ClaimRecord) (domain.ClaimRecord, error)
	FinalizeClaim(ctx context.Context, kind domain.Kind, id, companyID uuid.UUID, status domain.Status) (uuid.UUID, error)
	GetClaim(ctx context.Context, kind domain.Kind, id, companyID uuid.UUID) (domain.ClaimView, error)
	ListPending(ctx context.Context, companyID uuid.UUID, kind domain.Kind) ([]domain.ClaimView, error)
}

// TransactionResolver verifies order references. Implemented by resolver.Resolver.
type TransactionResolver interface {
	Resolve(ctx context.Context, message string, companyID *uuid.UUID) resolver.Resolution
	LookupReference(ctx context.Context, ref string, companyID *uuid.UUID) (*domain.Transaction, error)
	ActiveClaim(ctx context.Context, transactionID uuid.UUID) (*domain.ClaimRecord, error)
}

// ImageAnalyzer judges evidence photos. Implemented by agent.ImageAnalyzer.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, img agent.Image) (string, error)
}

// StatsRecorder receives one call per answered turn.
type StatsRecorder interface {
	Update(elapsedMs float64, kind string)
}

// DashboardPublisher forwards dashboard events to live subscribers.
type DashboardPublisher interface {
	Publish(ctx context.Context, b dashboard.Broadcast)
}

// Deps groups the collaborators of Service.
type Deps struct {
	Store     Store
	Resolver  TransactionResolver
	Gateway   agent.Gateway
	Analyzer  ImageAnalyzer
	Prompts   *agent.Prompts
	Stats     StatsRecorder
	Dashboard DashboardPublisher
	Bus       events.Bus
	Log       *logger.Logger
}

// Service implements the claims use cases.
type Service struct {
	store     Store
	resolver  TransactionResolver
	gateway   agent.Gateway
	analyzer  ImageAnalyzer
	prompts   *agent.Prompts
	stats     StatsRecorder
	dashboard DashboardPublisher
	bus       events.Bus
	log       *logger.Logger
	maxRunes  int
}

// New creates a claims service.
func New(deps Deps) *Service {
	return &Service{
		store:     deps.Store,
		resolver:  deps.Resolver,
		gateway:   deps.Gateway,
		analyzer:  deps.Analyzer,
		prompts:   deps.Prompts,
		stats:     deps.Stats,
		dashboard: deps.Dashboard,
		bus:       deps.Bus,
		log:       deps.Log,
		maxRunes:  defaultMaxMessageRunes,
	}
}

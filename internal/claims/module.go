// Package claims provides the conversational claims resolution module.
package claims

import (
	"claimdesk_backend/internal/adapters/storage"
	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/handler"
	"claimdesk_backend/internal/claims/repository"
	"claimdesk_backend/internal/claims/resolver"
	"claimdesk_backend/internal/claims/service"
	"claimdesk_backend/internal/events"
	apphttp "claimdesk_backend/internal/http"
	"claimdesk_backend/platform/httpkit"
	"claimdesk_backend/platform/logger"
	"claimdesk_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps groups what the module needs from the composition root.
type Deps struct {
	Pool      *pgxpool.Pool
	Gateway   agent.Gateway
	Prompts   *agent.Prompts
	Stats     service.StatsRecorder
	Dashboard service.DashboardPublisher
	Bus       events.Bus
	Validator *validator.Validator
	Evidence  storage.EvidenceStore
	Log       *logger.Logger
}

// Module represents the claims domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates a new claims module with all dependencies wired.
func NewModule(deps Deps) *Module {
	repo := repository.New(deps.Pool)
	res := resolver.New(repo, repo, deps.Log)
	svc := service.New(service.Deps{
		Store:     repo,
		Resolver:  res,
		Gateway:   deps.Gateway,
		Analyzer:  agent.NewImageAnalyzer(deps.Gateway, deps.Prompts),
		Prompts:   deps.Prompts,
		Stats:     deps.Stats,
		Dashboard: deps.Dashboard,
		Bus:       deps.Bus,
		Log:       deps.Log,
	})

	h := handler.New(svc, deps.Validator, deps.Log)
	if deps.Evidence != nil {
		h.SetEvidenceStore(deps.Evidence)
	}

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "claims"
}

// Service returns the service layer for the scheduler and other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the claim store for modules that read companies and
// transactions.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	chat := ctx.V1.Group("/chat", ctx.ChatRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(chat)

	admin := ctx.Protected.Group("/admin", httpkit.RequireRole(httpkit.RoleCompanyAdmin))
	m.handler.RegisterAdminRoutes(admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)

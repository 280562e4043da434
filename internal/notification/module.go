// Package notification reacts to claim lifecycle events: it emails company
// support staff about escalations and mirrors reviewer decisions onto the
// live dashboard. Claim code never talks to mail servers directly.
package notification

import (
	"context"
	"strings"
	"sync"
	"time"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/email"
	"claimdesk_backend/internal/events"
	"claimdesk_backend/platform/config"
	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
)

const companyCacheTTL = 10 * time.Minute

// Directory loads the records a notification is rendered from.
type Directory interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// DashboardPublisher pushes events to connected reviewers.
type DashboardPublisher interface {
	Publish(ctx context.Context, bc dashboard.Broadcast)
}

type cachedCompany struct {
	company   *domain.Company
	expiresAt time.Time
}

// Module handles notification-related event subscriptions.
type Module struct {
	directory    Directory
	sender       email.Sender
	cfg          config.NotificationConfig
	log          *logger.Logger
	dashboard    DashboardPublisher
	companyCache sync.Map // map[uuid.UUID]cachedCompany
}

// New creates a new notification module.
func New(directory Directory, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		directory: directory,
		sender:    sender,
		cfg:       cfg,
		log:       log,
	}
}

// SetDashboard injects the dashboard broadcaster so decisions reach other
// open reviewer sessions.
func (m *Module) SetDashboard(p DashboardPublisher) { m.dashboard = p }

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the claim events this module reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.EscalationOpened{}.EventName(), m)
	bus.Subscribe(events.ClaimFinalized{}.EventName(), m)
	bus.Subscribe(events.PolicyRefined{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.EscalationOpened:
		return m.handleEscalationOpened(ctx, e)
	case events.ClaimFinalized:
		return m.handleClaimFinalized(ctx, e)
	case events.PolicyRefined:
		return m.handlePolicyRefined(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleEscalationOpened(ctx context.Context, e events.EscalationOpened) error {
	company, err := m.resolveCompany(ctx, e.CompanyID)
	if err != nil {
		m.log.Error("failed to load company for escalation email", "companyId", e.CompanyID, "error", err)
		return err
	}
	if company.SupportEmail == nil || strings.TrimSpace(*company.SupportEmail) == "" {
		m.log.Debug("company has no support email, skipping escalation email", "companyId", e.CompanyID)
		return nil
	}

	notice := email.EscalationNotice{
		CompanyName:  company.Name,
		CustomerID:   e.CustomerID,
		Reason:       e.Reason,
		EscalationID: e.EscalationID.String(),
		OpenedAt:     e.OccurredAt(),
		DashboardURL: m.dashboardURL(),
	}
	tx, err := m.directory.GetTransaction(ctx, e.TransactionID)
	if err != nil {
		m.log.Warn("escalation email without transaction details", "transactionId", e.TransactionID, "error", err)
	} else {
		notice.OrderRef = tx.OrderRef
		notice.AmountCents = tx.AmountCents
	}

	to := strings.TrimSpace(*company.SupportEmail)
	if err := m.sender.SendEscalationEmail(ctx, to, notice); err != nil {
		m.log.Error("failed to send escalation email",
			"escalationId", e.EscalationID,
			"email", to,
			"error", err,
		)
		return err
	}
	m.log.Info("escalation email sent", "escalationId", e.EscalationID, "email", to)
	return nil
}

func (m *Module) handleClaimFinalized(ctx context.Context, e events.ClaimFinalized) error {
	title := "Claim Approved"
	if e.Status == string(domain.StatusRejected) {
		title = "Claim Rejected"
	}
	m.publish(ctx, e.CompanyID, dashboard.Event{
		Type:     "decision",
		Icon:     "task_alt",
		Title:    title,
		Subtitle: e.Kind,
	})
	return nil
}

func (m *Module) handlePolicyRefined(ctx context.Context, e events.PolicyRefined) error {
	m.companyCache.Delete(e.CompanyID)
	m.publish(ctx, e.CompanyID, dashboard.Event{
		Type:     "policy",
		Icon:     "policy",
		Title:    "Policy Updated",
		Subtitle: "Refined from reviewer feedback",
	})
	return nil
}

func (m *Module) publish(ctx context.Context, companyID uuid.UUID, ev dashboard.Event) {
	if m.dashboard == nil {
		return
	}
	id := companyID
	m.dashboard.Publish(ctx, dashboard.Broadcast{CompanyID: &id, Events: []dashboard.Event{ev}})
}

func (m *Module) resolveCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	if cached, ok := m.companyCache.Load(id); ok {
		entry := cached.(cachedCompany)
		if time.Now().Before(entry.expiresAt) {
			return entry.company, nil
		}
		m.companyCache.Delete(id)
	}

	company, err := m.directory.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	m.companyCache.Store(id, cachedCompany{company: company, expiresAt: time.Now().Add(companyCacheTTL)})
	return company, nil
}

func (m *Module) dashboardURL() string {
	if m.cfg == nil {
		return ""
	}
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + "/dashboard"
}

var _ events.Handler = (*Module)(nil)

package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"claimdesk_backend/internal/claims/agent"
	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/internal/claims/resolver"
	"claimdesk_backend/internal/dashboard"
	"claimdesk_backend/internal/events"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// memStore keeps claims in memory with the same lifecycle rules as the
// Postgres repository.
type memStore struct {
	mu           sync.Mutex
	companies    map[uuid.UUID]*domain.Company
	transactions []domain.Transaction
	claims       []domain.ClaimRecord

	failInsert    map[domain.Kind]bool
	failPolicy    bool
	policyUpdates int
}

func newMemStore() *memStore {
	return &memStore{
		companies:  make(map[uuid.UUID]*domain.Company),
		failInsert: make(map[domain.Kind]bool),
	}
}

func (m *memStore) addCompany(policy string) uuid.UUID {
	id := uuid.New()
	m.companies[id] = &domain.Company{ID: id, Name: "Acme", Tagline: "acme", ReturnPolicy: policy}
	return id
}

func (m *memStore) addTransaction(companyID uuid.UUID, ref string, amountCents int64) domain.Transaction {
	tx := domain.Transaction{ID: uuid.New(), CompanyID: companyID, OrderRef: ref, AmountCents: amountCents, CreatedAt: time.Now()}
	m.transactions = append(m.transactions, tx)
	return tx
}

func (m *memStore) addClaim(rec domain.ClaimRecord) domain.ClaimRecord {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.claims = append(m.claims, rec)
	return rec
}

func (m *memStore) FindTransactionByReference(_ context.Context, ref string, companyID *uuid.UUID) (*domain.Transaction, error) {
	for _, tx := range m.transactions {
		if !strings.EqualFold(tx.OrderRef, ref) {
			continue
		}
		if companyID != nil && tx.CompanyID != *companyID {
			continue
		}
		found := tx
		return &found, nil
	}
	return nil, apperr.NotFound("transaction not found")
}

func (m *memStore) GetTransaction(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	for _, tx := range m.transactions {
		if tx.ID == id {
			found := tx
			return &found, nil
		}
	}
	return nil, apperr.NotFound("transaction not found")
}

func (m *memStore) FindActiveClaim(_ context.Context, transactionID uuid.UUID) (*domain.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.TransactionID == transactionID && domain.IsActive(c.Kind, c.Status) {
			found := c
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetCompany(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[id]
	if !ok {
		return nil, apperr.NotFound("company not found")
	}
	copied := *c
	return &copied, nil
}

func (m *memStore) UpdateCompanyPolicy(_ context.Context, id uuid.UUID, policy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPolicy {
		return apperr.Internal("database unavailable")
	}
	c, ok := m.companies[id]
	if !ok {
		return apperr.NotFound("company not found")
	}
	c.ReturnPolicy = policy
	m.policyUpdates++
	return nil
}

func (m *memStore) InsertClaim(_ context.Context, rec domain.ClaimRecord) (domain.ClaimRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert[rec.Kind] {
		return domain.ClaimRecord{}, apperr.Internal("insert failed")
	}
	return m.addClaim(rec), nil
}

func (m *memStore) FinalizeClaim(_ context.Context, kind domain.Kind, id, companyID uuid.UUID, status domain.Status) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.claims {
		c := &m.claims[i]
		if c.Kind != kind || c.ID != id || c.CompanyID != companyID {
			continue
		}
		if !domain.IsActive(kind, c.Status) {
			return uuid.Nil, apperr.Conflict("already final")
		}
		c.Status = status
		for j := range m.claims {
			r := &m.claims[j]
			if r.Kind != domain.KindRefund {
				continue
			}
			if (kind == domain.KindRefund && r.ID == id) || (kind != domain.KindRefund && r.TransactionID == c.TransactionID) {
				r.Transcript = nil
				r.EvidenceRef = nil
			}
		}
		return c.TransactionID, nil
	}
	return uuid.Nil, apperr.NotFound("claim not found")
}

func (m *memStore) view(c domain.ClaimRecord) domain.ClaimView {
	v := domain.ClaimView{Record: c}
	for _, tx := range m.transactions {
		if tx.ID == c.TransactionID {
			v.OrderRef = tx.OrderRef
			v.TransactionAmountCents = tx.AmountCents
		}
	}
	for _, r := range m.claims {
		if r.Kind != domain.KindRefund || r.TransactionID != c.TransactionID {
			continue
		}
		if c.Kind == domain.KindRefund && r.ID != c.ID {
			continue
		}
		reason := r.Reasoning
		v.Transcript, v.EvidenceRef, v.AIReason = r.Transcript, r.EvidenceRef, &reason
	}
	return v
}

func (m *memStore) GetClaim(_ context.Context, kind domain.Kind, id, companyID uuid.UUID) (domain.ClaimView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.claims {
		if c.Kind == kind && c.ID == id && c.CompanyID == companyID {
			return m.view(c), nil
		}
	}
	return domain.ClaimView{}, apperr.NotFound("claim not found")
}

func (m *memStore) ListPending(_ context.Context, companyID uuid.UUID, kind domain.Kind) ([]domain.ClaimView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ClaimView
	for _, c := range m.claims {
		if c.Kind == kind && c.CompanyID == companyID && domain.IsActive(c.Kind, c.Status) {
			out = append(out, m.view(c))
		}
	}
	return out, nil
}

func (m *memStore) claimsOf(kind domain.Kind) []domain.ClaimRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ClaimRecord
	for _, c := range m.claims {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

type scriptedGateway struct {
	mu    sync.Mutex
	reply func(req agent.CompletionRequest) (string, error)
	reqs  []agent.CompletionRequest
}

func replyWith(text string) *scriptedGateway {
	return &scriptedGateway{reply: func(agent.CompletionRequest) (string, error) { return text, nil }}
}

func failWith(err error) *scriptedGateway {
	return &scriptedGateway{reply: func(agent.CompletionRequest) (string, error) { return "", err }}
}

func (g *scriptedGateway) Complete(_ context.Context, req agent.CompletionRequest) (string, error) {
	g.mu.Lock()
	g.reqs = append(g.reqs, req)
	g.mu.Unlock()
	return g.reply(req)
}

func (g *scriptedGateway) last() agent.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reqs[len(g.reqs)-1]
}

type fakeAnalyzer struct {
	text  string
	err   error
	calls int
}

func (a *fakeAnalyzer) Analyze(context.Context, agent.Image) (string, error) {
	a.calls++
	return a.text, a.err
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.events {
		if e.EventName() == name {
			n++
		}
	}
	return n
}

type recordingDashboard struct {
	mu         sync.Mutex
	broadcasts []dashboard.Broadcast
}

func (d *recordingDashboard) Publish(_ context.Context, b dashboard.Broadcast) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.broadcasts = append(d.broadcasts, b)
}

type harness struct {
	svc       *Service
	store     *memStore
	gateway   *scriptedGateway
	analyzer  *fakeAnalyzer
	stats     *dashboard.Stats
	bus       *recordingBus
	dashboard *recordingDashboard
}

func newHarness(t *testing.T, gw *scriptedGateway) *harness {
	t.Helper()
	prompts, err := agent.LoadPrompts()
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}

	h := &harness{
		store:     newMemStore(),
		gateway:   gw,
		analyzer:  &fakeAnalyzer{text: "Verified: real photo, cracked screen."},
		stats:     dashboard.NewStats(dashboard.WithJitter(func() float64 { return 0 })),
		bus:       &recordingBus{},
		dashboard: &recordingDashboard{},
	}
	log := logger.Nop()
	h.svc = New(Deps{
		Store:     h.store,
		Resolver:  resolver.New(h.store, h.store, log),
		Gateway:   gw,
		Analyzer:  h.analyzer,
		Prompts:   prompts,
		Stats:     h.stats,
		Dashboard: h.dashboard,
		Bus:       h.bus,
		Log:       log,
	})
	return h
}

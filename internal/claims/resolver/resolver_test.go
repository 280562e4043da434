package resolver

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTransactions struct {
	byRef   map[string]*domain.Transaction
	err     error
	lookups []string
}

func (f *fakeTransactions) FindTransactionByReference(_ context.Context, ref string, companyID *uuid.UUID) (*domain.Transaction, error) {
	f.lookups = append(f.lookups, ref)
	if f.err != nil {
		return nil, f.err
	}
	tx, ok := f.byRef[strings.ToLower(ref)]
	if !ok || (companyID != nil && tx.CompanyID != *companyID) {
		return nil, apperr.NotFound("transaction not found")
	}
	return tx, nil
}

func (f *fakeTransactions) GetTransaction(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	for _, tx := range f.byRef {
		if tx.ID == id {
			return tx, nil
		}
	}
	return nil, apperr.NotFound("transaction not found")
}

type fakeClaims struct {
	active map[uuid.UUID]*domain.ClaimRecord
	err    error
}

func (f *fakeClaims) FindActiveClaim(_ context.Context, transactionID uuid.UUID) (*domain.ClaimRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.active[transactionID], nil
}

func newFixture() (*fakeTransactions, *fakeClaims, *domain.Transaction) {
	tx := &domain.Transaction{ID: uuid.New(), CompanyID: uuid.New(), OrderRef: "AB12", AmountCents: 4999}
	return &fakeTransactions{byRef: map[string]*domain.Transaction{"ab12": tx}},
		&fakeClaims{active: map[uuid.UUID]*domain.ClaimRecord{}},
		tx
}

func TestResolveNoTokenYieldsNoSideInfo(t *testing.T) {
	txs, claims, _ := newFixture()
	r := New(txs, claims, logger.Nop())

	for _, msg := range []string{"", "hi", "I want my money back", "the box was broken"} {
		res := r.Resolve(context.Background(), msg, nil)
		if res.Status != StatusNone || res.SideInfo() != "" {
			t.Fatalf("message %q: expected no side info, got %s %q", msg, res.Status, res.SideInfo())
		}
	}
	if len(txs.lookups) != 0 {
		t.Fatalf("expected no store lookups for plain words, got %v", txs.lookups)
	}
}

func TestResolveHashMarkedReferenceFoundNew(t *testing.T) {
	txs, claims, tx := newFixture()
	r := New(txs, claims, logger.Nop())

	res := r.Resolve(context.Background(), "My item #AB12 arrived broken", &tx.CompanyID)
	if res.Status != StatusFoundNew {
		t.Fatalf("expected FOUND_NEW, got %s", res.Status)
	}
	want := "[SYSTEM]: Tx AB12 Verified. Valid for claim. UUID: " + tx.ID.String() + "."
	if res.SideInfo() != want {
		t.Fatalf("side info = %q, want %q", res.SideInfo(), want)
	}
}

func TestResolveExistingClaim(t *testing.T) {
	txs, claims, tx := newFixture()
	claims.active[tx.ID] = &domain.ClaimRecord{Kind: domain.KindPayout, Status: domain.StatusReadyForPayout}
	r := New(txs, claims, logger.Nop())

	res := r.Resolve(context.Background(), "order id: ab12", nil)
	if res.Status != StatusFoundExisting {
		t.Fatalf("expected FOUND_EXISTING, got %s", res.Status)
	}
	if res.SideInfo() != "[SYSTEM]: Tx ab12 Verified. Claim EXISTS: READY_FOR_PAYOUT." {
		t.Fatalf("unexpected side info %q", res.SideInfo())
	}
}

func TestResolveNotFoundOnlyWithOrderLanguage(t *testing.T) {
	txs, claims, _ := newFixture()
	r := New(txs, claims, logger.Nop())

	res := r.Resolve(context.Background(), "my order ZZ99 never came", nil)
	if res.Status != StatusNotFound || res.SideInfo() != "[SYSTEM]: Tx ZZ99 NOT FOUND." {
		t.Fatalf("expected NOT_FOUND signal, got %s %q", res.Status, res.SideInfo())
	}

	res = r.Resolve(context.Background(), "order id: XYZW never came", nil)
	if res.Status != StatusNotFound || res.SideInfo() != "[SYSTEM]: Tx XYZW NOT FOUND." {
		t.Fatalf("expected NOT_FOUND for letters-only reference, got %s %q", res.Status, res.SideInfo())
	}

	res = r.Resolve(context.Background(), "I bought it in 2024 and it broke", nil)
	if res.Status != StatusNone {
		t.Fatalf("expected silent miss without order language, got %s", res.Status)
	}
}

func TestResolveLettersOnlyLabeledReference(t *testing.T) {
	txs, claims, _ := newFixture()
	tx := &domain.Transaction{ID: uuid.New(), CompanyID: uuid.New(), OrderRef: "ABCDE", AmountCents: 1500}
	txs.byRef["abcde"] = tx
	r := New(txs, claims, logger.Nop())

	res := r.Resolve(context.Background(), "my order id ABCDE arrived broken", nil)
	if res.Status != StatusFoundNew || res.Transaction.ID != tx.ID {
		t.Fatalf("expected FOUND_NEW for ABCDE, got %s (lookups %v)", res.Status, txs.lookups)
	}
}

func TestResolveCapsStoreLookups(t *testing.T) {
	txs, claims, _ := newFixture()
	r := New(txs, claims, logger.Nop())

	tokens := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		tokens = append(tokens, fmt.Sprintf("x%03d", i))
	}
	res := r.Resolve(context.Background(), "order "+strings.Join(tokens, " "), nil)
	if res.Status != StatusNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", res.Status)
	}
	if len(txs.lookups) != maxLookups {
		t.Fatalf("expected %d store lookups, got %d", maxLookups, len(txs.lookups))
	}
}

func TestResolveIsCompanyScoped(t *testing.T) {
	txs, claims, _ := newFixture()
	r := New(txs, claims, logger.Nop())

	other := uuid.New()
	res := r.Resolve(context.Background(), "#AB12 is broken", &other)
	if res.Status != StatusNotFound {
		t.Fatalf("expected NOT_FOUND for another company, got %s", res.Status)
	}
}

func TestResolveStoreFailureDegradesToNone(t *testing.T) {
	txs, claims, _ := newFixture()
	txs.err = errors.New("connection refused")
	r := New(txs, claims, logger.Nop())

	res := r.Resolve(context.Background(), "order #AB12", nil)
	if res.Status != StatusNone || res.SideInfo() != "" {
		t.Fatalf("expected degraded NONE, got %s", res.Status)
	}

	txs.err = nil
	claims.err = errors.New("timeout")
	res = r.Resolve(context.Background(), "order #AB12", nil)
	if res.Status != StatusNone {
		t.Fatalf("expected degraded NONE on claim lookup failure, got %s", res.Status)
	}
}

func TestResolveFirstHitWins(t *testing.T) {
	txs, claims, tx := newFixture()
	r := New(txs, claims, logger.Nop())

	res := r.Resolve(context.Background(), "not X777 but order #AB12", nil)
	if res.Status != StatusFoundNew || res.Transaction.ID != tx.ID {
		t.Fatalf("expected AB12 to resolve, got %s", res.Status)
	}
	if txs.lookups[0] != "AB12" {
		t.Fatalf("expected marked token to be looked up first, got %v", txs.lookups)
	}
}

type staticMatcher []string

func (m staticMatcher) Candidates(string) []string { return m }

func TestResolveUsesInjectedMatcher(t *testing.T) {
	txs, claims, _ := newFixture()
	r := New(txs, claims, logger.Nop(), WithMatcher(staticMatcher{"ab12"}))

	res := r.Resolve(context.Background(), "anything at all", nil)
	if res.Status != StatusFoundNew {
		t.Fatalf("expected injected matcher to drive lookup, got %s", res.Status)
	}
}

func TestLookupReference(t *testing.T) {
	txs, claims, tx := newFixture()
	r := New(txs, claims, logger.Nop())
	ctx := context.Background()

	got, err := r.LookupReference(ctx, tx.ID.String(), nil)
	if err != nil || got.ID != tx.ID {
		t.Fatalf("lookup by id: %v", err)
	}
	got, err = r.LookupReference(ctx, "#ab12", &tx.CompanyID)
	if err != nil || got.ID != tx.ID {
		t.Fatalf("lookup by free text: %v", err)
	}

	other := uuid.New()
	if _, err := r.LookupReference(ctx, tx.ID.String(), &other); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another company, got %v", err)
	}
	if _, err := r.LookupReference(ctx, "#", nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for empty reference, got %v", err)
	}
}

func TestRegexMatcherCandidates(t *testing.T) {
	cases := []struct {
		msg  string
		want []string
	}{
		{"My item #AB12 arrived broken", []string{"AB12"}},
		{"Order number: 55-1234 please", []string{"55-1234"}},
		{"my order arrived broken", nil},
		{"my order id ABCDE arrived broken", []string{"ABCDE"}},
		{"order id: XYZW never came", []string{"XYZW"}},
		{"order no. QRST-9 please", []string{"QRST-9"}},
		{"order nothing yet", nil},
		{"#ABCD and INV-2211", []string{"ABCD", "INV-2211"}},
		{"abc 12", nil},
	}
	for _, tc := range cases {
		got := RegexMatcher{}.Candidates(tc.msg)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Candidates(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

// Package resolver finds transaction references in customer messages and
// verifies them against the claim store before the assistant is prompted.
package resolver

import (
	"context"
	"fmt"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/platform/apperr"
	"claimdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Status is the verification outcome of a message.
type Status string

const (
	// StatusNone means no usable reference was found. No side information is added.
	StatusNone          Status = "NONE"
	StatusNotFound      Status = "NOT_FOUND"
	StatusFoundNew      Status = "FOUND_NEW"
	StatusFoundExisting Status = "FOUND_EXISTING"
)

// TransactionStore is the read side of transactions the resolver needs.
type TransactionStore interface {
	FindTransactionByReference(ctx context.Context, ref string, companyID *uuid.UUID) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
}

// ClaimLookup reports the claim currently awaiting review for a transaction.
type ClaimLookup interface {
	FindActiveClaim(ctx context.Context, transactionID uuid.UUID) (*domain.ClaimRecord, error)
}

// Resolution is the result of Resolve.
type Resolution struct {
	Status      Status
	Reference   string
	Transaction *domain.Transaction
	// ExistingClaim is set for StatusFoundExisting.
	ExistingClaim *domain.ClaimRecord
}

// SideInfo renders the verification line appended to the customer's turn.
func (r Resolution) SideInfo() string {
	switch r.Status {
	case StatusFoundExisting:
		return fmt.Sprintf("[SYSTEM]: Tx %s Verified. Claim EXISTS: %s.", r.Reference, r.ExistingClaim.Status)
	case StatusFoundNew:
		return fmt.Sprintf("[SYSTEM]: Tx %s Verified. Valid for claim. UUID: %s.", r.Reference, r.Transaction.ID)
	case StatusNotFound:
		return fmt.Sprintf("[SYSTEM]: Tx %s NOT FOUND.", r.Reference)
	}
	return ""
}

// Resolver verifies transaction references.
type Resolver struct {
	transactions TransactionStore
	claims       ClaimLookup
	matcher      ReferenceMatcher
	log          *logger.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMatcher replaces the default RegexMatcher.
func WithMatcher(m ReferenceMatcher) Option {
	return func(r *Resolver) {
		if m != nil {
			r.matcher = m
		}
	}
}

// New creates a resolver.
func New(transactions TransactionStore, claims ClaimLookup, log *logger.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		transactions: transactions,
		claims:       claims,
		matcher:      RegexMatcher{},
		log:          log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// maxLookups bounds store round-trips per message. Marked candidates come
// first, so they are never the ones dropped.
const maxLookups = 5

// Resolve scans message for an order reference and verifies it, scoped to
// companyID when given. Store failures are logged and yield StatusNone so a
// chat turn never fails on verification.
func (r *Resolver) Resolve(ctx context.Context, message string, companyID *uuid.UUID) Resolution {
	candidates := r.matcher.Candidates(message)
	if len(candidates) == 0 {
		return Resolution{Status: StatusNone}
	}
	if len(candidates) > maxLookups {
		candidates = candidates[:maxLookups]
	}

	for _, candidate := range candidates {
		ref := domain.NormalizeReference(candidate)
		tx, err := r.transactions.FindTransactionByReference(ctx, ref, companyID)
		if err != nil {
			if apperr.Is(err, apperr.KindNotFound) {
				continue
			}
			r.log.WithContext(ctx).DatabaseError("resolve_reference", err)
			return Resolution{Status: StatusNone}
		}

		existing, err := r.claims.FindActiveClaim(ctx, tx.ID)
		if err != nil {
			r.log.WithContext(ctx).DatabaseError("find_active_claim", err)
			return Resolution{Status: StatusNone}
		}
		if existing != nil {
			return Resolution{Status: StatusFoundExisting, Reference: ref, Transaction: tx, ExistingClaim: existing}
		}
		return Resolution{Status: StatusFoundNew, Reference: ref, Transaction: tx}
	}

	if mentionsOrder(message) {
		return Resolution{Status: StatusNotFound, Reference: domain.NormalizeReference(candidates[0])}
	}
	return Resolution{Status: StatusNone}
}

// LookupReference resolves a reference emitted in a decision block. Internal
// ids are loaded directly; anything else is treated as an order reference.
// A transaction outside companyID is reported as not found.
func (r *Resolver) LookupReference(ctx context.Context, ref string, companyID *uuid.UUID) (*domain.Transaction, error) {
	if id, err := uuid.Parse(ref); err == nil {
		tx, err := r.transactions.GetTransaction(ctx, id)
		if err != nil {
			return nil, err
		}
		if companyID != nil && tx.CompanyID != *companyID {
			return nil, apperr.NotFound("transaction not found")
		}
		return tx, nil
	}

	normalized := domain.NormalizeReference(ref)
	if normalized == "" {
		return nil, apperr.NotFound("transaction not found")
	}
	return r.transactions.FindTransactionByReference(ctx, normalized, companyID)
}

// ActiveClaim re-reads the claim awaiting review for a transaction.
func (r *Resolver) ActiveClaim(ctx context.Context, transactionID uuid.UUID) (*domain.ClaimRecord, error) {
	return r.claims.FindActiveClaim(ctx, transactionID)
}

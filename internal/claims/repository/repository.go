// Package repository persists transactions, companies and claim records in Postgres.
package repository

import (
	"context"
	"errors"
	"fmt"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the pgx-backed claim store.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new claims repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ── Transactions ──────────────────────────────────────────────────────────────

const transactionColumns = `id, company_id, order_ref, amount_cents, customer_email, created_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	if err := row.Scan(&tx.ID, &tx.CompanyID, &tx.OrderRef, &tx.AmountCents, &tx.CustomerEmail, &tx.CreatedAt); err != nil {
		return nil, err
	}
	return &tx, nil
}

// FindTransactionByReference looks up a transaction by order reference. The
// reference is normalized and compared case-insensitively. A nil companyID
// searches across companies.
func (r *Repository) FindTransactionByReference(ctx context.Context, ref string, companyID *uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE lower(order_ref) = lower($1)
			AND ($2::uuid IS NULL OR company_id = $2)
		ORDER BY created_at
		LIMIT 1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, domain.NormalizeReference(ref), companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("transaction not found")
		}
		return nil, fmt.Errorf("find transaction by reference: %w", err)
	}
	return tx, nil
}

// GetTransaction loads a transaction by internal id.
func (r *Repository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("transaction not found")
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ── Companies ─────────────────────────────────────────────────────────────────

const companyColumns = `id, name, description, tagline, return_policy, admin_username, admin_password_hash, support_email`

func scanCompany(row pgx.Row) (*domain.Company, error) {
	var c domain.Company
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.Tagline,
		&c.ReturnPolicy,
		&c.AdminUsername,
		&c.AdminPasswordHash,
		&c.SupportEmail,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCompany loads a company by id.
func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	c, err := scanCompany(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

// GetCompanyByTagline loads the company an admin signs in to.
func (r *Repository) GetCompanyByTagline(ctx context.Context, tagline string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE tagline = $1`

	c, err := scanCompany(r.pool.QueryRow(ctx, query, tagline))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, fmt.Errorf("get company by tagline: %w", err)
	}
	return c, nil
}

// UpdateCompanyPolicy replaces the policy of record.
func (r *Repository) UpdateCompanyPolicy(ctx context.Context, id uuid.UUID, policy string) error {
	query := `UPDATE companies SET return_policy = $2, updated_at = now() WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, policy)
	if err != nil {
		return fmt.Errorf("update company policy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("company not found")
	}
	return nil
}

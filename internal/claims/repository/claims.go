package repository

import (
	"context"
	"errors"
	"fmt"

	"claimdesk_backend/internal/claims/domain"
	"claimdesk_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertClaim writes a new record to the table of its kind and returns it
// with the generated id and timestamps.
func (r *Repository) InsertClaim(ctx context.Context, rec domain.ClaimRecord) (domain.ClaimRecord, error) {
	var (
		query string
		args  []any
	)

	switch rec.Kind {
	case domain.KindRefund:
		query = `
			INSERT INTO refund_claims (transaction_id, company_id, status, reasoning, evidence_ref, transcript)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at`
		args = []any{rec.TransactionID, rec.CompanyID, string(rec.Status), rec.Reasoning, rec.EvidenceRef, rec.Transcript}
	case domain.KindEscalation:
		query = `
			INSERT INTO escalations (transaction_id, customer_id, reason, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		args = []any{rec.TransactionID, rec.CustomerID, rec.Reasoning, string(rec.Status)}
	case domain.KindPayout:
		query = `
			INSERT INTO payout_queue (transaction_id, company_id, amount_cents, status)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`
		args = []any{rec.TransactionID, rec.CompanyID, rec.AmountCents, string(rec.Status)}
	default:
		return domain.ClaimRecord{}, apperr.Validation(fmt.Sprintf("unknown claim kind %q", rec.Kind))
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return domain.ClaimRecord{}, fmt.Errorf("insert %s claim: %w", rec.Kind, err)
	}
	return rec, nil
}

// FindActiveClaim returns the most recent record of any kind still awaiting
// review for the transaction, or nil when there is none.
func (r *Repository) FindActiveClaim(ctx context.Context, transactionID uuid.UUID) (*domain.ClaimRecord, error) {
	query := `
		SELECT kind, id, status, created_at FROM (
			SELECT 'refund' AS kind, id, status, created_at
			FROM refund_claims WHERE transaction_id = $1 AND status = $2
			UNION ALL
			SELECT 'escalation', id, status, created_at
			FROM escalations WHERE transaction_id = $1 AND status = $3
			UNION ALL
			SELECT 'payout', id, status, created_at
			FROM payout_queue WHERE transaction_id = $1 AND status = $4
		) active
		ORDER BY created_at DESC
		LIMIT 1`

	var (
		kind   string
		status string
		rec    domain.ClaimRecord
	)
	err := r.pool.QueryRow(ctx, query,
		transactionID,
		string(domain.ActiveStatus(domain.KindRefund)),
		string(domain.ActiveStatus(domain.KindEscalation)),
		string(domain.ActiveStatus(domain.KindPayout)),
	).Scan(&kind, &rec.ID, &status, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active claim: %w", err)
	}

	rec.Kind = domain.Kind(kind)
	rec.Status = domain.Status(status)
	rec.TransactionID = transactionID
	return &rec, nil
}

// FinalizeClaim moves an active record into status and clears transcript and
// evidence on the linked refund record, in one database transaction. Refund
// records are cleared by id; payouts and escalations by transaction id.
// Returns apperr.Conflict when the record is no longer awaiting review.
func (r *Repository) FinalizeClaim(ctx context.Context, kind domain.Kind, id, companyID uuid.UUID, status domain.Status) (uuid.UUID, error) {
	var update string
	switch kind {
	case domain.KindRefund:
		update = `
			UPDATE refund_claims SET status = $1, updated_at = now()
			WHERE id = $2 AND company_id = $3 AND status = $4
			RETURNING transaction_id`
	case domain.KindEscalation:
		update = `
			UPDATE escalations e SET status = $1, updated_at = now()
			FROM transactions t
			WHERE e.id = $2 AND t.id = e.transaction_id AND t.company_id = $3 AND e.status = $4
			RETURNING e.transaction_id`
	case domain.KindPayout:
		update = `
			UPDATE payout_queue SET status = $1, updated_at = now()
			WHERE id = $2 AND company_id = $3 AND status = $4
			RETURNING transaction_id`
	default:
		return uuid.Nil, apperr.Validation(fmt.Sprintf("unknown claim kind %q", kind))
	}

	var transactionID uuid.UUID
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, update, string(status), id, companyID, string(domain.ActiveStatus(kind))).Scan(&transactionID); err != nil {
			return err
		}

		if kind == domain.KindRefund {
			_, err := tx.Exec(ctx, clearContextByID, id)
			return err
		}
		_, err := tx.Exec(ctx, clearContextByTransaction, transactionID)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, r.finalizeMiss(ctx, kind, id, companyID)
		}
		return uuid.Nil, fmt.Errorf("finalize %s claim: %w", kind, err)
	}
	return transactionID, nil
}

const (
	clearContextByID = `
		UPDATE refund_claims SET transcript = NULL, evidence_ref = NULL, updated_at = now()
		WHERE id = $1`
	clearContextByTransaction = `
		UPDATE refund_claims SET transcript = NULL, evidence_ref = NULL, updated_at = now()
		WHERE transaction_id = $1`
)

// finalizeMiss tells a missing record apart from one that was already decided.
func (r *Repository) finalizeMiss(ctx context.Context, kind domain.Kind, id, companyID uuid.UUID) error {
	view, err := r.GetClaim(ctx, kind, id, companyID)
	if err != nil {
		return err
	}
	return apperr.Conflict(fmt.Sprintf("%s claim is already %s", kind, view.Record.Status))
}

// ── Reviewer views ────────────────────────────────────────────────────────────

// linkedRefund selects the latest refund record of the outer transaction.
const linkedRefund = `
	LEFT JOIN LATERAL (
		SELECT transcript, evidence_ref, reasoning
		FROM refund_claims
		WHERE transaction_id = t.id
		ORDER BY created_at DESC
		LIMIT 1
	) rc ON true`

// viewQueries share one column layout so scanView can read every kind.
var viewQueries = map[domain.Kind]struct {
	base  string
	alias string
}{
	domain.KindRefund: {
		alias: "r",
		base: `
			SELECT r.id, 'refund', r.transaction_id, r.company_id, r.status, r.reasoning,
				NULL::text, 0::bigint, r.evidence_ref, r.transcript, r.created_at, r.updated_at,
				t.order_ref, t.amount_cents, r.transcript, r.evidence_ref, r.reasoning
			FROM refund_claims r
			JOIN transactions t ON t.id = r.transaction_id`,
	},
	domain.KindEscalation: {
		alias: "e",
		base: `
			SELECT e.id, 'escalation', e.transaction_id, t.company_id, e.status, e.reason,
				e.customer_id, 0::bigint, NULL::text, NULL::text, e.created_at, e.updated_at,
				t.order_ref, t.amount_cents, rc.transcript, rc.evidence_ref, rc.reasoning
			FROM escalations e
			JOIN transactions t ON t.id = e.transaction_id` + linkedRefund,
	},
	domain.KindPayout: {
		alias: "p",
		base: `
			SELECT p.id, 'payout', p.transaction_id, p.company_id, p.status, '',
				NULL::text, p.amount_cents, NULL::text, NULL::text, p.created_at, p.updated_at,
				t.order_ref, t.amount_cents, rc.transcript, rc.evidence_ref, rc.reasoning
			FROM payout_queue p
			JOIN transactions t ON t.id = p.transaction_id` + linkedRefund,
	},
}

func scanView(row pgx.Row) (domain.ClaimView, error) {
	var (
		view   domain.ClaimView
		kind   string
		status string
		rec    = &view.Record
	)
	err := row.Scan(
		&rec.ID,
		&kind,
		&rec.TransactionID,
		&rec.CompanyID,
		&status,
		&rec.Reasoning,
		&rec.CustomerID,
		&rec.AmountCents,
		&rec.EvidenceRef,
		&rec.Transcript,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&view.OrderRef,
		&view.TransactionAmountCents,
		&view.Transcript,
		&view.EvidenceRef,
		&view.AIReason,
	)
	if err != nil {
		return domain.ClaimView{}, err
	}
	rec.Kind = domain.Kind(kind)
	rec.Status = domain.Status(status)
	return view, nil
}

// GetClaim loads one record of kind belonging to the company, with its
// linked refund context.
func (r *Repository) GetClaim(ctx context.Context, kind domain.Kind, id, companyID uuid.UUID) (domain.ClaimView, error) {
	q, ok := viewQueries[kind]
	if !ok {
		return domain.ClaimView{}, apperr.Validation(fmt.Sprintf("unknown claim kind %q", kind))
	}
	query := q.base + fmt.Sprintf(` WHERE %s.id = $1 AND t.company_id = $2`, q.alias)

	view, err := scanView(r.pool.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ClaimView{}, apperr.NotFound(fmt.Sprintf("%s claim not found", kind))
		}
		return domain.ClaimView{}, fmt.Errorf("get %s claim: %w", kind, err)
	}
	return view, nil
}

// ListPending returns the company's records of kind that await review,
// oldest first.
func (r *Repository) ListPending(ctx context.Context, companyID uuid.UUID, kind domain.Kind) ([]domain.ClaimView, error) {
	q, ok := viewQueries[kind]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown claim kind %q", kind))
	}
	query := q.base + fmt.Sprintf(` WHERE t.company_id = $1 AND %[1]s.status = $2 ORDER BY %[1]s.created_at`, q.alias)

	rows, err := r.pool.Query(ctx, query, companyID, string(domain.ActiveStatus(kind)))
	if err != nil {
		return nil, fmt.Errorf("list pending %s claims: %w", kind, err)
	}
	defer rows.Close()

	views := make([]domain.ClaimView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending %s claim: %w", kind, err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending %s claims: %w", kind, err)
	}
	return views, nil
}

var claimTables = map[domain.Kind]string{
	domain.KindRefund:     "refund_claims",
	domain.KindEscalation: "escalations",
	domain.KindPayout:     "payout_queue",
}

// CountActive returns how many records of kind await review across all companies.
func (r *Repository) CountActive(ctx context.Context, kind domain.Kind) (int, error) {
	table, ok := claimTables[kind]
	if !ok {
		return 0, apperr.Validation(fmt.Sprintf("unknown claim kind %q", kind))
	}

	var n int
	query := `SELECT count(*) FROM ` + table + ` WHERE status = $1`
	if err := r.pool.QueryRow(ctx, query, string(domain.ActiveStatus(kind))).Scan(&n); err != nil {
		return 0, fmt.Errorf("count active %s claims: %w", kind, err)
	}
	return n, nil
}

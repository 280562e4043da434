package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPolicy is used when a company has no policy text of record.
const DefaultPolicy = "Standard Policy"

// Transaction is an immutable purchase record a claim refers to.
type Transaction struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	OrderRef      string
	AmountCents   int64
	CustomerEmail *string
	CreatedAt     time.Time
}

// Company owns transactions and the policy the assistant judges claims against.
type Company struct {
	ID                uuid.UUID
	Name              string
	Description       string
	Tagline           string
	ReturnPolicy      string
	AdminUsername     string
	AdminPasswordHash string
	SupportEmail      *string
}

// PolicyOrDefault returns the company policy, falling back to DefaultPolicy.
func (c Company) PolicyOrDefault() string {
	if strings.TrimSpace(c.ReturnPolicy) == "" {
		return DefaultPolicy
	}
	return c.ReturnPolicy
}

// NormalizeReference strips '#' characters and surrounding whitespace from an
// order reference. Lookups compare the result case-insensitively.
func NormalizeReference(ref string) string {
	return strings.TrimSpace(strings.ReplaceAll(ref, "#", ""))
}

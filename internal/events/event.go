// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"claimdesk_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Claim Domain Events
// =============================================================================

// ClaimCreated is published for every claim record the assistant writes.
type ClaimCreated struct {
	BaseEvent
	ClaimID       uuid.UUID `json:"claimId"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	TransactionID uuid.UUID `json:"transactionId"`
	CompanyID     uuid.UUID `json:"companyId"`
	AmountCents   int64     `json:"amountCents,omitempty"`
}

func (e ClaimCreated) EventName() string { return "claims.claim.created" }

// EscalationOpened is published when a claim is handed to staff.
type EscalationOpened struct {
	BaseEvent
	EscalationID  uuid.UUID `json:"escalationId"`
	TransactionID uuid.UUID `json:"transactionId"`
	CompanyID     uuid.UUID `json:"companyId"`
	CustomerID    string    `json:"customerId,omitempty"`
	Reason        string    `json:"reason"`
}

func (e EscalationOpened) EventName() string { return "claims.escalation.opened" }

// ClaimFinalized is published after a reviewer decision has been stored
// and the linked conversation context cleared.
type ClaimFinalized struct {
	BaseEvent
	ClaimID       uuid.UUID `json:"claimId"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	TransactionID uuid.UUID `json:"transactionId"`
	CompanyID     uuid.UUID `json:"companyId"`
	ReviewedBy    string    `json:"reviewedBy,omitempty"`
}

func (e ClaimFinalized) EventName() string { return "claims.claim.finalized" }

// PolicyRefined is published when a reviewer correction rewrote a company policy.
type PolicyRefined struct {
	BaseEvent
	CompanyID uuid.UUID `json:"companyId"`
	Policy    string    `json:"policy"`
}

func (e PolicyRefined) EventName() string { return "claims.policy.refined" }

// PolicyRefinementDeferred is published when the language service could not
// rewrite a policy inline and the rewrite should be retried in the background.
type PolicyRefinementDeferred struct {
	BaseEvent
	CompanyID    uuid.UUID `json:"companyId"`
	IssueContext string    `json:"issueContext"`
	Correction   string    `json:"correction"`
}

func (e PolicyRefinementDeferred) EventName() string { return "claims.policy.refinement_deferred" }

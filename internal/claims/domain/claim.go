// Package domain provides the core business rules for the claims bounded context:
// claim kinds, their lifecycle states and the decision rules applied by staff.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies which of the three claim record shapes a ClaimRecord carries.
type Kind string

const (
	KindRefund     Kind = "refund"
	KindEscalation Kind = "escalation"
	KindPayout     Kind = "payout"
)

// Status is a lifecycle state. The valid set depends on the Kind.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusApproved       Status = "APPROVED"
	StatusRejected       Status = "REJECTED"
	StatusEscalated      Status = "ESCALATED"
	StatusOpen           Status = "OPEN"
	StatusReadyForPayout Status = "READY_FOR_PAYOUT"
	StatusPaid           Status = "PAID"
)

// DecisionDeclined is the reviewer-facing spelling of a rejection.
const DecisionDeclined = "DECLINED"

// activeStatuses are the states a reviewer can still act on.
var activeStatuses = map[Kind]map[Status]bool{
	KindRefund:     {StatusPending: true},
	KindEscalation: {StatusOpen: true},
	KindPayout:     {StatusReadyForPayout: true},
}

// terminalStatuses are the states a decision may move a record into.
// ESCALATED refunds are written by the assistant only and are never a decision target.
var terminalStatuses = map[Kind]map[Status]bool{
	KindRefund:     {StatusApproved: true, StatusRejected: true},
	KindEscalation: {StatusApproved: true, StatusRejected: true},
	KindPayout:     {StatusPaid: true, StatusRejected: true},
}

// ClaimRecord is one row of refund_claims, escalations or payout_queue.
// Fields that a kind does not carry stay at their zero value.
type ClaimRecord struct {
	ID            uuid.UUID
	Kind          Kind
	TransactionID uuid.UUID
	CompanyID     uuid.UUID
	Status        Status
	// Reasoning holds the refund reasoning or the escalation reason.
	Reasoning   string
	EvidenceRef *string
	Transcript  *string
	CustomerID  *string
	AmountCents int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParseKind accepts a kind in any case.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindRefund:
		return KindRefund, nil
	case KindEscalation:
		return KindEscalation, nil
	case KindPayout:
		return KindPayout, nil
	}
	return "", fmt.Errorf("unknown claim kind %q", raw)
}

// IsActive reports whether a record of kind in status still awaits a reviewer.
func IsActive(kind Kind, status Status) bool {
	return activeStatuses[kind][status]
}

// IsTerminal reports whether status is a final state for kind.
func IsTerminal(kind Kind, status Status) bool {
	return terminalStatuses[kind][status]
}

// Decisions lists the decisions a reviewer may submit for kind.
func Decisions(kind Kind) []string {
	out := make([]string, 0, len(terminalStatuses[kind])+1)
	for _, status := range []Status{StatusApproved, StatusPaid, StatusRejected} {
		if terminalStatuses[kind][status] {
			out = append(out, string(status))
		}
	}
	if len(out) == 0 {
		return out
	}
	return append(out, DecisionDeclined)
}

// ResolveDecision maps a reviewer decision to the status written for kind.
// DECLINED becomes REJECTED; every other value is taken verbatim (upper-cased)
// and must be a terminal status of the kind.
func ResolveDecision(kind Kind, decision string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(decision))
	if normalized == DecisionDeclined {
		return StatusRejected, nil
	}

	status := Status(normalized)
	if !IsTerminal(kind, status) {
		return "", fmt.Errorf("decision %q is not valid for a %s claim", decision, kind)
	}
	return status, nil
}

// IsDeclined reports whether a raw decision is a rejection.
func IsDeclined(decision string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(decision))
	return normalized == DecisionDeclined || normalized == string(StatusRejected)
}

// FeedsPolicy reports whether a declined decision on kind should refine the
// company policy. Escalations are judgement calls and never do.
func FeedsPolicy(kind Kind) bool {
	return kind == KindRefund || kind == KindPayout
}

// ActiveStatus returns the single awaiting-review status of kind.
func ActiveStatus(kind Kind) Status {
	switch kind {
	case KindRefund:
		return StatusPending
	case KindEscalation:
		return StatusOpen
	case KindPayout:
		return StatusReadyForPayout
	}
	return ""
}

package domain

import "strings"

// ActionKind is a structured decision emitted by the assistant.
type ActionKind string

const (
	ActionRefund   ActionKind = "REFUND"
	ActionEscalate ActionKind = "ESCALATE"
	ActionReject   ActionKind = "REJECT"
)

// Action is a recognized decision block.
type Action struct {
	Kind ActionKind
	// Reason is free text from the assistant; empty when absent.
	Reason string
	// TransactionRef is either an internal transaction id or the customer's
	// free-text order reference; empty when absent.
	TransactionRef string
}

// ParseActionKind returns the kind for raw when it is one of the recognized values.
func ParseActionKind(raw string) (ActionKind, bool) {
	switch ActionKind(strings.ToUpper(strings.TrimSpace(raw))) {
	case ActionRefund:
		return ActionRefund, true
	case ActionEscalate:
		return ActionEscalate, true
	case ActionReject:
		return ActionReject, true
	}
	return "", false
}

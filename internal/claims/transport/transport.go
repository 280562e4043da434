// Package transport holds the request and response shapes of the claims API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurn is a prior message supplied by the chat client.
type ChatTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"max=8000"`
}

// ChatRequest is one customer turn.
type ChatRequest struct {
	Message       string     `json:"message" validate:"required,notblank,max=4000"`
	History       []ChatTurn `json:"history" validate:"max=50,dive"`
	ImageAnalysis string     `json:"image_analysis" validate:"max=4000"`
	EvidenceRef   *string    `json:"evidence_ref" validate:"omitempty,max=512"`
	CustomerID    *string    `json:"customer_id" validate:"omitempty,max=128"`
	CompanyID     *uuid.UUID `json:"company_id"`
}

// ChatAction mirrors a recognized decision block.
type ChatAction struct {
	Action        string `json:"action"`
	Reason        string `json:"reason"`
	TransactionID string `json:"transaction_id"`
}

// DashboardEvent is one entry for the live dashboard.
type DashboardEvent struct {
	Type     string `json:"type"`
	Icon     string `json:"icon"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// ChatResponse is the visible reply plus dashboard side effects.
type ChatResponse struct {
	Reply         string           `json:"reply"`
	Action        *ChatAction      `json:"action,omitempty"`
	Events        []DashboardEvent `json:"events"`
	ImageAnalysis string           `json:"image_analysis,omitempty"`
}

// EvidenceResponse is returned after an evidence photo was stored and analyzed.
type EvidenceResponse struct {
	EvidenceRef        string `json:"evidence_ref,omitempty"`
	Analysis           string `json:"analysis"`
	VerificationFailed bool   `json:"verification_failed"`
}

// DecisionRequest is a reviewer verdict.
type DecisionRequest struct {
	Decision   string `json:"decision" validate:"required,notblank,max=32"`
	Correction string `json:"correction" validate:"max=2000"`
}

// DecisionResponse reports the stored status and a refined policy, if any.
type DecisionResponse struct {
	Status    string  `json:"status"`
	NewPolicy *string `json:"new_policy,omitempty"`
}

// ClaimResponse is a claim as shown to reviewers.
type ClaimResponse struct {
	ID            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	TransactionID uuid.UUID `json:"transaction_id"`
	OrderRef      string    `json:"order_ref"`
	Status        string    `json:"status"`
	Reasoning     string    `json:"reasoning,omitempty"`
	AmountCents   int64     `json:"amount_cents"`
	CustomerID    *string   `json:"customer_id,omitempty"`
	Transcript    *string   `json:"transcript,omitempty"`
	AIReason      *string   `json:"ai_reason,omitempty"`
	EvidenceRef   *string   `json:"evidence_ref,omitempty"`
	EvidenceURL   *string   `json:"evidence_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PendingResponse is the reviewer work queue.
type PendingResponse struct {
	Refunds     []ClaimResponse `json:"refunds"`
	Escalations []ClaimResponse `json:"escalations"`
	Payouts     []ClaimResponse `json:"payouts"`
}

// PolicyResponse carries the policy currently in effect.
type PolicyResponse struct {
	Policy string `json:"policy"`
}

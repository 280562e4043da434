package domain

// ClaimView is a claim record as shown to reviewers, enriched with the
// conversation context carried by the linked refund record.
type ClaimView struct {
	Record                 ClaimRecord
	OrderRef               string
	TransactionAmountCents int64
	// Context fields come from the latest refund record of the transaction
	// and are nil once a decision has cleared them.
	Transcript  *string
	EvidenceRef *string
	AIReason    *string
}

// IssueContext summarizes what the assistant saw, for policy refinement.
func (v ClaimView) IssueContext() string {
	reason := v.Record.Reasoning
	if v.AIReason != nil && *v.AIReason != "" {
		reason = *v.AIReason
	}
	ctx := "Order " + v.OrderRef + " (" + string(v.Record.Kind) + ")"
	if reason != "" {
		ctx += "\nAI reasoning: " + reason
	}
	if v.Transcript != nil && *v.Transcript != "" {
		ctx += "\nTranscript:\n" + *v.Transcript
	}
	return ctx
}

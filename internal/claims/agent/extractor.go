package agent

import (
	"encoding/json"
	"regexp"
	"strings"

	"claimdesk_backend/internal/claims/domain"
)

// fencedBlock captures an optional language tag and the block body.
var fencedBlock = regexp.MustCompile("(?s)```[ \\t]*([A-Za-z0-9_-]*)[ \\t]*\\r?\\n?(.*?)```")

// Extraction is the parsed form of a raw assistant reply.
type Extraction struct {
	// CleanText is the reply shown to the customer.
	CleanText string
	// Transcript is the reply with every decision block removed.
	Transcript string
	// Action is nil when the reply carries no recognized decision.
	Action *domain.Action
}

type decisionBlock struct {
	Action        *string `json:"action"`
	Reason        *string `json:"reason"`
	TransactionID *string `json:"transaction_id"`
}

// Extract splits raw into visible text and an optional decision. The first
// fenced block is authoritative and the text before it is the reply. A block
// that fails to parse, or names an unknown action, yields no action.
func Extract(raw string) Extraction {
	out := Extraction{Transcript: StripDecisions(raw)}

	loc := fencedBlock.FindStringSubmatchIndex(raw)
	if loc == nil {
		out.CleanText = out.Transcript
		return out
	}

	out.CleanText = strings.TrimSpace(raw[:loc[0]])
	out.Action = parseDecision(raw[loc[4]:loc[5]])
	return out
}

// StripDecisions removes every fenced block from raw. When raw has no fences
// at all, a decision object the model forgot to fence is removed from the
// end instead.
func StripDecisions(raw string) string {
	if !strings.Contains(raw, "```") {
		return strings.TrimSpace(trimTrailingDecision(raw))
	}
	return strings.TrimSpace(fencedBlock.ReplaceAllString(raw, ""))
}

// trimTrailingDecision drops a JSON object with an "action" key that ends
// raw. Braces elsewhere in the prose are left alone.
func trimTrailingDecision(raw string) string {
	text := strings.TrimRight(raw, " \t\r\n")
	if !strings.HasSuffix(text, "}") {
		return raw
	}
	for i := strings.LastIndex(text, "{"); i >= 0; i = strings.LastIndex(text[:i], "{") {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text[i:]), &fields); err != nil {
			continue
		}
		if _, ok := fields["action"]; ok {
			return text[:i]
		}
		return raw
	}
	return raw
}

func parseDecision(body string) *domain.Action {
	var block decisionBlock
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &block); err != nil {
		return nil
	}
	if block.Action == nil {
		return nil
	}

	kind, ok := domain.ParseActionKind(*block.Action)
	if !ok {
		return nil
	}

	return &domain.Action{
		Kind:           kind,
		Reason:         strings.TrimSpace(deref(block.Reason)),
		TransactionRef: strings.TrimSpace(deref(block.TransactionID)),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

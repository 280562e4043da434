package agent

import (
	"testing"

	"claimdesk_backend/internal/claims/domain"
)

func TestExtractFencedRefund(t *testing.T) {
	raw := "I'm sorry about the damage. Your refund is on its way.\n\n```json\n{\"action\":\"REFUND\",\"reason\":\"damage verified\",\"transaction_id\":\"AB12\"}\n```"

	got := Extract(raw)
	if got.CleanText != "I'm sorry about the damage. Your refund is on its way." {
		t.Fatalf("unexpected clean text %q", got.CleanText)
	}
	if got.Action == nil {
		t.Fatalf("expected an action")
	}
	want := domain.Action{Kind: domain.ActionRefund, Reason: "damage verified", TransactionRef: "AB12"}
	if *got.Action != want {
		t.Fatalf("action = %+v, want %+v", *got.Action, want)
	}
	if got.Transcript != got.CleanText {
		t.Fatalf("transcript should equal the reply without the block, got %q", got.Transcript)
	}
}

func TestExtractBareFenceAndFirstBlockWins(t *testing.T) {
	raw := "Escalating.\n```\n{\"action\":\"ESCALATE\",\"reason\":\"unclear\"}\n```\nmore\n```json\n{\"action\":\"REFUND\"}\n```"

	got := Extract(raw)
	if got.Action == nil || got.Action.Kind != domain.ActionEscalate {
		t.Fatalf("expected first block ESCALATE, got %+v", got.Action)
	}
	if got.Action.TransactionRef != "" {
		t.Fatalf("absent transaction id should default to empty, got %q", got.Action.TransactionRef)
	}
	if got.CleanText != "Escalating." {
		t.Fatalf("unexpected clean text %q", got.CleanText)
	}
	if got.Transcript != "Escalating.\n\nmore" {
		t.Fatalf("every fenced block should be stripped from transcript, got %q", got.Transcript)
	}
}

func TestExtractUnknownActionIsIgnored(t *testing.T) {
	raw := "Here's a voucher.\n```json\n{\"action\":\"VOUCHER\",\"reason\":\"goodwill\"}\n```"

	got := Extract(raw)
	if got.Action != nil {
		t.Fatalf("unknown action kinds must be ignored, got %+v", got.Action)
	}
	if got.CleanText != "Here's a voucher." {
		t.Fatalf("unexpected clean text %q", got.CleanText)
	}
}

func TestExtractMalformedBlockYieldsNoAction(t *testing.T) {
	for _, raw := range []string{
		"ok\n```json\n{\"action\": REFUND}\n```",
		"ok\n```json\n[]\n```",
		"ok\n```json\n{\"reason\":\"missing action\"}\n```",
		"ok\n```json\n{\"action\":null}\n```",
	} {
		if got := Extract(raw); got.Action != nil {
			t.Fatalf("Extract(%q) expected no action, got %+v", raw, got.Action)
		}
	}
}

func TestExtractNullFieldsDefaultToEmpty(t *testing.T) {
	got := Extract("```json\n{\"action\":\"reject\",\"reason\":null,\"transaction_id\":null}\n```")
	if got.Action == nil || got.Action.Kind != domain.ActionReject {
		t.Fatalf("expected REJECT, got %+v", got.Action)
	}
	if got.Action.Reason != "" || got.Action.TransactionRef != "" {
		t.Fatalf("null fields should be empty, got %+v", got.Action)
	}
	if got.CleanText != "" {
		t.Fatalf("expected empty clean text, got %q", got.CleanText)
	}
}

func TestExtractBareTrailingDecisionIsStrippedButNotActedOn(t *testing.T) {
	raw := "We will refund you.\n{\"action\": \"REFUND\", \"reason\": \"ok\", \"transaction_id\": \"AB12\"}"

	got := Extract(raw)
	if got.Action != nil {
		t.Fatalf("unfenced decisions must not be acted on, got %+v", got.Action)
	}
	if got.Transcript != "We will refund you." {
		t.Fatalf("bare fragment should be stripped from transcript, got %q", got.Transcript)
	}
	if got.CleanText != "We will refund you." {
		t.Fatalf("bare fragment should be hidden from the reply, got %q", got.CleanText)
	}
}

func TestExtractKeepsBracesInProse(t *testing.T) {
	raw := "Use the form {order number} to file. Sorry for the trouble.\n{\"action\":\"REJECT\",\"reason\":\"outside window\"}"
	got := Extract(raw)
	if got.CleanText != "Use the form {order number} to file. Sorry for the trouble." {
		t.Fatalf("prose before the trailing object must survive, got %q", got.CleanText)
	}
	if got.Transcript != got.CleanText {
		t.Fatalf("unexpected transcript %q", got.Transcript)
	}

	raw = "Sure {\"action\":\"REFUND\"} and then later `code` } more"
	if got := Extract(raw); got.CleanText != raw || got.Action != nil {
		t.Fatalf("object in the middle of the reply must be left alone, got %+v", got)
	}

	raw = "Thanks! {\"note\":\"no decision\"}"
	if got := Extract(raw); got.CleanText != raw {
		t.Fatalf("trailing object without an action must be kept, got %q", got.CleanText)
	}
}

func TestExtractPlainReply(t *testing.T) {
	got := Extract("  Could you share your order reference?  ")
	if got.Action != nil || got.CleanText != "Could you share your order reference?" {
		t.Fatalf("unexpected extraction %+v", got)
	}
}

package domain

import (
	"strings"
	"testing"
)

func TestResolveDecision(t *testing.T) {
	cases := []struct {
		kind     Kind
		decision string
		want     Status
		wantErr  bool
	}{
		{KindRefund, "DECLINED", StatusRejected, false},
		{KindRefund, "declined", StatusRejected, false},
		{KindRefund, "approved", StatusApproved, false},
		{KindEscalation, "APPROVED", StatusApproved, false},
		{KindEscalation, "DECLINED", StatusRejected, false},
		{KindPayout, "PAID", StatusPaid, false},
		{KindPayout, " paid ", StatusPaid, false},
		{KindPayout, "APPROVED", "", true},
		{KindEscalation, "PAID", "", true},
		{KindRefund, "ESCALATED", "", true},
		{KindRefund, "PENDING", "", true},
		{KindRefund, "", "", true},
	}

	for _, tc := range cases {
		got, err := ResolveDecision(tc.kind, tc.decision)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ResolveDecision(%s, %q) expected error, got %s", tc.kind, tc.decision, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ResolveDecision(%s, %q) unexpected error: %v", tc.kind, tc.decision, err)
		}
		if got != tc.want {
			t.Fatalf("ResolveDecision(%s, %q) = %s, want %s", tc.kind, tc.decision, got, tc.want)
		}
	}
}

func TestActiveAndTerminalStatusesAreDisjoint(t *testing.T) {
	for kind, statuses := range activeStatuses {
		for status := range statuses {
			if IsTerminal(kind, status) {
				t.Fatalf("%s status %s is both active and terminal", kind, status)
			}
		}
	}
}

func TestDecisions(t *testing.T) {
	cases := map[Kind]string{
		KindRefund:      "APPROVED,REJECTED,DECLINED",
		KindEscalation:  "APPROVED,REJECTED,DECLINED",
		KindPayout:      "PAID,REJECTED,DECLINED",
		Kind("voucher"): "",
	}
	for kind, want := range cases {
		if got := strings.Join(Decisions(kind), ","); got != want {
			t.Fatalf("Decisions(%s) = %q, want %q", kind, got, want)
		}
	}
}

func TestParseKind(t *testing.T) {
	if kind, err := ParseKind("Payout"); err != nil || kind != KindPayout {
		t.Fatalf("expected payout, got %q (%v)", kind, err)
	}
	if _, err := ParseKind("voucher"); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestFeedsPolicy(t *testing.T) {
	if !FeedsPolicy(KindRefund) || !FeedsPolicy(KindPayout) {
		t.Fatalf("refund and payout declines must feed the policy")
	}
	if FeedsPolicy(KindEscalation) {
		t.Fatalf("escalation declines must not feed the policy")
	}
}

func TestNormalizeReference(t *testing.T) {
	if got := NormalizeReference("  #AB12 "); got != "AB12" {
		t.Fatalf("NormalizeReference = %q", got)
	}
}

func TestCompanyPolicyOrDefault(t *testing.T) {
	if got := (Company{}).PolicyOrDefault(); got != DefaultPolicy {
		t.Fatalf("expected default policy, got %q", got)
	}
	if got := (Company{ReturnPolicy: "30 days"}).PolicyOrDefault(); got != "30 days" {
		t.Fatalf("expected company policy, got %q", got)
	}
}

func TestParseActionKind(t *testing.T) {
	if kind, ok := ParseActionKind("refund"); !ok || kind != ActionRefund {
		t.Fatalf("expected REFUND, got %q", kind)
	}
	if _, ok := ParseActionKind("VOUCHER"); ok {
		t.Fatalf("unknown action kinds must not be recognized")
	}
}

func TestActiveStatusMatchesActiveSet(t *testing.T) {
	for _, kind := range []Kind{KindRefund, KindEscalation, KindPayout} {
		if !IsActive(kind, ActiveStatus(kind)) {
			t.Fatalf("ActiveStatus(%s) = %s is not active", kind, ActiveStatus(kind))
		}
	}
}

func TestClaimViewIssueContextPrefersLinkedReason(t *testing.T) {
	reason := "damaged on arrival"
	transcript := "User: it broke\nAI: sorry"
	view := ClaimView{
		Record:     ClaimRecord{Kind: KindPayout},
		OrderRef:   "AB12",
		AIReason:   &reason,
		Transcript: &transcript,
	}
	got := view.IssueContext()
	want := "Order AB12 (payout)\nAI reasoning: damaged on arrival\nTranscript:\nUser: it broke\nAI: sorry"
	if got != want {
		t.Fatalf("IssueContext = %q, want %q", got, want)
	}
}

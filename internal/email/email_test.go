package email

import (
	"strings"
	"testing"
	"time"
)

func TestEscalationContent(t *testing.T) {
	subject, body, err := escalationContent(EscalationNotice{
		CompanyName:  "Acme",
		OrderRef:     "AB12",
		AmountCents:  4599,
		CustomerID:   "cust-7",
		Reason:       "Photo <script>alert(1)</script> unclear",
		OpenedAt:     time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		DashboardURL: "https://desk.example.com/dashboard",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if subject != "Claim escalated for order AB12" {
		t.Fatalf("unexpected subject %q", subject)
	}
	for _, want := range []string{"AB12", "$45.99", "cust-7", "2026-03-01 10:30 UTC", "https://desk.example.com/dashboard"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q", want)
		}
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("reason must be escaped")
	}
}

func TestSMTPMessageHeaders(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "desk@example.com", "Claim Desk")
	msg, err := s.newMessage("support@acme.test", "hello", "<p>x</p>")
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	if got := msg.GetTo(); len(got) != 1 || got[0].Address != "support@acme.test" {
		t.Fatalf("unexpected recipients %v", got)
	}

	if _, err := s.newMessage("not an address", "hello", "x"); err == nil {
		t.Fatalf("expected invalid recipient to fail")
	}
}

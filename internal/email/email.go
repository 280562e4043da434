// Package email delivers staff notifications for claims that need a human.
package email

import (
	"context"
	"time"
)

// EscalationNotice is the content of an escalation email.
type EscalationNotice struct {
	CompanyName  string
	OrderRef     string
	AmountCents  int64
	CustomerID   string
	Reason       string
	EscalationID string
	OpenedAt     time.Time
	DashboardURL string
}

type Sender interface {
	SendEscalationEmail(ctx context.Context, toEmail string, notice EscalationNotice) error
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendEscalationEmail(context.Context, string, EscalationNotice) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)

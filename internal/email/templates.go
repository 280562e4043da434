package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type escalationEmailData struct {
	baseEmailData
	CompanyName     string
	OrderRef        string
	AmountFormatted string
	CustomerID      string
	Reason          string
	OpenedAt        string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrency(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func escalationContent(notice EscalationNotice) (string, string, error) {
	data := escalationEmailData{
		baseEmailData: baseEmailData{
			Title:      "Claim escalated",
			Heading:    "A claim needs your review",
			Subheading: notice.CompanyName,
			CTALabel:   "Open dashboard",
			CTAURL:     notice.DashboardURL,
		},
		CompanyName:     notice.CompanyName,
		OrderRef:        notice.OrderRef,
		AmountFormatted: formatCurrency(notice.AmountCents),
		CustomerID:      notice.CustomerID,
		Reason:          notice.Reason,
	}
	if !notice.OpenedAt.IsZero() {
		data.OpenedAt = notice.OpenedAt.UTC().Format("2006-01-02 15:04 MST")
	}

	content, err := renderEmailTemplate("escalation.html", data)
	if err != nil {
		return "", "", err
	}
	return fmt.Sprintf(subjectEscalationFmt, notice.OrderRef), content, nil
}

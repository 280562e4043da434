package email

const (
	subjectEscalationFmt = "Claim escalated for order %s"
)

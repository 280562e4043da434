// Package dashboard turns chat outcomes into live dashboard events, keeps the
// process-wide resolution stats and fans events out to subscribers.
package dashboard

import (
	"strings"

	"claimdesk_backend/internal/claims/domain"

	"github.com/google/uuid"
)

const (
	eventType = "event"

	iconImage       = "image"
	iconBlocked     = "block"
	iconReceipt     = "receipt_long"
	titleImage      = "Image Analysis"
	subtitleDone    = "Completed"
	subtitleBlocked = "Rejected"

	// failedMarker in an image analysis means the photo was judged fake.
	failedMarker = "Failed"
)

// Event is one ephemeral dashboard entry.
type Event struct {
	Type     string `json:"type"`
	Icon     string `json:"icon"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Broadcast is a batch of events produced by one chat turn. A nil CompanyID
// reaches every subscriber.
type Broadcast struct {
	CompanyID *uuid.UUID `json:"companyId,omitempty"`
	Events    []Event    `json:"events"`
}

// Events builds the dashboard entries for a turn: the image analysis result
// first, then the recognized action.
func Events(action *domain.Action, analysis string) []Event {
	events := make([]Event, 0, 2)

	if strings.TrimSpace(analysis) != "" {
		icon, subtitle := iconImage, subtitleDone
		if strings.Contains(analysis, failedMarker) {
			icon, subtitle = iconBlocked, subtitleBlocked
		}
		events = append(events, Event{
			Type:     eventType,
			Icon:     icon,
			Title:    titleImage,
			Subtitle: subtitle,
		})
	}

	if action != nil {
		events = append(events, Event{
			Type:     eventType,
			Icon:     iconReceipt,
			Title:    string(action.Kind),
			Subtitle: action.Reason,
		})
	}

	return events
}

package ingest

import "github.com/vani-hq/vani/internal/database/models"

// Provider names as stored on audit rows.
const (
	ProviderResend = "resend"
	ProviderTwilio = "twilio"
	ProviderCal    = "cal"
)

// emailEvents maps Resend event types into the internal vocabulary.
var emailEvents = map[string]models.EventStatus{
	"email.sent":       models.StatusSent,
	"email.delivered":  models.StatusDelivered,
	"email.opened":     models.StatusOpened,
	"email.clicked":    models.StatusClicked,
	"email.received":   models.StatusReplied,
	"email.bounced":    models.StatusBounced,
	"email.complained": models.StatusBounced,
}

// whatsappStatuses maps Twilio message status callbacks. An inbound
// "received" message from the target counts as a reply.
var whatsappStatuses = map[string]models.EventStatus{
	"queued":      models.StatusScheduled,
	"sent":        models.StatusSent,
	"delivered":   models.StatusDelivered,
	"read":        models.StatusOpened,
	"received":    models.StatusReplied,
	"failed":      models.StatusBounced,
	"undelivered": models.StatusBounced,
}

// bookingEvents maps Cal.com trigger events.
var bookingEvents = map[string]models.EventStatus{
	"BOOKING_CREATED":           models.StatusScheduled,
	"BOOKING_RESCHEDULED":       models.StatusScheduled,
	"BOOKING_CANCELLED":         models.StatusCancelled,
	"BOOKING_NO_SHOW_UPDATED":   models.StatusNoShow,
	"MEETING_ENDED":             models.StatusCompleted,
	"BOOKING_PAID":              models.StatusCompleted,
	"BOOKING_REQUESTED":         models.StatusScheduled,
	"BOOKING_PAYMENT_INITIATED": models.StatusScheduled,
}

// notable is the subset of statuses that triggers an operator notification.
var notable = map[models.EventStatus]bool{
	models.StatusReplied:   true,
	models.StatusCompleted: true,
	models.StatusScheduled: true,
}

func MapEmailEvent(eventType string) (models.EventStatus, bool) {
	s, ok := emailEvents[eventType]
	return s, ok
}

func MapWhatsAppStatus(status string) (models.EventStatus, bool) {
	s, ok := whatsappStatuses[status]
	return s, ok
}

func MapBookingEvent(trigger string) (models.EventStatus, bool) {
	s, ok := bookingEvents[trigger]
	return s, ok
}

// Notable reports whether the status should alert the operator channel.
func Notable(s models.EventStatus) bool {
	return notable[s]
}

package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/pkg/config"
)

// WebhookHandler is the unauthenticated ingestion surface for provider
// callbacks. Every endpoint verifies the provider signature before touching
// the body; a failed check answers 401 and processes nothing.
type WebhookHandler struct {
	ingestService *ingest.Service
	logger        *slog.Logger
	resendCfg     config.ResendConfig
	twilioCfg     config.TwilioConfig
	calendarCfg   config.CalendarConfig
}

func NewWebhookHandler(ingestService *ingest.Service, logger *slog.Logger, resendCfg config.ResendConfig, twilioCfg config.TwilioConfig, calendarCfg config.CalendarConfig) *WebhookHandler {
	return &WebhookHandler{
		ingestService: ingestService,
		logger:        logger,
		resendCfg:     resendCfg,
		twilioCfg:     twilioCfg,
		calendarCfg:   calendarCfg,
	}
}

type resendWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		EmailID string `json:"email_id"`
	} `json:"data"`
}

// Resend handles POST /api/webhooks/resend (email delivery and engagement
// events).
func (h *WebhookHandler) Resend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	if err := ingest.VerifyResendSignature(
		h.resendCfg.WebhookSecret,
		r.Header.Get("svix-id"),
		r.Header.Get("svix-timestamp"),
		body,
		r.Header.Get("svix-signature"),
	); err != nil {
		h.logger.Warn("rejected resend webhook", "error", err)
		writeJSON(w, http.StatusUnauthorized, dto.Error("Invalid webhook signature"))
		return
	}

	var payload resendWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid payload"))
		return
	}

	status, known := ingest.MapEmailEvent(payload.Type)
	if !known {
		// Unknown event types are acknowledged so the provider stops
		// redelivering them.
		h.logger.Info("ignoring unknown resend event", "type", payload.Type)
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
		return
	}

	if err := h.ingestService.ProcessMessageEvent(r.Context(), ingest.MessageEvent{
		Provider:      ingest.ProviderResend,
		RawType:       payload.Type,
		Status:        status,
		CorrelationID: payload.Data.EmailID,
		Payload:       string(body),
	}); err != nil {
		h.logger.Error("failed to process resend event", "type", payload.Type, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to process event"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// Twilio handles POST /api/webhooks/twilio (WhatsApp status callbacks and
// inbound messages, form-encoded per Twilio's callback contract).
func (h *WebhookHandler) Twilio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	if err := ingest.VerifyTwilioSignature(
		h.twilioCfg.AuthToken,
		requestURL(r),
		r.PostForm,
		r.Header.Get("X-Twilio-Signature"),
	); err != nil {
		h.logger.Warn("rejected twilio webhook", "error", err)
		writeJSON(w, http.StatusUnauthorized, dto.Error("Invalid webhook signature"))
		return
	}

	messageSid := r.PostForm.Get("MessageSid")
	rawStatus := r.PostForm.Get("MessageStatus")
	if rawStatus == "" && r.PostForm.Get("Body") != "" {
		// An inbound message has no status field; it is the target replying.
		rawStatus = "received"
	}

	status, known := ingest.MapWhatsAppStatus(rawStatus)
	if !known {
		h.logger.Info("ignoring unknown twilio status", "status", rawStatus)
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
		return
	}

	payload, _ := json.Marshal(formToMap(r.PostForm))
	if err := h.ingestService.ProcessMessageEvent(r.Context(), ingest.MessageEvent{
		Provider:      ingest.ProviderTwilio,
		RawType:       rawStatus,
		Status:        status,
		CorrelationID: messageSid,
		Payload:       string(payload),
	}); err != nil {
		h.logger.Error("failed to process twilio event", "status", rawStatus, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to process event"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

type calWebhookPayload struct {
	TriggerEvent string `json:"triggerEvent"`
	Payload      struct {
		UID       string    `json:"uid"`
		BookingID int       `json:"bookingId"`
		Title     string    `json:"title"`
		StartTime time.Time `json:"startTime"`
		EndTime   time.Time `json:"endTime"`
		Attendees []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"attendees"`
	} `json:"payload"`
}

// Cal handles POST /api/webhooks/cal (booking lifecycle events).
func (h *WebhookHandler) Cal(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	if err := ingest.VerifyCalSignature(
		h.calendarCfg.WebhookSecret,
		body,
		r.Header.Get("X-Cal-Signature-256"),
	); err != nil {
		h.logger.Warn("rejected cal webhook", "error", err)
		writeJSON(w, http.StatusUnauthorized, dto.Error("Invalid webhook signature"))
		return
	}

	var payload calWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid payload"))
		return
	}

	status, known := ingest.MapBookingEvent(payload.TriggerEvent)
	if !known {
		h.logger.Info("ignoring unknown cal trigger", "trigger", payload.TriggerEvent)
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
		return
	}

	attendeeEmail := ""
	if len(payload.Payload.Attendees) > 0 {
		attendeeEmail = payload.Payload.Attendees[0].Email
	}

	ev := ingest.BookingEvent{
		RawType:       payload.TriggerEvent,
		Status:        status,
		BookingUID:    payload.Payload.UID,
		Title:         payload.Payload.Title,
		StartsAt:      payload.Payload.StartTime,
		EndsAt:        payload.Payload.EndTime,
		AttendeeEmail: attendeeEmail,
		Payload:       string(body),
	}
	if ev.BookingUID == "" {
		writeJSON(w, http.StatusBadRequest, dto.Error("Missing booking uid"))
		return
	}

	if err := h.ingestService.ProcessBookingEvent(r.Context(), ev); err != nil {
		h.logger.Error("failed to process cal event", "trigger", payload.TriggerEvent, "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to process event"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
}

// requestURL reconstructs the public URL Twilio signed, honoring the proxy
// protocol header.
func requestURL(r *http.Request) string {
	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func formToMap(form url.Values) map[string]string {
	m := make(map[string]string, len(form))
	for k := range form {
		m[k] = form.Get(k)
	}
	return m
}

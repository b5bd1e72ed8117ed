package handlers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vani-hq/vani/internal/api/handlers"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/internal/testutil"
	"github.com/vani-hq/vani/pkg/config"
	"gorm.io/gorm"
)

type noopNotifier struct{}

func (noopNotifier) NotifyEvent(context.Context, ingest.EventSummary) error { return nil }

const (
	testResendSecret = "whsec_dGVzdC1yZXNlbmQta2V5" // "test-resend-key"
	testTwilioToken  = "test-twilio-auth-token"
	testCalSecret    = "test-cal-secret"
)

func newWebhookHandler(t *testing.T) (*handlers.WebhookHandler, *gorm.DB, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ingest.NewService(tc.DB, logger, noopNotifier{})
	h := handlers.NewWebhookHandler(svc, logger,
		config.ResendConfig{WebhookSecret: testResendSecret},
		config.TwilioConfig{AuthToken: testTwilioToken},
		config.CalendarConfig{WebhookSecret: testCalSecret},
	)
	return h, tc.DB, tc
}

func signedResendRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	msgID := "msg_test"
	timestamp := "1726000000"

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(testResendSecret, "whsec_"))
	require.NoError(t, err)
	mac := hmac.New(sha256.New, key)
	fmt.Fprintf(mac, "%s.%s.%s", msgID, timestamp, body)
	sig := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/resend", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("svix-id", msgID)
	req.Header.Set("svix-timestamp", timestamp)
	req.Header.Set("svix-signature", sig)
	return req
}

func TestResendWebhook_AdvancesActivity(t *testing.T) {
	h, db, tc := newWebhookHandler(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Ada")
	testutil.CreateTestActivity(t, db, target, models.ChannelEmail, "email-123", tc.SuperUser)

	body := `{"type":"email.delivered","data":{"email_id":"email-123"}}`
	rec := httptest.NewRecorder()
	h.Resend(rec, signedResendRequest(t, body))

	testutil.AssertStatus(t, rec, http.StatusOK)

	var activity models.OutreachActivity
	require.NoError(t, db.Where("correlation_id = ?", "email-123").First(&activity).Error)
	assert.Equal(t, models.StatusDelivered, activity.Status)
}

func TestResendWebhook_BadSignatureRejected(t *testing.T) {
	h, db, _ := newWebhookHandler(t)

	body := `{"type":"email.delivered","data":{"email_id":"email-123"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/resend", strings.NewReader(body))
	req.Header.Set("svix-id", "msg_test")
	req.Header.Set("svix-timestamp", "1726000000")
	req.Header.Set("svix-signature", "v1,Zm9yZ2VkLXNpZ25hdHVyZQ==")

	rec := httptest.NewRecorder()
	h.Resend(rec, req)

	testutil.AssertStatus(t, rec, http.StatusUnauthorized)

	// Nothing is processed on a failed check, not even the audit row.
	var count int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestResendWebhook_UnknownEventAcknowledged(t *testing.T) {
	h, _, _ := newWebhookHandler(t)

	body := `{"type":"email.levitated","data":{"email_id":"email-123"}}`
	rec := httptest.NewRecorder()
	h.Resend(rec, signedResendRequest(t, body))

	testutil.AssertStatus(t, rec, http.StatusOK)
}

func TestResendWebhook_UnknownCorrelationAcknowledged(t *testing.T) {
	h, db, _ := newWebhookHandler(t)

	body := `{"type":"email.delivered","data":{"email_id":"no-such-message"}}`
	rec := httptest.NewRecorder()
	h.Resend(rec, signedResendRequest(t, body))

	testutil.AssertStatus(t, rec, http.StatusOK)

	var audit models.WebhookEvent
	require.NoError(t, db.Where("correlation_id = ?", "no-such-message").First(&audit).Error)
	assert.False(t, audit.ProcessedOK)
}

func signedTwilioRequest(t *testing.T, form url.Values) *http.Request {
	t.Helper()
	fullURL := "https://vani.example.com/api/webhooks/twilio"

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(testTwilioToken))
	mac.Write([]byte(payload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Host = "vani.example.com"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Twilio-Signature", sig)
	return req
}

func TestTwilioWebhook_StatusCallback(t *testing.T) {
	h, db, tc := newWebhookHandler(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Ada")
	testutil.CreateTestActivity(t, db, target, models.ChannelWhatsApp, "SM123", tc.SuperUser)

	rec := httptest.NewRecorder()
	h.Twilio(rec, signedTwilioRequest(t, url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"read"},
	}))

	testutil.AssertStatus(t, rec, http.StatusOK)

	var activity models.OutreachActivity
	require.NoError(t, db.Where("correlation_id = ?", "SM123").First(&activity).Error)
	assert.Equal(t, models.StatusOpened, activity.Status)
}

func TestTwilioWebhook_InboundMessageIsReply(t *testing.T) {
	h, db, tc := newWebhookHandler(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Ada")
	testutil.CreateTestActivity(t, db, target, models.ChannelWhatsApp, "SM456", tc.SuperUser)

	rec := httptest.NewRecorder()
	h.Twilio(rec, signedTwilioRequest(t, url.Values{
		"MessageSid": {"SM456"},
		"Body":       {"Sounds interesting, tell me more"},
		"From":       {"whatsapp:+15551234567"},
	}))

	testutil.AssertStatus(t, rec, http.StatusOK)

	var activity models.OutreachActivity
	require.NoError(t, db.Where("correlation_id = ?", "SM456").First(&activity).Error)
	assert.Equal(t, models.StatusReplied, activity.Status)
}

func TestTwilioWebhook_BadSignatureRejected(t *testing.T) {
	h, _, _ := newWebhookHandler(t)

	form := url.Values{"MessageSid": {"SM123"}, "MessageStatus": {"read"}}
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Host = "vani.example.com"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "forged")

	rec := httptest.NewRecorder()
	h.Twilio(rec, req)

	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}

func TestTwilioWebhook_OversizedBodyRejected(t *testing.T) {
	h, _, _ := newWebhookHandler(t)

	form := url.Values{"MessageSid": {"SM123"}, "Body": {strings.Repeat("a", 2<<20)}}
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/twilio", strings.NewReader(form.Encode()))
	req.Host = "vani.example.com"
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Twilio-Signature", "irrelevant")

	rec := httptest.NewRecorder()
	h.Twilio(rec, req)

	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

func signedCalRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testCalSecret))
	mac.Write([]byte(body))
	sig := hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/cal", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Cal-Signature-256", sig)
	return req
}

func TestCalWebhook_BookingCreatesMeeting(t *testing.T) {
	h, db, tc := newWebhookHandler(t)

	industry := testutil.CreateTestIndustry(t, db, "Fintech")
	target := testutil.CreateTestTarget(t, db, industry, tc.SuperUser, "Ada")

	body := fmt.Sprintf(`{
		"triggerEvent": "BOOKING_CREATED",
		"payload": {
			"uid": "cal-bk-1",
			"title": "Discovery call",
			"startTime": "2026-09-01T10:00:00Z",
			"endTime": "2026-09-01T10:30:00Z",
			"attendees": [{"email": %q, "name": "Ada"}]
		}
	}`, target.Email)

	rec := httptest.NewRecorder()
	h.Cal(rec, signedCalRequest(t, body))

	testutil.AssertStatus(t, rec, http.StatusOK)

	var meeting models.Meeting
	require.NoError(t, db.Where("booking_uid = ?", "cal-bk-1").First(&meeting).Error)
	assert.Equal(t, models.StatusScheduled, meeting.Status)
	assert.Equal(t, target.ID, meeting.TargetID)
}

func TestCalWebhook_BadSignatureRejected(t *testing.T) {
	h, _, _ := newWebhookHandler(t)

	body := `{"triggerEvent":"BOOKING_CREATED","payload":{"uid":"cal-bk-1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/cal", strings.NewReader(body))
	req.Header.Set("X-Cal-Signature-256", "deadbeef")

	rec := httptest.NewRecorder()
	h.Cal(rec, req)

	testutil.AssertStatus(t, rec, http.StatusUnauthorized)
}

func TestCalWebhook_MissingUIDRejected(t *testing.T) {
	h, _, _ := newWebhookHandler(t)

	body := `{"triggerEvent":"BOOKING_CREATED","payload":{"title":"No uid"}}`
	rec := httptest.NewRecorder()
	h.Cal(rec, signedCalRequest(t, body))

	testutil.AssertStatus(t, rec, http.StatusBadRequest)
}

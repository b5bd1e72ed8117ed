package ingest_test

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/ingest"
)

func svixSign(t *testing.T, secret, msgID, timestamp string, body []byte) string {
	t.Helper()
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		t.Fatalf("bad test secret: %v", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID + "." + timestamp + "."))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyResendSignature(t *testing.T) {
	secret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("resend-test-key"))
	body := []byte(`{"type":"email.delivered","data":{"email_id":"msg-1"}}`)
	msgID := "msg_2abc"
	timestamp := "1726000000"

	valid := "v1," + svixSign(t, secret, msgID, timestamp, body)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, ingest.VerifyResendSignature(secret, msgID, timestamp, body, valid))
	})

	t.Run("valid among multiple candidates", func(t *testing.T) {
		header := "v1,Zm9yZ2VkCg== " + valid
		assert.NoError(t, ingest.VerifyResendSignature(secret, msgID, timestamp, body, header))
	})

	t.Run("tampered body", func(t *testing.T) {
		err := ingest.VerifyResendSignature(secret, msgID, timestamp, []byte(`{}`), valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := "whsec_" + base64.StdEncoding.EncodeToString([]byte("someone-else"))
		err := ingest.VerifyResendSignature(other, msgID, timestamp, body, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("empty secret fails closed", func(t *testing.T) {
		err := ingest.VerifyResendSignature("", msgID, timestamp, body, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("unversioned candidate ignored", func(t *testing.T) {
		header := "v2," + svixSign(t, secret, msgID, timestamp, body)
		err := ingest.VerifyResendSignature(secret, msgID, timestamp, body, header)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})
}

func twilioSign(t *testing.T, authToken, fullURL string, form url.Values) string {
	t.Helper()
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	payload := fullURL
	for _, k := range keys {
		payload += k + form.Get(k)
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyTwilioSignature(t *testing.T) {
	authToken := "twilio-auth-token"
	fullURL := "https://vani.example.com/api/webhooks/twilio"
	form := url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"delivered"},
		"To":            {"whatsapp:+15551234567"},
	}
	valid := twilioSign(t, authToken, fullURL, form)

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, ingest.VerifyTwilioSignature(authToken, fullURL, form, valid))
	})

	t.Run("wrong token", func(t *testing.T) {
		err := ingest.VerifyTwilioSignature("other-token", fullURL, form, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("parameter tampered", func(t *testing.T) {
		tampered := url.Values{}
		for k, v := range form {
			tampered[k] = v
		}
		tampered.Set("MessageStatus", "read")
		err := ingest.VerifyTwilioSignature(authToken, fullURL, tampered, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("different URL", func(t *testing.T) {
		err := ingest.VerifyTwilioSignature(authToken, "http://attacker.example/api/webhooks/twilio", form, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("empty token fails closed", func(t *testing.T) {
		err := ingest.VerifyTwilioSignature("", fullURL, form, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})
}

func TestVerifyCalSignature(t *testing.T) {
	secret := "cal-webhook-secret"
	body := []byte(`{"triggerEvent":"BOOKING_CREATED","payload":{"uid":"bk-1"}}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := hex.EncodeToString(mac.Sum(nil))

	t.Run("valid signature", func(t *testing.T) {
		assert.NoError(t, ingest.VerifyCalSignature(secret, body, valid))
	})

	t.Run("sha256 prefix accepted", func(t *testing.T) {
		assert.NoError(t, ingest.VerifyCalSignature(secret, body, "sha256="+valid))
	})

	t.Run("tampered body", func(t *testing.T) {
		err := ingest.VerifyCalSignature(secret, []byte(`{}`), valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})

	t.Run("empty secret fails closed", func(t *testing.T) {
		err := ingest.VerifyCalSignature("", body, valid)
		assert.ErrorIs(t, err, ingest.ErrBadSignature)
	})
}

func TestVocabulary(t *testing.T) {
	t.Run("email events", func(t *testing.T) {
		s, ok := ingest.MapEmailEvent("email.delivered")
		assert.True(t, ok)
		assert.Equal(t, "delivered", string(s))

		_, ok = ingest.MapEmailEvent("email.unheard_of")
		assert.False(t, ok)
	})

	t.Run("whatsapp statuses", func(t *testing.T) {
		s, ok := ingest.MapWhatsAppStatus("read")
		assert.True(t, ok)
		assert.Equal(t, "opened", string(s))

		_, ok = ingest.MapWhatsAppStatus("teleported")
		assert.False(t, ok)
	})

	t.Run("booking events", func(t *testing.T) {
		s, ok := ingest.MapBookingEvent("MEETING_ENDED")
		assert.True(t, ok)
		assert.Equal(t, "completed", string(s))

		_, ok = ingest.MapBookingEvent("BOOKING_LEVITATED")
		assert.False(t, ok)
	})

	t.Run("notable set", func(t *testing.T) {
		for _, s := range []string{"replied", "completed", "scheduled"} {
			assert.True(t, ingest.Notable(models.EventStatus(s)), s)
		}
		for _, s := range []string{"sent", "delivered", "opened", "bounced"} {
			assert.False(t, ingest.Notable(models.EventStatus(s)), s)
		}
	})
}

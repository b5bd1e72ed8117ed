package ingest

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// ErrBadSignature is returned by all verifiers; handlers answer 401 and
// process nothing (fail closed).
var ErrBadSignature = errors.New("webhook signature verification failed")

// VerifyResendSignature checks the svix-style signature Resend attaches to
// webhook deliveries. The signed content is "<id>.<timestamp>.<body>" keyed
// with the base64 portion of the "whsec_" secret; the signature header may
// carry several space-separated "v1,<base64>" candidates.
func VerifyResendSignature(secret string, msgID, timestamp string, body []byte, sigHeader string) error {
	if secret == "" || msgID == "" || timestamp == "" || sigHeader == "" {
		return ErrBadSignature
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, "whsec_"))
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, candidate := range strings.Fields(sigHeader) {
		parts := strings.SplitN(candidate, ",", 2)
		if len(parts) != 2 || parts[0] != "v1" {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return nil
		}
	}
	return ErrBadSignature
}

// VerifyTwilioSignature checks the X-Twilio-Signature header: base64
// HMAC-SHA1 over the full request URL with the POST parameters appended in
// sorted key order, keyed with the account auth token.
func VerifyTwilioSignature(authToken, fullURL string, form url.Values, sigHeader string) error {
	if authToken == "" || sigHeader == "" {
		return ErrBadSignature
	}

	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(form.Get(k))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sigHeader)) {
		return ErrBadSignature
	}
	return nil
}

// VerifyCalSignature checks the X-Cal-Signature-256 header: hex HMAC-SHA256
// over the raw request body.
func VerifyCalSignature(secret string, body []byte, sigHeader string) error {
	if secret == "" || sigHeader == "" {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.TrimPrefix(sigHeader, "sha256="))) {
		return ErrBadSignature
	}
	return nil
}

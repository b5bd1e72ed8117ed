package outreach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/resend/resend-go/v2"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/pkg/config"
	"github.com/vani-hq/vani/pkg/crypto"
	"gorm.io/gorm"
)

var (
	ErrChannelNotConfigured = errors.New("channel provider not configured")
	ErrMissingRecipient     = errors.New("target has no address for this channel")
)

// Sender dispatches outreach messages and records the resulting activity
// with the provider's correlation identifier. Per-industry channel
// credentials take precedence over process-level configuration.
type Sender struct {
	db        *gorm.DB
	logger    *slog.Logger
	encryptor *crypto.Encryptor
	resendCfg config.ResendConfig
	twilioCfg config.TwilioConfig
}

func NewSender(db *gorm.DB, logger *slog.Logger, encryptor *crypto.Encryptor, resendCfg config.ResendConfig, twilioCfg config.TwilioConfig) *Sender {
	return &Sender{
		db:        db,
		logger:    logger,
		encryptor: encryptor,
		resendCfg: resendCfg,
		twilioCfg: twilioCfg,
	}
}

type SendInput struct {
	Target  *models.Target
	Channel models.Channel
	Pitch   *models.GeneratedPitch
	Subject string
	Body    string
	SentBy  *models.User
}

// Send delivers the message on the requested channel and persists the
// activity. LinkedIn has no API send path; it is recorded as a manual
// activity for tracking. Upstream failures are returned to the caller
// without retry.
func (s *Sender) Send(ctx context.Context, input SendInput) (*models.OutreachActivity, error) {
	body := input.Body
	if body == "" && input.Pitch != nil {
		body = input.Pitch.HTMLContent
	}

	var correlationID string
	var err error

	switch input.Channel {
	case models.ChannelEmail:
		correlationID, err = s.sendEmail(ctx, input.Target, input.Subject, body)
	case models.ChannelWhatsApp:
		correlationID, err = s.sendWhatsApp(ctx, input.Target, body)
	case models.ChannelLinkedIn:
		// Recorded only; the operator sends the message by hand.
		correlationID = "manual-" + uuid.NewString()
	default:
		return nil, fmt.Errorf("unknown channel %q", input.Channel)
	}
	if err != nil {
		return nil, err
	}

	activity := models.OutreachActivity{
		TargetID:      input.Target.ID,
		Channel:       input.Channel,
		Status:        models.StatusSent,
		StatusRank:    models.StatusSent.Rank(),
		CorrelationID: correlationID,
		Subject:       input.Subject,
		IndustryID:    input.Target.IndustryID,
		SentByID:      input.SentBy.ID,
		LastEventAt:   time.Now(),
	}
	if input.Pitch != nil {
		activity.PitchID = &input.Pitch.ID
	}

	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		return nil, fmt.Errorf("recording activity: %w", err)
	}

	s.logger.Info("outreach sent",
		"target_id", input.Target.ID,
		"channel", input.Channel,
		"correlation_id", correlationID,
	)

	return &activity, nil
}

func (s *Sender) sendEmail(ctx context.Context, target *models.Target, subject, html string) (string, error) {
	if target.Email == "" {
		return "", ErrMissingRecipient
	}

	apiKey, from := s.resendCfg.APIKey, s.resendCfg.FromAddress
	if cred, err := s.resolveResendCredential(ctx, target.IndustryID); err == nil && cred != nil {
		apiKey, from = cred.APIKey, cred.FromAddress
	}
	if apiKey == "" {
		return "", ErrChannelNotConfigured
	}

	client := resend.NewClient(apiKey)
	sent, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    from,
		To:      []string{target.Email},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return "", fmt.Errorf("sending email: %w", err)
	}
	return sent.Id, nil
}

func (s *Sender) sendWhatsApp(ctx context.Context, target *models.Target, html string) (string, error) {
	if target.Phone == "" {
		return "", ErrMissingRecipient
	}

	sid, token, from := s.twilioCfg.AccountSID, s.twilioCfg.AuthToken, s.twilioCfg.WhatsAppFrom
	if cred, err := s.resolveTwilioCredential(ctx, target.IndustryID); err == nil && cred != nil {
		sid, token, from = cred.AccountSID, cred.AuthToken, cred.WhatsAppFrom
	}
	if sid == "" || token == "" {
		return "", ErrChannelNotConfigured
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: sid,
		Password: token,
	})

	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + target.Phone)
	params.SetFrom("whatsapp:" + from)
	params.SetBody(stripHTML(html))

	resp, err := client.Api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("sending whatsapp message: %w", err)
	}
	if resp.Sid == nil {
		return "", errors.New("provider returned no message sid")
	}
	return *resp.Sid, nil
}

func (s *Sender) resolveResendCredential(ctx context.Context, industryID *uuid.UUID) (*models.ResendCredential, error) {
	payload, err := s.resolveCredentialPayload(ctx, models.CredentialProviderResend, industryID)
	if err != nil || payload == "" {
		return nil, err
	}
	var cred models.ResendCredential
	if err := json.Unmarshal([]byte(payload), &cred); err != nil {
		return nil, fmt.Errorf("decoding resend credential: %w", err)
	}
	return &cred, nil
}

func (s *Sender) resolveTwilioCredential(ctx context.Context, industryID *uuid.UUID) (*models.TwilioCredential, error) {
	payload, err := s.resolveCredentialPayload(ctx, models.CredentialProviderTwilio, industryID)
	if err != nil || payload == "" {
		return nil, err
	}
	var cred models.TwilioCredential
	if err := json.Unmarshal([]byte(payload), &cred); err != nil {
		return nil, fmt.Errorf("decoding twilio credential: %w", err)
	}
	return &cred, nil
}

// resolveCredentialPayload prefers an industry-scoped credential over an
// unscoped one, and returns "" when no row matches.
func (s *Sender) resolveCredentialPayload(ctx context.Context, provider models.CredentialProvider, industryID *uuid.UUID) (string, error) {
	if s.encryptor == nil {
		return "", nil
	}

	q := s.db.WithContext(ctx).
		Where("provider = ? AND is_active = ?", provider, true)
	if industryID != nil {
		q = q.Where("industry_id = ? OR industry_id IS NULL", *industryID).
			Order("industry_id DESC NULLS LAST")
	} else {
		q = q.Where("industry_id IS NULL")
	}

	var cred models.ChannelCredential
	if err := q.First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	plaintext, err := s.encryptor.DecryptString(cred.EncryptedPayload)
	if err != nil {
		return "", fmt.Errorf("decrypting credential %s: %w", cred.ID, err)
	}
	return plaintext, nil
}

// stripHTML flattens pitch HTML into plain text for channels without rich
// formatting.
func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

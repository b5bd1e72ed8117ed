package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/pkg/config"
)

// Dispatcher delivers event summaries to the configured operator channels.
// Every channel is best-effort: a delivery failure is logged and swallowed,
// never propagated back to the webhook processing that produced the event.
type Dispatcher struct {
	logger    *slog.Logger
	resendCfg config.ResendConfig
	twilioCfg config.TwilioConfig
	notifyCfg config.NotifyConfig
}

func NewDispatcher(logger *slog.Logger, resendCfg config.ResendConfig, twilioCfg config.TwilioConfig, notifyCfg config.NotifyConfig) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		resendCfg: resendCfg,
		twilioCfg: twilioCfg,
		notifyCfg: notifyCfg,
	}
}

// Send pushes the summary to the operator email and WhatsApp number. Always
// returns nil: notification is decoupled from the authoritative state
// update and must never cause a retry of it.
func (d *Dispatcher) Send(ctx context.Context, summary ingest.EventSummary) error {
	subject := fmt.Sprintf("VANI: %s %s", summary.Provider, summary.Status)
	body := summary.Detail
	if summary.TargetName != "" {
		body = fmt.Sprintf("%s: target %s", body, summary.TargetName)
	}

	if d.notifyCfg.Email != "" {
		if err := d.sendEmail(ctx, subject, body); err != nil {
			d.logger.Error("operator email notification failed", "error", err)
		}
	}

	if d.notifyCfg.WhatsApp != "" {
		if err := d.sendWhatsApp(subject + ": " + body); err != nil {
			d.logger.Error("operator whatsapp notification failed", "error", err)
		}
	}

	return nil
}

func (d *Dispatcher) sendEmail(ctx context.Context, subject, body string) error {
	if d.resendCfg.APIKey == "" {
		return fmt.Errorf("email channel not configured")
	}
	client := resend.NewClient(d.resendCfg.APIKey)
	_, err := client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    d.resendCfg.FromAddress,
		To:      []string{d.notifyCfg.Email},
		Subject: subject,
		Text:    body,
	})
	return err
}

func (d *Dispatcher) sendWhatsApp(body string) error {
	if d.twilioCfg.AccountSID == "" || d.twilioCfg.AuthToken == "" {
		return fmt.Errorf("whatsapp channel not configured")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: d.twilioCfg.AccountSID,
		Password: d.twilioCfg.AuthToken,
	})
	params := &twilioApi.CreateMessageParams{}
	params.SetTo("whatsapp:" + d.notifyCfg.WhatsApp)
	params.SetFrom("whatsapp:" + d.twilioCfg.WhatsAppFrom)
	params.SetBody(body)
	_, err := client.Api.CreateMessage(params)
	return err
}

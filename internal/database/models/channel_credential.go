package models

import "github.com/google/uuid"

type CredentialProvider string

const (
	CredentialProviderResend CredentialProvider = "resend"
	CredentialProviderTwilio CredentialProvider = "twilio"
)

// ChannelCredential stores per-industry sender credentials for a messaging
// provider. EncryptedPayload is an age-encrypted JSON blob; plaintext secrets
// never touch the database. The outreach sender falls back to process-level
// configuration when no credential row matches.
type ChannelCredential struct {
	Base
	IndustryID       *uuid.UUID         `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	Provider         CredentialProvider `gorm:"not null;index" json:"provider"`
	Name             string             `gorm:"not null" json:"name"`
	EncryptedPayload string             `gorm:"not null" json:"-"`
	IsActive         bool               `gorm:"default:true" json:"is_active"`
	CreatedByID      uuid.UUID          `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Industry  *Industry `gorm:"foreignKey:IndustryID" json:"-"`
	CreatedBy *User     `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (ChannelCredential) TableName() string {
	return "channel_credentials"
}

// ResendCredential is the decrypted payload shape for the email provider.
type ResendCredential struct {
	APIKey      string `json:"api_key"`
	FromAddress string `json:"from_address"`
}

// TwilioCredential is the decrypted payload shape for the WhatsApp provider.
type TwilioCredential struct {
	AccountSID   string `json:"account_sid"`
	AuthToken    string `json:"auth_token"`
	WhatsAppFrom string `json:"whatsapp_from"`
}

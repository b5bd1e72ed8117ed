package models

// WebhookEvent is the raw audit row persisted for every inbound provider
// delivery, independent of whether it updated any record.
type WebhookEvent struct {
	Base
	Provider      string `gorm:"not null;index" json:"provider"`
	EventType     string `gorm:"not null" json:"event_type"`
	CorrelationID string `gorm:"index" json:"correlation_id,omitempty"`
	Payload       string `gorm:"type:jsonb;default:'{}'" json:"payload,omitempty"`
	ProcessedOK   bool   `gorm:"default:false" json:"processed_ok"`
	Note          string `json:"note,omitempty"`
}

func (WebhookEvent) TableName() string {
	return "webhook_events"
}

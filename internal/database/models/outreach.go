package models

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelLinkedIn Channel = "linkedin"
)

// EventStatus is the internal vocabulary that provider-specific webhook
// events are mapped into.
type EventStatus string

const (
	StatusScheduled EventStatus = "scheduled"
	StatusSent      EventStatus = "sent"
	StatusDelivered EventStatus = "delivered"
	StatusOpened    EventStatus = "opened"
	StatusClicked   EventStatus = "clicked"
	StatusReplied   EventStatus = "replied"
	StatusBounced   EventStatus = "bounced"
	StatusCancelled EventStatus = "cancelled"
	StatusNoShow    EventStatus = "no_show"
	StatusCompleted EventStatus = "completed"
)

// statusRanks orders statuses by engagement progression. A status update is
// applied only when it advances the rank, so a stale delivery event can never
// overwrite a reply that already arrived.
var statusRanks = map[EventStatus]int{
	StatusScheduled: 1,
	StatusSent:      2,
	StatusDelivered: 3,
	StatusOpened:    4,
	StatusClicked:   5,
	StatusReplied:   6,
	StatusBounced:   7,
	StatusCancelled: 8,
	StatusNoShow:    9,
	StatusCompleted: 10,
}

// Rank returns the monotonic ordering value for a status, or 0 for an
// unknown status.
func (s EventStatus) Rank() int {
	return statusRanks[s]
}

// OutreachActivity records one message sent on one channel to one target.
// CorrelationID is the provider-assigned message identifier stored at send
// time; inbound webhook events are matched back through it.
type OutreachActivity struct {
	Base
	TargetID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"target_id"`
	Channel       Channel     `gorm:"not null;index" json:"channel"`
	Status        EventStatus `gorm:"not null;default:'sent'" json:"status"`
	StatusRank    int         `gorm:"not null;default:2" json:"-"`
	CorrelationID string      `gorm:"index" json:"correlation_id,omitempty"`
	Subject       string      `json:"subject,omitempty"`
	PitchID       *uuid.UUID  `gorm:"type:uuid;index" json:"pitch_id,omitempty"`
	IndustryID    *uuid.UUID  `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	SentByID      uuid.UUID   `gorm:"type:uuid;not null" json:"sent_by_id"`
	LastEventAt   time.Time   `json:"last_event_at"`

	// Relationships
	Target   *Target         `gorm:"foreignKey:TargetID" json:"-"`
	Pitch    *GeneratedPitch `gorm:"foreignKey:PitchID" json:"-"`
	Industry *Industry       `gorm:"foreignKey:IndustryID" json:"-"`
	SentBy   *User           `gorm:"foreignKey:SentByID" json:"-"`
}

func (OutreachActivity) TableName() string {
	return "outreach_activities"
}

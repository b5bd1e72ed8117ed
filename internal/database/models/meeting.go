package models

import (
	"time"

	"github.com/google/uuid"
)

// Meeting mirrors a booking held by the calendar provider. BookingUID is the
// provider correlation identifier carried by booking webhooks.
type Meeting struct {
	Base
	TargetID      uuid.UUID   `gorm:"type:uuid;index" json:"target_id,omitempty"`
	BookingUID    string      `gorm:"uniqueIndex;not null" json:"booking_uid"`
	Title         string      `json:"title,omitempty"`
	Status        EventStatus `gorm:"not null;default:'scheduled'" json:"status"`
	StatusRank    int         `gorm:"not null;default:1" json:"-"`
	StartsAt      time.Time   `json:"starts_at"`
	EndsAt        time.Time   `json:"ends_at"`
	AttendeeEmail string      `gorm:"index" json:"attendee_email,omitempty"`
	IndustryID    *uuid.UUID  `gorm:"type:uuid;index" json:"industry_id,omitempty"`

	// Relationships
	Target   *Target   `gorm:"foreignKey:TargetID" json:"-"`
	Industry *Industry `gorm:"foreignKey:IndustryID" json:"-"`
}

func (Meeting) TableName() string {
	return "meetings"
}

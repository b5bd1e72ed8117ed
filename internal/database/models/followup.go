package models

import "github.com/google/uuid"

// ScheduledFollowUp is a cron-driven reminder evaluated by the worker's
// scheduler tick. NextRunAt is advanced from CronExpr after each firing.
type ScheduledFollowUp struct {
	Base
	TargetID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"target_id"`
	OutreachActivityID *uuid.UUID `gorm:"type:uuid;index" json:"outreach_activity_id,omitempty"`
	Name               string     `gorm:"not null" json:"name"`
	CronExpr           string     `gorm:"not null" json:"cron_expr"`
	NextRunAt          int64      `gorm:"index" json:"next_run_at"`
	LastRunAt          int64      `json:"last_run_at,omitempty"`
	IsEnabled          bool       `gorm:"default:true;index" json:"is_enabled"`
	IndustryID         *uuid.UUID `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	CreatedByID        uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Target   *Target           `gorm:"foreignKey:TargetID" json:"-"`
	Activity *OutreachActivity `gorm:"foreignKey:OutreachActivityID" json:"-"`
	Industry *Industry         `gorm:"foreignKey:IndustryID" json:"-"`
}

func (ScheduledFollowUp) TableName() string {
	return "scheduled_follow_ups"
}

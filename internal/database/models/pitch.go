package models

import "github.com/google/uuid"

// GeneratedPitch is AI-produced outreach content tied to a target.
type GeneratedPitch struct {
	Base
	TargetID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"target_id"`
	HTMLContent      string     `gorm:"not null" json:"html_content"`
	Model            string     `json:"model,omitempty"`
	PromptTokens     int        `json:"prompt_tokens,omitempty"`
	CompletionTokens int        `json:"completion_tokens,omitempty"`
	IndustryID       *uuid.UUID `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	CreatedByID      uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Target    *Target   `gorm:"foreignKey:TargetID" json:"-"`
	Industry  *Industry `gorm:"foreignKey:IndustryID" json:"-"`
	CreatedBy *User     `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (GeneratedPitch) TableName() string {
	return "generated_pitches"
}

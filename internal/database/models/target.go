package models

import "github.com/google/uuid"

type TargetStatus string

const (
	TargetStatusNew        TargetStatus = "new"
	TargetStatusContacted  TargetStatus = "contacted"
	TargetStatusEngaged    TargetStatus = "engaged"
	TargetStatusQualified  TargetStatus = "qualified"
	TargetStatusConverted  TargetStatus = "converted"
	TargetStatusDisengaged TargetStatus = "disengaged"
)

// Target is a prospect the team is pursuing. Industry tagging is optional;
// when omitted at creation it is derived from the creator's assignment or a
// linked contact/company.
type Target struct {
	Base
	Name        string       `gorm:"not null;index" json:"name"`
	Title       string       `json:"title,omitempty"`
	Seniority   string       `gorm:"index" json:"seniority,omitempty"`
	Email       string       `gorm:"index" json:"email,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	LinkedInURL string       `json:"linkedin_url,omitempty"`
	Status      TargetStatus `gorm:"not null;default:'new';index" json:"status"`
	IndustryID  *uuid.UUID   `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	CompanyID   *uuid.UUID   `gorm:"type:uuid;index" json:"company_id,omitempty"`
	ContactID   *uuid.UUID   `gorm:"type:uuid;index" json:"contact_id,omitempty"`
	CreatedByID uuid.UUID    `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Industry   *Industry          `gorm:"foreignKey:IndustryID" json:"industry,omitempty"`
	Company    *Company           `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Contact    *Contact           `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
	CreatedBy  *User              `gorm:"foreignKey:CreatedByID" json:"-"`
	Activities []OutreachActivity `gorm:"foreignKey:TargetID" json:"-"`
	Pitches    []GeneratedPitch   `gorm:"foreignKey:TargetID" json:"-"`
}

func (Target) TableName() string {
	return "targets"
}

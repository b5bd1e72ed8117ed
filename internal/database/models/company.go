package models

import "github.com/google/uuid"

type Company struct {
	Base
	Name        string     `gorm:"not null;index" json:"name"`
	Domain      string     `gorm:"index" json:"domain,omitempty"`
	Website     string     `json:"website,omitempty"`
	Description string     `json:"description,omitempty"`
	IndustryID  *uuid.UUID `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	CreatedByID uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Industry  *Industry `gorm:"foreignKey:IndustryID" json:"industry,omitempty"`
	CreatedBy *User     `gorm:"foreignKey:CreatedByID" json:"-"`
	Contacts  []Contact `gorm:"foreignKey:CompanyID" json:"-"`
	Targets   []Target  `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Company) TableName() string {
	return "companies"
}

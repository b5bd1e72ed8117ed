package models

import "github.com/google/uuid"

type Contact struct {
	Base
	Name        string     `gorm:"not null" json:"name"`
	Email       string     `gorm:"index" json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Title       string     `json:"title,omitempty"`
	IndustryID  *uuid.UUID `gorm:"type:uuid;index" json:"industry_id,omitempty"`
	CompanyID   *uuid.UUID `gorm:"type:uuid;index" json:"company_id,omitempty"`
	CreatedByID uuid.UUID  `gorm:"type:uuid;not null" json:"created_by_id"`

	// Relationships
	Industry  *Industry `gorm:"foreignKey:IndustryID" json:"industry,omitempty"`
	Company   *Company  `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	CreatedBy *User     `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

package models

import "github.com/google/uuid"

// Role is the closed set of user roles. Authorization dispatches on this
// single value rather than on per-feature boolean flags.
type Role string

const (
	RoleSuperUser     Role = "super_user"
	RoleIndustryAdmin Role = "industry_admin"
	RoleStandard      Role = "standard"
)

type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`

	// ExternalIdentityID mirrors the identity-provider subject for users
	// provisioned on first login.
	ExternalIdentityID string `gorm:"uniqueIndex" json:"external_identity_id,omitempty"`

	Role Role `gorm:"not null;default:'standard'" json:"role"`

	// DefaultIndustryID is the assignment an industry admin is bound to.
	// Standard users may carry it as a convenience default.
	DefaultIndustryID *uuid.UUID `gorm:"type:uuid;index" json:"default_industry_id,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	// Relationships
	DefaultIndustry *Industry        `gorm:"foreignKey:DefaultIndustryID" json:"default_industry,omitempty"`
	Permissions     []UserPermission `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsSuperUser reports whether the user bypasses all access checks.
func (u *User) IsSuperUser() bool {
	return u.Role == RoleSuperUser
}

// IsIndustryAdmin reports whether the user is clamped to an assigned industry.
func (u *User) IsIndustryAdmin() bool {
	return u.Role == RoleIndustryAdmin
}

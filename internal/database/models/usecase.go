package models

import "github.com/google/uuid"

// UseCase codes gate feature access. The catalog is seeded once and rarely
// changes.
const (
	UseCaseTargetManagement   = "target_management"
	UseCaseContactManagement  = "contact_management"
	UseCaseCompanyManagement  = "company_management"
	UseCaseOutreach           = "outreach"
	UseCaseMeetingTracking    = "meeting_tracking"
	UseCasePitchGeneration    = "pitch_generation"
	UseCaseUserAdministration = "user_administration"
	UseCaseAnalytics          = "analytics"
)

type UseCase struct {
	Base
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description,omitempty"`
}

func (UseCase) TableName() string {
	return "use_cases"
}

// UserPermission grants one user one use case, optionally scoped to a single
// industry. A nil IndustryID is a global grant. The composite uniqueness
// keeps duplicate-insert races out at the database layer.
type UserPermission struct {
	Base
	UserID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_usecase_industry" json:"user_id"`
	UseCaseID   uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_usecase_industry" json:"use_case_id"`
	IndustryID  *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_usecase_industry" json:"industry_id,omitempty"`
	GrantedByID uuid.UUID  `gorm:"type:uuid;not null" json:"granted_by_id"`

	// Relationships
	User      *User     `gorm:"foreignKey:UserID" json:"-"`
	UseCase   *UseCase  `gorm:"foreignKey:UseCaseID" json:"use_case,omitempty"`
	Industry  *Industry `gorm:"foreignKey:IndustryID" json:"industry,omitempty"`
	GrantedBy *User     `gorm:"foreignKey:GrantedByID" json:"-"`
}

func (UserPermission) TableName() string {
	return "user_permissions"
}

// SeedUseCases is the fixed catalog inserted on first boot.
func SeedUseCases() []UseCase {
	return []UseCase{
		{Code: UseCaseTargetManagement, Name: "Target Management", Description: "Create and manage sales targets"},
		{Code: UseCaseContactManagement, Name: "Contact Management", Description: "Create and manage contacts"},
		{Code: UseCaseCompanyManagement, Name: "Company Management", Description: "Create and manage companies"},
		{Code: UseCaseOutreach, Name: "Outreach", Description: "Send and track outreach messages"},
		{Code: UseCaseMeetingTracking, Name: "Meeting Tracking", Description: "View scheduled meetings"},
		{Code: UseCasePitchGeneration, Name: "Pitch Generation", Description: "Generate AI-personalized pitches"},
		{Code: UseCaseUserAdministration, Name: "User Administration", Description: "Manage users and permission grants"},
		{Code: UseCaseAnalytics, Name: "Analytics", Description: "View engagement analytics"},
	}
}

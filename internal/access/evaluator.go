package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/database/models"
	"gorm.io/gorm"
)

var (
	// ErrPermissionDenied means the user holds no grant at all for the
	// requested use case. The HTTP layer surfaces it as a generic 403 that
	// never leaks which industries exist.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIndustryAccessDenied means the use-case grant exists but does not
	// cover the requested industry.
	ErrIndustryAccessDenied = errors.New("industry access denied")

	ErrUserNotFound = errors.New("user not found")
)

// Decision is the computed data-visibility filter for one user and use case.
type Decision struct {
	AllIndustries bool
	IndustryIDs   []uuid.UUID
}

// Covers reports whether the decision permits acting on the given industry.
func (d Decision) Covers(id uuid.UUID) bool {
	if d.AllIndustries {
		return true
	}
	for _, allowed := range d.IndustryIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

// Scope applies the visibility filter to an entity query. Records without an
// industry tag are visible to anyone holding the use-case grant.
func (d Decision) Scope(q *gorm.DB) *gorm.DB {
	if d.AllIndustries {
		return q
	}
	if len(d.IndustryIDs) == 0 {
		return q.Where("industry_id IS NULL")
	}
	return q.Where("industry_id IS NULL OR industry_id IN ?", d.IndustryIDs)
}

// Service evaluates use-case grants against the permission store.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Authorize decides whether the user may exercise the use case, optionally
// against a specific industry, and computes the visibility filter. The rule
// dispatches once on the closed role set:
//
//   - super users bypass everything;
//   - a user with no grant for the use case is denied outright;
//   - a global grant (nil industry) confers all industries;
//   - otherwise visibility is exactly the granted industry set;
//   - industry admins are always clamped to their assigned industry, even
//     when a global grant exists.
func (s *Service) Authorize(ctx context.Context, userID uuid.UUID, useCaseCode string, targetIndustry *uuid.UUID) (*models.User, Decision, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, Decision{}, err
	}

	var decision Decision

	switch user.Role {
	case models.RoleSuperUser:
		decision = Decision{AllIndustries: true}
		return user, decision, nil

	case models.RoleIndustryAdmin, models.RoleStandard:
		grants, err := s.grantsFor(ctx, userID, useCaseCode)
		if err != nil {
			return nil, Decision{}, err
		}
		if len(grants) == 0 {
			return nil, Decision{}, ErrPermissionDenied
		}

		decision = decisionFromGrants(grants)

		// A global and an industry-scoped grant may coexist for the same
		// user/use-case pair; the global one dominates.
		if user.Role == models.RoleIndustryAdmin {
			decision = clampToAssignment(decision, user.DefaultIndustryID)
		}

	default:
		return nil, Decision{}, ErrPermissionDenied
	}

	if targetIndustry != nil && !decision.Covers(*targetIndustry) {
		return nil, Decision{}, ErrIndustryAccessDenied
	}

	return user, decision, nil
}

// AllowedIndustries computes the union of industries the user may act in
// across every use case they hold. Used by the industry switch operation.
func (s *Service) AllowedIndustries(ctx context.Context, userID uuid.UUID) (*models.User, Decision, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, Decision{}, err
	}

	if user.Role == models.RoleSuperUser {
		return user, Decision{AllIndustries: true}, nil
	}

	var grants []models.UserPermission
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&grants).Error; err != nil {
		return nil, Decision{}, err
	}

	decision := decisionFromGrants(grants)
	if user.Role == models.RoleIndustryAdmin {
		decision = clampToAssignment(decision, user.DefaultIndustryID)
	}

	return user, decision, nil
}

// SwitchIndustry validates that the user may scope their session to the
// requested industry. A nil industryID requests the "all industries" view,
// permitted only when the user's visibility is unrestricted. No state is
// mutated: the effective scope is carried per request, not stored.
func (s *Service) SwitchIndustry(ctx context.Context, userID uuid.UUID, industryID *uuid.UUID) (*models.Industry, error) {
	_, decision, err := s.AllowedIndustries(ctx, userID)
	if err != nil {
		return nil, err
	}

	if industryID == nil {
		if !decision.AllIndustries {
			return nil, ErrIndustryAccessDenied
		}
		return nil, nil
	}

	if !decision.Covers(*industryID) {
		return nil, ErrIndustryAccessDenied
	}

	var industry models.Industry
	if err := s.db.WithContext(ctx).First(&industry, *industryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIndustryAccessDenied
		}
		return nil, err
	}
	return &industry, nil
}

// DeriveIndustry computes the industry tag for a new Target/Contact/Company
// when the caller omitted it: the creator's assignment if they are an
// industry admin, else the industry of a linked contact then company, else
// nil.
func (s *Service) DeriveIndustry(ctx context.Context, user *models.User, contactID, companyID *uuid.UUID) (*uuid.UUID, error) {
	if user.IsIndustryAdmin() && user.DefaultIndustryID != nil {
		return user.DefaultIndustryID, nil
	}

	if contactID != nil {
		var contact models.Contact
		err := s.db.WithContext(ctx).First(&contact, *contactID).Error
		if err == nil && contact.IndustryID != nil {
			return contact.IndustryID, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if companyID != nil {
		var company models.Company
		err := s.db.WithContext(ctx).First(&company, *companyID).Error
		if err == nil && company.IndustryID != nil {
			return company.IndustryID, nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

func (s *Service) loadUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrPermissionDenied
	}
	return &user, nil
}

func (s *Service) grantsFor(ctx context.Context, userID uuid.UUID, useCaseCode string) ([]models.UserPermission, error) {
	var grants []models.UserPermission
	err := s.db.WithContext(ctx).
		Joins("JOIN use_cases ON use_cases.id = user_permissions.use_case_id").
		Where("user_permissions.user_id = ? AND use_cases.code = ?", userID, useCaseCode).
		Find(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func decisionFromGrants(grants []models.UserPermission) Decision {
	var ids []uuid.UUID
	for _, g := range grants {
		if g.IndustryID == nil {
			return Decision{AllIndustries: true}
		}
		ids = append(ids, *g.IndustryID)
	}
	return Decision{IndustryIDs: ids}
}

// clampToAssignment restricts a decision to the industry admin's assigned
// industry. An admin without an assignment sees only unscoped records.
func clampToAssignment(d Decision, assigned *uuid.UUID) Decision {
	if assigned == nil {
		return Decision{}
	}
	if d.AllIndustries || d.Covers(*assigned) {
		return Decision{IndustryIDs: []uuid.UUID{*assigned}}
	}
	return Decision{}
}

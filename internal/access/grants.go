package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrDuplicateGrant = errors.New("grant already exists")
	ErrUnknownUseCase = errors.New("unknown use case")
)

type GrantInput struct {
	UserID      uuid.UUID
	UseCaseCode string
	IndustryID  *uuid.UUID
	GrantedByID uuid.UUID
}

// Grant creates a permission row. Super users may grant anything; industry
// admins may grant only within their own assigned industry. Everyone else is
// denied.
func (s *Service) Grant(ctx context.Context, input GrantInput) (*models.UserPermission, error) {
	granter, err := s.loadUser(ctx, input.GrantedByID)
	if err != nil {
		return nil, err
	}
	if err := s.checkGrantScope(granter, input.IndustryID); err != nil {
		return nil, err
	}

	var useCase models.UseCase
	if err := s.db.WithContext(ctx).Where("code = ?", input.UseCaseCode).First(&useCase).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownUseCase
		}
		return nil, err
	}

	grant := models.UserPermission{
		UserID:      input.UserID,
		UseCaseID:   useCase.ID,
		IndustryID:  input.IndustryID,
		GrantedByID: input.GrantedByID,
	}

	if err := s.db.WithContext(ctx).Create(&grant).Error; err != nil {
		// The composite unique index rejects duplicate (user, use case,
		// industry) rows regardless of request interleaving.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateGrant
		}
		return nil, err
	}

	grant.UseCase = &useCase
	return &grant, nil
}

// Revoke deletes a permission row under the same scoping rule as Grant.
func (s *Service) Revoke(ctx context.Context, grantID, revokedByID uuid.UUID) error {
	revoker, err := s.loadUser(ctx, revokedByID)
	if err != nil {
		return err
	}

	var grant models.UserPermission
	if err := s.db.WithContext(ctx).First(&grant, grantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return gorm.ErrRecordNotFound
		}
		return err
	}

	if err := s.checkGrantScope(revoker, grant.IndustryID); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Delete(&grant).Error
}

// ListGrants returns the grants visible to the caller: all of them for super
// users, own-industry grants for industry admins.
func (s *Service) ListGrants(ctx context.Context, callerID uuid.UUID) ([]models.UserPermission, error) {
	caller, err := s.loadUser(ctx, callerID)
	if err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Preload("UseCase").Preload("Industry")
	switch caller.Role {
	case models.RoleSuperUser:
	case models.RoleIndustryAdmin:
		if caller.DefaultIndustryID == nil {
			return nil, ErrPermissionDenied
		}
		q = q.Where("industry_id = ?", *caller.DefaultIndustryID)
	default:
		return nil, ErrPermissionDenied
	}

	var grants []models.UserPermission
	if err := q.Order("created_at DESC").Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

func (s *Service) checkGrantScope(actor *models.User, industryID *uuid.UUID) error {
	switch actor.Role {
	case models.RoleSuperUser:
		return nil
	case models.RoleIndustryAdmin:
		if actor.DefaultIndustryID == nil || industryID == nil {
			return ErrIndustryAccessDenied
		}
		if *industryID != *actor.DefaultIndustryID {
			return ErrIndustryAccessDenied
		}
		return nil
	default:
		return ErrPermissionDenied
	}
}

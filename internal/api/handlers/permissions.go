package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/database/models"
	"gorm.io/gorm"
)

type PermissionHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewPermissionHandler(db *gorm.DB, accessService *access.Service) *PermissionHandler {
	return &PermissionHandler{db: db, accessService: accessService}
}

type GrantRequest struct {
	UserID      string  `json:"user_id"`
	UseCaseCode string  `json:"use_case_code"`
	IndustryID  *string `json:"industry_id,omitempty"`
}

func (r GrantRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.UserID == "" {
		errs["user_id"] = "User ID is required"
	} else if _, err := uuid.Parse(r.UserID); err != nil {
		errs["user_id"] = "Invalid user ID format"
	}
	if r.UseCaseCode == "" {
		errs["use_case_code"] = "Use case code is required"
	}
	if r.IndustryID != nil && *r.IndustryID != "" {
		if _, err := uuid.Parse(*r.IndustryID); err != nil {
			errs["industry_id"] = "Invalid industry ID format"
		}
	}
	return errs
}

// ListUseCases handles GET /api/v1/use-cases
func (h *PermissionHandler) ListUseCases(w http.ResponseWriter, r *http.Request) {
	var useCases []models.UseCase
	if err := h.db.WithContext(r.Context()).Order("code ASC").Find(&useCases).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list use cases"))
		return
	}
	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success: true,
		Data:    useCases,
		Total:   int64(len(useCases)),
		Page:    1,
		PerPage: 100,
	})
}

// List handles GET /api/v1/permissions
func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	grants, err := h.accessService.ListGrants(r.Context(), callerID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success: true,
		Data:    grants,
		Total:   int64(len(grants)),
		Page:    1,
		PerPage: 100,
	})
}

// Grant handles POST /api/v1/permissions
func (h *PermissionHandler) Grant(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	var industryID *uuid.UUID
	if req.IndustryID != nil && *req.IndustryID != "" {
		id, _ := uuid.Parse(*req.IndustryID)
		industryID = &id
	}

	grant, err := h.accessService.Grant(r.Context(), access.GrantInput{
		UserID:      userID,
		UseCaseCode: req.UseCaseCode,
		IndustryID:  industryID,
		GrantedByID: callerID,
	})
	if err != nil {
		switch {
		case errors.Is(err, access.ErrDuplicateGrant):
			writeJSON(w, http.StatusConflict, dto.Error("Grant already exists"))
		case errors.Is(err, access.ErrUnknownUseCase):
			writeJSON(w, http.StatusBadRequest, dto.Error("Unknown use case"))
		default:
			writeAccessError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, grant)
}

// Revoke handles DELETE /api/v1/permissions/{id}
func (h *PermissionHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())

	grantID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid grant ID"))
		return
	}

	if err := h.accessService.Revoke(r.Context(), grantID, callerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Grant not found"))
			return
		}
		writeAccessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Grant revoked"})
}

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

type IndustryHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewIndustryHandler(db *gorm.DB, accessService *access.Service) *IndustryHandler {
	return &IndustryHandler{db: db, accessService: accessService}
}

type CreateIndustryRequest struct {
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}

func (r CreateIndustryRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.Code == "" {
		errs["code"] = "Code is required"
	}
	return errs
}

// List handles GET /api/v1/industries. Everyone sees only the industries
// they can act in; the response never enumerates industries outside the
// caller's grants.
func (h *IndustryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	_, decision, err := h.accessService.AllowedIndustries(r.Context(), userID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	query := h.db.WithContext(r.Context()).Model(&models.Industry{})
	if !decision.AllIndustries {
		if len(decision.IndustryIDs) == 0 {
			writeJSON(w, http.StatusOK, dto.PaginatedResponse{
				Success: true, Data: []models.Industry{}, Page: 1, PerPage: 100,
			})
			return
		}
		query = query.Where("id IN ?", decision.IndustryIDs)
	}

	var industries []models.Industry
	if err := query.Order("name ASC").Find(&industries).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list industries"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success: true,
		Data:    industries,
		Total:   int64(len(industries)),
		Page:    1,
		PerPage: 100,
	})
}

// Create handles POST /api/v1/industries (super user only, enforced by the
// router).
func (h *IndustryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIndustryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	industry := models.Industry{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
	}
	if err := h.db.WithContext(r.Context()).Create(&industry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			writeJSON(w, http.StatusConflict, dto.Error("Industry already exists"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create industry"))
		return
	}

	writeJSON(w, http.StatusCreated, industry)
}

// Get handles GET /api/v1/industries/{id}
func (h *IndustryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	industryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid industry ID"))
		return
	}

	_, decision, err := h.accessService.AllowedIndustries(r.Context(), userID)
	if err != nil {
		writeAccessError(w, err)
		return
	}
	// Out-of-scope reads like missing records.
	if !decision.Covers(industryID) {
		writeJSON(w, http.StatusNotFound, dto.Error("Industry not found"))
		return
	}

	var industry models.Industry
	if err := h.db.WithContext(r.Context()).First(&industry, industryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Industry not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get industry"))
		return
	}

	writeJSON(w, http.StatusOK, industry)
}

// Update handles PUT /api/v1/industries/{id} (super user only).
func (h *IndustryHandler) Update(w http.ResponseWriter, r *http.Request) {
	industryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid industry ID"))
		return
	}

	var req CreateIndustryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	var industry models.Industry
	if err := h.db.WithContext(r.Context()).First(&industry, industryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Industry not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get industry"))
		return
	}

	industry.Name = req.Name
	industry.Code = req.Code
	industry.Description = req.Description
	if err := h.db.WithContext(r.Context()).Save(&industry).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update industry"))
		return
	}

	writeJSON(w, http.StatusOK, industry)
}

type SwitchIndustryRequest struct {
	// IndustryID is a UUID, or "all" (or empty) for the unrestricted view.
	IndustryID string `json:"industry_id"`
}

type SwitchIndustryResponse struct {
	Success  bool             `json:"success"`
	Industry *models.Industry `json:"industry,omitempty"`
	All      bool             `json:"all,omitempty"`
}

// Switch handles POST /api/v1/industries/switch. It validates the requested
// scope against the caller's grants and echoes it back; the client then
// carries the scope on subsequent requests via the X-Industry-Id header.
// Nothing is stored server-side.
func (h *IndustryHandler) Switch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req SwitchIndustryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}

	var industryID *uuid.UUID
	if req.IndustryID != "" && req.IndustryID != "all" {
		id, err := uuid.Parse(req.IndustryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.Error("Invalid industry ID"))
			return
		}
		industryID = &id
	}

	industry, err := h.accessService.SwitchIndustry(r.Context(), userID, industryID)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SwitchIndustryResponse{
		Success:  true,
		Industry: industry,
		All:      industry == nil,
	})
}

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

type CompanyHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewCompanyHandler(db *gorm.DB, accessService *access.Service) *CompanyHandler {
	return &CompanyHandler{db: db, accessService: accessService}
}

type CompanyRequest struct {
	Name        string  `json:"name"`
	Domain      string  `json:"domain,omitempty"`
	Website     string  `json:"website,omitempty"`
	Description string  `json:"description,omitempty"`
	IndustryID  *string `json:"industry_id,omitempty"`
}

func (r CompanyRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.IndustryID != nil && *r.IndustryID != "" {
		if _, err := uuid.Parse(*r.IndustryID); err != nil {
			errs["industry_id"] = "Invalid ID format"
		}
	}
	return errs
}

// List handles GET /api/v1/companies
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseCompanyManagement, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Company{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name ILIKE ? OR domain ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to count companies"))
		return
	}

	var companies []models.Company
	if err := query.
		Preload("Industry").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&companies).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list companies"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success:    true,
		Data:       companies,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/companies
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	explicitIndustry := parseOptionalID(req.IndustryID)
	user, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseCompanyManagement, explicitIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	industryID := explicitIndustry
	if industryID == nil {
		industryID, err = h.accessService.DeriveIndustry(r.Context(), user, nil, nil)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create company"))
			return
		}
		if industryID != nil && !decision.Covers(*industryID) {
			writeJSON(w, http.StatusForbidden, dto.Error("Industry access denied"))
			return
		}
	}

	company := models.Company{
		Name:        req.Name,
		Domain:      req.Domain,
		Website:     req.Website,
		Description: req.Description,
		IndustryID:  industryID,
		CreatedByID: userID,
	}

	if err := h.db.WithContext(r.Context()).Create(&company).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create company"))
		return
	}

	writeJSON(w, http.StatusCreated, company)
}

// Get handles GET /api/v1/companies/{id}
func (h *CompanyHandler) Get(w http.ResponseWriter, r *http.Request) {
	company, ok := h.loadScoped(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, company)
}

// Update handles PUT /api/v1/companies/{id}
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	company, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	var req CompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	company.Name = req.Name
	company.Domain = req.Domain
	company.Website = req.Website
	company.Description = req.Description

	if err := h.db.WithContext(r.Context()).Save(company).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update company"))
		return
	}

	writeJSON(w, http.StatusOK, company)
}

// Delete handles DELETE /api/v1/companies/{id}
func (h *CompanyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	company, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(company).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to delete company"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Company deleted"})
}

func (h *CompanyHandler) loadScoped(w http.ResponseWriter, r *http.Request) (*models.Company, bool) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	companyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid company ID"))
		return nil, false
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseCompanyManagement, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return nil, false
	}

	query := decision.Scope(h.db.WithContext(r.Context()).Where("companies.id = ?", companyID))

	var company models.Company
	if err := query.Preload("Industry").First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Company not found"))
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get company"))
		return nil, false
	}

	return &company, true
}

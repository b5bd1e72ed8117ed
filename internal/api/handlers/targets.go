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
	"github.com/vani-hq/vani/internal/pitch"
	"github.com/vani-hq/vani/internal/sheets"
	"gorm.io/gorm"
)

type TargetHandler struct {
	db            *gorm.DB
	accessService *access.Service
	generator     *pitch.Generator
	exporter      *sheets.Exporter
}

func NewTargetHandler(db *gorm.DB, accessService *access.Service, generator *pitch.Generator, exporter *sheets.Exporter) *TargetHandler {
	return &TargetHandler{
		db:            db,
		accessService: accessService,
		generator:     generator,
		exporter:      exporter,
	}
}

type TargetRequest struct {
	Name        string  `json:"name"`
	Title       string  `json:"title,omitempty"`
	Seniority   string  `json:"seniority,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	LinkedInURL string  `json:"linkedin_url,omitempty"`
	Status      string  `json:"status,omitempty"`
	IndustryID  *string `json:"industry_id,omitempty"`
	CompanyID   *string `json:"company_id,omitempty"`
	ContactID   *string `json:"contact_id,omitempty"`
}

var validTargetStatuses = map[models.TargetStatus]bool{
	models.TargetStatusNew:        true,
	models.TargetStatusContacted:  true,
	models.TargetStatusEngaged:    true,
	models.TargetStatusQualified:  true,
	models.TargetStatusConverted:  true,
	models.TargetStatusDisengaged: true,
}

func (r TargetRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.Status != "" && !validTargetStatuses[models.TargetStatus(r.Status)] {
		errs["status"] = "Invalid status"
	}
	for field, value := range map[string]*string{
		"industry_id": r.IndustryID,
		"company_id":  r.CompanyID,
		"contact_id":  r.ContactID,
	} {
		if value != nil && *value != "" {
			if _, err := uuid.Parse(*value); err != nil {
				errs[field] = "Invalid ID format"
			}
		}
	}
	return errs
}

func parseOptionalID(s *string) *uuid.UUID {
	if s == nil || *s == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

// List handles GET /api/v1/targets
func (h *TargetHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseTargetManagement, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Target{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if seniority := r.URL.Query().Get("seniority"); seniority != "" {
		query = query.Where("seniority = ?", seniority)
	}
	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to count targets"))
		return
	}

	var targets []models.Target
	if err := query.
		Preload("Industry").
		Preload("Company").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&targets).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list targets"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success:    true,
		Data:       targets,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/targets. An explicit industry must be covered
// by the caller's grants; an omitted one is derived from the creator's
// assignment or a linked contact/company.
func (h *TargetHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	explicitIndustry := parseOptionalID(req.IndustryID)
	user, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseTargetManagement, explicitIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	companyID := parseOptionalID(req.CompanyID)
	contactID := parseOptionalID(req.ContactID)

	industryID := explicitIndustry
	if industryID == nil {
		industryID, err = h.accessService.DeriveIndustry(r.Context(), user, contactID, companyID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create target"))
			return
		}
		if industryID != nil && !decision.Covers(*industryID) {
			writeJSON(w, http.StatusForbidden, dto.Error("Industry access denied"))
			return
		}
	}

	status := models.TargetStatusNew
	if req.Status != "" {
		status = models.TargetStatus(req.Status)
	}

	target := models.Target{
		Name:        req.Name,
		Title:       req.Title,
		Seniority:   req.Seniority,
		Email:       req.Email,
		Phone:       req.Phone,
		LinkedInURL: req.LinkedInURL,
		Status:      status,
		IndustryID:  industryID,
		CompanyID:   companyID,
		ContactID:   contactID,
		CreatedByID: userID,
	}

	if err := h.db.WithContext(r.Context()).Create(&target).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create target"))
		return
	}

	writeJSON(w, http.StatusCreated, target)
}

// Get handles GET /api/v1/targets/{id}. A target outside the caller's
// visible industries answers exactly like a missing one.
func (h *TargetHandler) Get(w http.ResponseWriter, r *http.Request) {
	target, ok := h.loadScoped(w, r, models.UseCaseTargetManagement)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// Update handles PUT /api/v1/targets/{id}
func (h *TargetHandler) Update(w http.ResponseWriter, r *http.Request) {
	target, ok := h.loadScoped(w, r, models.UseCaseTargetManagement)
	if !ok {
		return
	}

	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	// The industry tag is immutable through this endpoint; re-tagging a
	// record across industries goes through a super user tooling path.
	target.Name = req.Name
	target.Title = req.Title
	target.Seniority = req.Seniority
	target.Email = req.Email
	target.Phone = req.Phone
	target.LinkedInURL = req.LinkedInURL
	if req.Status != "" {
		target.Status = models.TargetStatus(req.Status)
	}
	target.CompanyID = parseOptionalID(req.CompanyID)
	target.ContactID = parseOptionalID(req.ContactID)

	if err := h.db.WithContext(r.Context()).Save(target).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update target"))
		return
	}

	writeJSON(w, http.StatusOK, target)
}

// Delete handles DELETE /api/v1/targets/{id}
func (h *TargetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	target, ok := h.loadScoped(w, r, models.UseCaseTargetManagement)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(target).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to delete target"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Target deleted"})
}

type IdentifyTargetsRequest struct {
	Industry     string `json:"industry"`
	Limit        int    `json:"limit,omitempty"`
	MinSeniority string `json:"min_seniority,omitempty"`
}

// Identify handles POST /api/v1/targets/identify: AI-recommended prospect
// profiles for an industry. Recommendations are suggestions only; nothing is
// persisted until the operator creates targets from them.
func (h *TargetHandler) Identify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	if _, _, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseTargetManagement, reqIndustry); err != nil {
		writeAccessError(w, err)
		return
	}

	var req IdentifyTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if req.Industry == "" {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(map[string]string{"industry": "Industry is required"}))
		return
	}

	recommendations, err := h.generator.IdentifyTargets(r.Context(), pitch.IdentifyInput{
		Industry:     req.Industry,
		Limit:        req.Limit,
		MinSeniority: req.MinSeniority,
	})
	if err != nil {
		if errors.Is(err, pitch.ErrNotConfigured) {
			writeJSON(w, http.StatusServiceUnavailable, dto.Error("AI provider not configured"))
			return
		}
		writeJSON(w, http.StatusBadGateway, dto.Error("AI provider request failed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"recommendations": recommendations,
	})
}

type ExportTargetsRequest struct {
	SpreadsheetID string `json:"spreadsheet_id"`
}

// Export handles POST /api/v1/targets/export: appends the caller's visible
// targets to a Google Sheet.
func (h *TargetHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseAnalytics, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	var req ExportTargetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if req.SpreadsheetID == "" {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(map[string]string{"spreadsheet_id": "Spreadsheet ID is required"}))
		return
	}

	query := h.db.WithContext(r.Context()).Model(&models.Target{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	var targets []models.Target
	if err := query.Preload("Industry").Preload("Company").Order("created_at DESC").Find(&targets).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to load targets"))
		return
	}

	rows, err := h.exporter.ExportTargets(r.Context(), req.SpreadsheetID, targets)
	if err != nil {
		if errors.Is(err, sheets.ErrNotConfigured) {
			writeJSON(w, http.StatusServiceUnavailable, dto.Error("Sheets export not configured"))
			return
		}
		writeJSON(w, http.StatusBadGateway, dto.Error("Sheets export failed"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"rows":    rows,
	})
}

// GeneratePitch handles POST /api/v1/targets/{id}/pitch
func (h *TargetHandler) GeneratePitch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	target, ok := h.loadScoped(w, r, models.UseCasePitchGeneration)
	if !ok {
		return
	}

	user, err := h.loadUser(r, userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to load user"))
		return
	}

	generated, err := h.generator.GeneratePitch(r.Context(), target, user)
	if err != nil {
		if errors.Is(err, pitch.ErrNotConfigured) {
			writeJSON(w, http.StatusServiceUnavailable, dto.Error("AI provider not configured"))
			return
		}
		writeJSON(w, http.StatusBadGateway, dto.Error("AI provider request failed"))
		return
	}

	writeJSON(w, http.StatusCreated, generated)
}

// ListPitches handles GET /api/v1/targets/{id}/pitches
func (h *TargetHandler) ListPitches(w http.ResponseWriter, r *http.Request) {
	target, ok := h.loadScoped(w, r, models.UseCasePitchGeneration)
	if !ok {
		return
	}

	var pitches []models.GeneratedPitch
	if err := h.db.WithContext(r.Context()).
		Where("target_id = ?", target.ID).
		Order("created_at DESC").
		Find(&pitches).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list pitches"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success: true,
		Data:    pitches,
		Total:   int64(len(pitches)),
		Page:    1,
		PerPage: 100,
	})
}

// loadScoped authorizes the use case, then fetches the target through the
// visibility filter so out-of-scope and missing are indistinguishable.
func (h *TargetHandler) loadScoped(w http.ResponseWriter, r *http.Request, useCase string) (*models.Target, bool) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	targetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid target ID"))
		return nil, false
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, useCase, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return nil, false
	}

	query := decision.Scope(h.db.WithContext(r.Context()).Where("targets.id = ?", targetID))

	var target models.Target
	if err := query.Preload("Industry").Preload("Company").Preload("Contact").First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Target not found"))
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get target"))
		return nil, false
	}

	return &target, true
}

func (h *TargetHandler) loadUser(r *http.Request, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

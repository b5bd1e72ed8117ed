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

type ContactHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewContactHandler(db *gorm.DB, accessService *access.Service) *ContactHandler {
	return &ContactHandler{db: db, accessService: accessService}
}

type ContactRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Title      string  `json:"title,omitempty"`
	IndustryID *string `json:"industry_id,omitempty"`
	CompanyID  *string `json:"company_id,omitempty"`
}

func (r ContactRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.IndustryID != nil && *r.IndustryID != "" {
		if _, err := uuid.Parse(*r.IndustryID); err != nil {
			errs["industry_id"] = "Invalid ID format"
		}
	}
	if r.CompanyID != nil && *r.CompanyID != "" {
		if _, err := uuid.Parse(*r.CompanyID); err != nil {
			errs["company_id"] = "Invalid ID format"
		}
	}
	return errs
}

// List handles GET /api/v1/contacts
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseContactManagement, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Contact{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	if companyID := r.URL.Query().Get("company_id"); companyID != "" {
		query = query.Where("company_id = ?", companyID)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to count contacts"))
		return
	}

	var contacts []models.Contact
	if err := query.
		Preload("Industry").
		Preload("Company").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&contacts).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list contacts"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success:    true,
		Data:       contacts,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Create handles POST /api/v1/contacts
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	explicitIndustry := parseOptionalID(req.IndustryID)
	user, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseContactManagement, explicitIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	companyID := parseOptionalID(req.CompanyID)

	industryID := explicitIndustry
	if industryID == nil {
		industryID, err = h.accessService.DeriveIndustry(r.Context(), user, nil, companyID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create contact"))
			return
		}
		if industryID != nil && !decision.Covers(*industryID) {
			writeJSON(w, http.StatusForbidden, dto.Error("Industry access denied"))
			return
		}
	}

	contact := models.Contact{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Title:       req.Title,
		IndustryID:  industryID,
		CompanyID:   companyID,
		CreatedByID: userID,
	}

	if err := h.db.WithContext(r.Context()).Create(&contact).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create contact"))
		return
	}

	writeJSON(w, http.StatusCreated, contact)
}

// Get handles GET /api/v1/contacts/{id}
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.loadScoped(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// Update handles PUT /api/v1/contacts/{id}
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	contact.Name = req.Name
	contact.Email = req.Email
	contact.Phone = req.Phone
	contact.Title = req.Title
	contact.CompanyID = parseOptionalID(req.CompanyID)

	if err := h.db.WithContext(r.Context()).Save(contact).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update contact"))
		return
	}

	writeJSON(w, http.StatusOK, contact)
}

// Delete handles DELETE /api/v1/contacts/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	contact, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(contact).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to delete contact"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Contact deleted"})
}

func (h *ContactHandler) loadScoped(w http.ResponseWriter, r *http.Request) (*models.Contact, bool) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	contactID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid contact ID"))
		return nil, false
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseContactManagement, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return nil, false
	}

	query := decision.Scope(h.db.WithContext(r.Context()).Where("contacts.id = ?", contactID))

	var contact models.Contact
	if err := query.Preload("Industry").Preload("Company").First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Contact not found"))
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get contact"))
		return nil, false
	}

	return &contact, true
}

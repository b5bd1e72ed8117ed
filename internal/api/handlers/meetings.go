package handlers

import (
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

// MeetingHandler is read-only: meetings are created and advanced by calendar
// webhooks, never through the API.
type MeetingHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewMeetingHandler(db *gorm.DB, accessService *access.Service) *MeetingHandler {
	return &MeetingHandler{db: db, accessService: accessService}
}

// List handles GET /api/v1/meetings
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseMeetingTracking, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.Meeting{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if targetID := r.URL.Query().Get("target_id"); targetID != "" {
		query = query.Where("target_id = ?", targetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to count meetings"))
		return
	}

	var meetings []models.Meeting
	if err := query.
		Preload("Target").
		Order("starts_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&meetings).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list meetings"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success:    true,
		Data:       meetings,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Get handles GET /api/v1/meetings/{id}
func (h *MeetingHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	meetingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid meeting ID"))
		return
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseMeetingTracking, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	query := decision.Scope(h.db.WithContext(r.Context()).Where("meetings.id = ?", meetingID))

	var meeting models.Meeting
	if err := query.Preload("Target").First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Meeting not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get meeting"))
		return
	}

	writeJSON(w, http.StatusOK, meeting)
}

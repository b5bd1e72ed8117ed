package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/outreach"
	"gorm.io/gorm"
)

type OutreachHandler struct {
	db            *gorm.DB
	accessService *access.Service
	sender        *outreach.Sender
}

func NewOutreachHandler(db *gorm.DB, accessService *access.Service, sender *outreach.Sender) *OutreachHandler {
	return &OutreachHandler{db: db, accessService: accessService, sender: sender}
}

type SendOutreachRequest struct {
	TargetID string  `json:"target_id"`
	Channel  string  `json:"channel"`
	PitchID  *string `json:"pitch_id,omitempty"`
	Subject  string  `json:"subject,omitempty"`
	Body     string  `json:"body,omitempty"`
}

var validChannels = map[models.Channel]bool{
	models.ChannelEmail:    true,
	models.ChannelWhatsApp: true,
	models.ChannelLinkedIn: true,
}

func (r SendOutreachRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.TargetID == "" {
		errs["target_id"] = "Target ID is required"
	} else if _, err := uuid.Parse(r.TargetID); err != nil {
		errs["target_id"] = "Invalid target ID format"
	}
	if !validChannels[models.Channel(r.Channel)] {
		errs["channel"] = "Channel must be email, whatsapp, or linkedin"
	}
	if r.PitchID != nil && *r.PitchID != "" {
		if _, err := uuid.Parse(*r.PitchID); err != nil {
			errs["pitch_id"] = "Invalid pitch ID format"
		}
	}
	return errs
}

// List handles GET /api/v1/outreach
func (h *OutreachHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseOutreach, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	pagination := parsePagination(r)

	query := h.db.WithContext(r.Context()).Model(&models.OutreachActivity{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	if channel := r.URL.Query().Get("channel"); channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if targetID := r.URL.Query().Get("target_id"); targetID != "" {
		query = query.Where("target_id = ?", targetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to count activities"))
		return
	}

	var activities []models.OutreachActivity
	if err := query.
		Preload("Target").
		Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.PerPage).
		Find(&activities).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list activities"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success:    true,
		Data:       activities,
		Total:      total,
		Page:       pagination.Page,
		PerPage:    pagination.PerPage,
		TotalPages: totalPages(total, pagination.PerPage),
	})
}

// Send handles POST /api/v1/outreach/send. A provider failure surfaces as
// 502 without retry; the activity row is only written on success.
func (h *OutreachHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	var req SendOutreachRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	user, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseOutreach, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	targetID, _ := uuid.Parse(req.TargetID)
	query := decision.Scope(h.db.WithContext(r.Context()).Where("targets.id = ?", targetID))

	var target models.Target
	if err := query.First(&target).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Target not found"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get target"))
		return
	}

	var generated *models.GeneratedPitch
	if req.PitchID != nil && *req.PitchID != "" {
		pitchID, _ := uuid.Parse(*req.PitchID)
		var p models.GeneratedPitch
		if err := h.db.WithContext(r.Context()).
			Where("id = ? AND target_id = ?", pitchID, target.ID).
			First(&p).Error; err != nil {
			writeJSON(w, http.StatusNotFound, dto.Error("Pitch not found"))
			return
		}
		generated = &p
	}

	activity, err := h.sender.Send(r.Context(), outreach.SendInput{
		Target:  &target,
		Channel: models.Channel(req.Channel),
		Pitch:   generated,
		Subject: req.Subject,
		Body:    req.Body,
		SentBy:  user,
	})
	if err != nil {
		switch {
		case errors.Is(err, outreach.ErrMissingRecipient):
			writeJSON(w, http.StatusBadRequest, dto.Error("Target has no address for this channel"))
		case errors.Is(err, outreach.ErrChannelNotConfigured):
			writeJSON(w, http.StatusServiceUnavailable, dto.Error("Channel provider not configured"))
		default:
			writeJSON(w, http.StatusBadGateway, dto.Error("Provider send failed"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, activity)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/pkg/util"
	"gorm.io/gorm"
)

type FollowUpHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewFollowUpHandler(db *gorm.DB, accessService *access.Service) *FollowUpHandler {
	return &FollowUpHandler{db: db, accessService: accessService}
}

type FollowUpRequest struct {
	TargetID   string  `json:"target_id"`
	ActivityID *string `json:"activity_id,omitempty"`
	Name       string  `json:"name"`
	CronExpr   string  `json:"cron_expr"`
	IsEnabled  *bool   `json:"is_enabled,omitempty"`
}

func (r FollowUpRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.TargetID == "" {
		errs["target_id"] = "Target ID is required"
	} else if _, err := uuid.Parse(r.TargetID); err != nil {
		errs["target_id"] = "Invalid target ID format"
	}
	if r.Name == "" {
		errs["name"] = "Name is required"
	}
	if r.CronExpr == "" {
		errs["cron_expr"] = "Cron expression is required"
	} else if err := util.ValidateCronExpr(r.CronExpr); err != nil {
		errs["cron_expr"] = "Invalid cron expression"
	}
	if r.ActivityID != nil && *r.ActivityID != "" {
		if _, err := uuid.Parse(*r.ActivityID); err != nil {
			errs["activity_id"] = "Invalid activity ID format"
		}
	}
	return errs
}

// List handles GET /api/v1/followups
func (h *FollowUpHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseOutreach, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	query := h.db.WithContext(r.Context()).Model(&models.ScheduledFollowUp{})
	if reqIndustry != nil {
		query = query.Where("industry_id = ?", *reqIndustry)
	} else {
		query = decision.Scope(query)
	}

	var followUps []models.ScheduledFollowUp
	if err := query.Preload("Target").Order("created_at DESC").Find(&followUps).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to list follow-ups"))
		return
	}

	writeJSON(w, http.StatusOK, dto.PaginatedResponse{
		Success: true,
		Data:    followUps,
		Total:   int64(len(followUps)),
		Page:    1,
		PerPage: 100,
	})
}

// Create handles POST /api/v1/followups
func (h *FollowUpHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(errs))
		return
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseOutreach, nil)
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

	next, err := util.NextCronTime(req.CronExpr, time.Now())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ValidationError(map[string]string{"cron_expr": "Invalid cron expression"}))
		return
	}

	followUp := models.ScheduledFollowUp{
		TargetID:           target.ID,
		OutreachActivityID: parseOptionalID(req.ActivityID),
		Name:               req.Name,
		CronExpr:           req.CronExpr,
		NextRunAt:          next.Unix(),
		IsEnabled:          true,
		IndustryID:         target.IndustryID,
		CreatedByID:        userID,
	}
	if req.IsEnabled != nil {
		followUp.IsEnabled = *req.IsEnabled
	}

	if err := h.db.WithContext(r.Context()).Create(&followUp).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to create follow-up"))
		return
	}

	writeJSON(w, http.StatusCreated, followUp)
}

// Update handles PUT /api/v1/followups/{id}
func (h *FollowUpHandler) Update(w http.ResponseWriter, r *http.Request) {
	followUp, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid request body"))
		return
	}
	if req.Name != "" {
		followUp.Name = req.Name
	}
	if req.CronExpr != "" {
		if err := util.ValidateCronExpr(req.CronExpr); err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ValidationError(map[string]string{"cron_expr": "Invalid cron expression"}))
			return
		}
		next, err := util.NextCronTime(req.CronExpr, time.Now())
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ValidationError(map[string]string{"cron_expr": "Invalid cron expression"}))
			return
		}
		followUp.CronExpr = req.CronExpr
		followUp.NextRunAt = next.Unix()
	}
	if req.IsEnabled != nil {
		followUp.IsEnabled = *req.IsEnabled
	}

	if err := h.db.WithContext(r.Context()).Save(followUp).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to update follow-up"))
		return
	}

	writeJSON(w, http.StatusOK, followUp)
}

// Delete handles DELETE /api/v1/followups/{id}
func (h *FollowUpHandler) Delete(w http.ResponseWriter, r *http.Request) {
	followUp, ok := h.loadScoped(w, r)
	if !ok {
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(followUp).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to delete follow-up"))
		return
	}

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Follow-up deleted"})
}

func (h *FollowUpHandler) loadScoped(w http.ResponseWriter, r *http.Request) (*models.ScheduledFollowUp, bool) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	followUpID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.Error("Invalid follow-up ID"))
		return nil, false
	}

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseOutreach, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return nil, false
	}

	query := decision.Scope(h.db.WithContext(r.Context()).Where("scheduled_follow_ups.id = ?", followUpID))

	var followUp models.ScheduledFollowUp
	if err := query.First(&followUp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSON(w, http.StatusNotFound, dto.Error("Follow-up not found"))
			return nil, false
		}
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to get follow-up"))
		return nil, false
	}

	return &followUp, true
}

package handlers

import (
	"net/http"

	"github.com/vani-hq/vani/internal/access"
	"github.com/vani-hq/vani/internal/api/dto"
	"github.com/vani-hq/vani/internal/api/middleware"
	"github.com/vani-hq/vani/internal/database/models"
	"gorm.io/gorm"
)

type AnalyticsHandler struct {
	db            *gorm.DB
	accessService *access.Service
}

func NewAnalyticsHandler(db *gorm.DB, accessService *access.Service) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, accessService: accessService}
}

type statusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type AnalyticsSummary struct {
	Success          bool          `json:"success"`
	Targets          int64         `json:"targets"`
	TargetsByStatus  []statusCount `json:"targets_by_status"`
	Outreach         int64         `json:"outreach"`
	OutreachByStatus []statusCount `json:"outreach_by_status"`
	Meetings         int64         `json:"meetings"`
	Replies          int64         `json:"replies"`
}

// Summary handles GET /api/v1/analytics/summary: engagement counts over the
// caller's visible industries.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reqIndustry := middleware.GetIndustryID(r.Context())

	_, decision, err := h.accessService.Authorize(r.Context(), userID, models.UseCaseAnalytics, reqIndustry)
	if err != nil {
		writeAccessError(w, err)
		return
	}

	scope := func(q *gorm.DB) *gorm.DB {
		if reqIndustry != nil {
			return q.Where("industry_id = ?", *reqIndustry)
		}
		return decision.Scope(q)
	}

	summary := AnalyticsSummary{Success: true}

	if err := scope(h.db.WithContext(r.Context()).Model(&models.Target{})).
		Count(&summary.Targets).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to compute summary"))
		return
	}
	if err := scope(h.db.WithContext(r.Context()).Model(&models.Target{})).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&summary.TargetsByStatus).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to compute summary"))
		return
	}
	if err := scope(h.db.WithContext(r.Context()).Model(&models.OutreachActivity{})).
		Count(&summary.Outreach).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to compute summary"))
		return
	}
	if err := scope(h.db.WithContext(r.Context()).Model(&models.OutreachActivity{})).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&summary.OutreachByStatus).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to compute summary"))
		return
	}
	if err := scope(h.db.WithContext(r.Context()).Model(&models.Meeting{})).
		Count(&summary.Meetings).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to compute summary"))
		return
	}
	if err := scope(h.db.WithContext(r.Context()).Model(&models.OutreachActivity{})).
		Where("status = ?", models.StatusReplied).
		Count(&summary.Replies).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.Error("Failed to compute summary"))
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/internal/notify"
	"github.com/vani-hq/vani/pkg/util"
	"gorm.io/gorm"
)

type Handler struct {
	db         *gorm.DB
	logger     *slog.Logger
	dispatcher *notify.Dispatcher
}

func NewHandler(db *gorm.DB, logger *slog.Logger, dispatcher *notify.Dispatcher) *Handler {
	return &Handler{
		db:         db,
		logger:     logger,
		dispatcher: dispatcher,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeNotifyEvent, h.HandleNotifyEvent)
	mux.HandleFunc(TypeFollowUpTick, h.HandleFollowUpTick)
}

// HandleNotifyEvent delivers one operator notification. The dispatcher is
// best-effort, so this handler never asks asynq for a retry.
func (h *Handler) HandleNotifyEvent(ctx context.Context, t *asynq.Task) error {
	var payload NotifyEventPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.logger.Info("dispatching notification",
		"provider", payload.Summary.Provider,
		"status", payload.Summary.Status,
	)

	return h.dispatcher.Send(ctx, payload.Summary)
}

// HandleFollowUpTick fires due follow-up reminders and advances their next
// run from the cron expression.
func (h *Handler) HandleFollowUpTick(ctx context.Context, t *asynq.Task) error {
	now := time.Now()

	var due []models.ScheduledFollowUp
	if err := h.db.WithContext(ctx).
		Preload("Target").
		Where("is_enabled = ? AND next_run_at <= ?", true, now.Unix()).
		Find(&due).Error; err != nil {
		return fmt.Errorf("loading due follow-ups: %w", err)
	}

	for _, fu := range due {
		targetName := ""
		if fu.Target != nil {
			targetName = fu.Target.Name
		}

		if err := h.dispatcher.Send(ctx, ingest.EventSummary{
			Provider:   "scheduler",
			Status:     models.StatusScheduled,
			TargetName: targetName,
			Detail:     fmt.Sprintf("follow-up reminder: %s", fu.Name),
		}); err != nil {
			h.logger.Error("follow-up notification failed", "follow_up_id", fu.ID, "error", err)
		}

		next, err := util.NextCronTime(fu.CronExpr, now)
		updates := map[string]interface{}{
			"last_run_at": now.Unix(),
		}
		if err != nil {
			// An expression that no longer parses disables the schedule
			// instead of firing forever.
			h.logger.Error("invalid follow-up cron expression", "follow_up_id", fu.ID, "error", err)
			updates["is_enabled"] = false
		} else {
			updates["next_run_at"] = next.Unix()
		}

		if err := h.db.WithContext(ctx).
			Model(&models.ScheduledFollowUp{}).
			Where("id = ?", fu.ID).
			Updates(updates).Error; err != nil {
			h.logger.Error("failed to advance follow-up schedule", "follow_up_id", fu.ID, "error", err)
		}
	}

	if len(due) > 0 {
		h.logger.Info("processed follow-up reminders", "count", len(due))
	}

	return nil
}

package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vani-hq/vani/internal/database/models"
	"gorm.io/gorm"
)

// EventSummary is the operator-facing digest of a notable webhook event.
type EventSummary struct {
	Provider   string             `json:"provider"`
	Status     models.EventStatus `json:"status"`
	Channel    models.Channel     `json:"channel,omitempty"`
	TargetName string             `json:"target_name,omitempty"`
	Detail     string             `json:"detail,omitempty"`
}

// Notifier hands a summary off for out-of-band delivery. Implementations are
// best-effort: a failed enqueue is logged by the caller, never propagated.
type Notifier interface {
	NotifyEvent(ctx context.Context, summary EventSummary) error
}

// Service applies mapped webhook events to outreach activities and meetings.
type Service struct {
	db       *gorm.DB
	logger   *slog.Logger
	notifier Notifier
}

func NewService(db *gorm.DB, logger *slog.Logger, notifier Notifier) *Service {
	return &Service{db: db, logger: logger, notifier: notifier}
}

// MessageEvent is one provider delivery/engagement event for an outreach
// message, already mapped into the internal vocabulary.
type MessageEvent struct {
	Provider      string
	RawType       string
	Status        models.EventStatus
	CorrelationID string
	Payload       string
}

// ProcessMessageEvent records the audit row and applies the status to the
// matching outreach activity. An event with no matching record is a no-op,
// not an error: stale and out-of-band deliveries are expected. A database
// failure is returned so the HTTP layer answers 5xx and the provider
// redelivers.
func (s *Service) ProcessMessageEvent(ctx context.Context, ev MessageEvent) error {
	var activity models.OutreachActivity
	err := s.db.WithContext(ctx).
		Where("correlation_id = ?", ev.CorrelationID).
		First(&activity).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.logger.Info("webhook event has no matching activity",
				"provider", ev.Provider,
				"event", ev.RawType,
				"correlation_id", ev.CorrelationID,
			)
			return s.audit(ctx, ev, false, "no matching record")
		}
		return fmt.Errorf("locating activity: %w", err)
	}

	applied, err := s.applyActivityStatus(ctx, &activity, ev.Status)
	if err != nil {
		return err
	}

	note := ""
	if !applied {
		note = "status not advanced"
	}
	if err := s.audit(ctx, ev, applied, note); err != nil {
		return err
	}

	if applied && Notable(ev.Status) {
		s.dispatchNotification(ctx, EventSummary{
			Provider:   ev.Provider,
			Status:     ev.Status,
			Channel:    activity.Channel,
			TargetName: s.targetName(ctx, activity.TargetID),
			Detail:     fmt.Sprintf("%s message %s", activity.Channel, ev.Status),
		})
	}

	return nil
}

// BookingEvent is one calendar-provider webhook, mapped into the internal
// vocabulary. The provider assigns BookingUID at scheduling time.
type BookingEvent struct {
	RawType       string
	Status        models.EventStatus
	BookingUID    string
	Title         string
	StartsAt      time.Time
	EndsAt        time.Time
	AttendeeEmail string
	Payload       string
}

// ProcessBookingEvent upserts the meeting for the booking and applies the
// status under the same monotonic rule as message events, with cancellation
// terminal. A "scheduled" event for an unknown booking creates the meeting,
// matched to a target by attendee email when possible.
func (s *Service) ProcessBookingEvent(ctx context.Context, ev BookingEvent) error {
	auditEv := MessageEvent{
		Provider:      ProviderCal,
		RawType:       ev.RawType,
		Status:        ev.Status,
		CorrelationID: ev.BookingUID,
		Payload:       ev.Payload,
	}

	var meeting models.Meeting
	err := s.db.WithContext(ctx).
		Where("booking_uid = ?", ev.BookingUID).
		First(&meeting).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("locating meeting: %w", err)
		}
		if ev.Status != models.StatusScheduled {
			s.logger.Info("booking event has no matching meeting",
				"event", ev.RawType,
				"booking_uid", ev.BookingUID,
			)
			return s.audit(ctx, auditEv, false, "no matching record")
		}

		meeting = models.Meeting{
			BookingUID:    ev.BookingUID,
			Title:         ev.Title,
			Status:        models.StatusScheduled,
			StatusRank:    models.StatusScheduled.Rank(),
			StartsAt:      ev.StartsAt,
			EndsAt:        ev.EndsAt,
			AttendeeEmail: ev.AttendeeEmail,
		}
		s.matchTarget(ctx, &meeting)
		if err := s.db.WithContext(ctx).Create(&meeting).Error; err != nil {
			return fmt.Errorf("creating meeting: %w", err)
		}
		if err := s.audit(ctx, auditEv, true, "meeting created"); err != nil {
			return err
		}
		s.dispatchNotification(ctx, EventSummary{
			Provider:   ProviderCal,
			Status:     models.StatusScheduled,
			TargetName: s.targetName(ctx, meeting.TargetID),
			Detail:     fmt.Sprintf("meeting %q scheduled for %s", ev.Title, ev.StartsAt.Format(time.RFC1123)),
		})
		return nil
	}

	applied, err := s.applyMeetingStatus(ctx, &meeting, ev.Status)
	if err != nil {
		return err
	}

	note := ""
	if !applied {
		note = "status not advanced"
	}
	if err := s.audit(ctx, auditEv, applied, note); err != nil {
		return err
	}

	if applied && Notable(ev.Status) && ev.Status != models.StatusScheduled {
		s.dispatchNotification(ctx, EventSummary{
			Provider:   ProviderCal,
			Status:     ev.Status,
			TargetName: s.targetName(ctx, meeting.TargetID),
			Detail:     fmt.Sprintf("meeting %q %s", meeting.Title, ev.Status),
		})
	}

	return nil
}

// applyActivityStatus performs the guarded update. The rank predicate in the
// WHERE clause makes concurrent deliveries resolve by rank at the database
// row, and re-applying the same status a second time touches nothing.
func (s *Service) applyActivityStatus(ctx context.Context, activity *models.OutreachActivity, status models.EventStatus) (bool, error) {
	rank := status.Rank()
	res := s.db.WithContext(ctx).
		Model(&models.OutreachActivity{}).
		Where("id = ? AND status_rank < ?", activity.ID, rank).
		Updates(map[string]interface{}{
			"status":        status,
			"status_rank":   rank,
			"last_event_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("updating activity status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// applyMeetingStatus follows the same guarded update, with one extra rule:
// a cancelled meeting is terminal. A late MEETING_ENDED or no-show event for
// a booking the prospect already cancelled must not resurrect it.
func (s *Service) applyMeetingStatus(ctx context.Context, meeting *models.Meeting, status models.EventStatus) (bool, error) {
	rank := status.Rank()
	res := s.db.WithContext(ctx).
		Model(&models.Meeting{}).
		Where("id = ? AND status_rank < ? AND status <> ?", meeting.ID, rank, models.StatusCancelled).
		Updates(map[string]interface{}{
			"status":      status,
			"status_rank": rank,
		})
	if res.Error != nil {
		return false, fmt.Errorf("updating meeting status: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Service) audit(ctx context.Context, ev MessageEvent, processed bool, note string) error {
	payload := ev.Payload
	if payload == "" {
		payload = "{}"
	}
	row := models.WebhookEvent{
		Provider:      ev.Provider,
		EventType:     ev.RawType,
		CorrelationID: ev.CorrelationID,
		Payload:       payload,
		ProcessedOK:   processed,
		Note:          note,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("persisting audit row: %w", err)
	}
	return nil
}

// dispatchNotification is best-effort: a failed enqueue never fails the
// webhook that triggered it.
func (s *Service) dispatchNotification(ctx context.Context, summary EventSummary) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyEvent(ctx, summary); err != nil {
		s.logger.Error("failed to dispatch notification",
			"provider", summary.Provider,
			"status", summary.Status,
			"error", err,
		)
	}
}

func (s *Service) matchTarget(ctx context.Context, meeting *models.Meeting) {
	if meeting.AttendeeEmail == "" {
		return
	}
	var target models.Target
	if err := s.db.WithContext(ctx).Where("email = ?", meeting.AttendeeEmail).First(&target).Error; err != nil {
		return
	}
	meeting.TargetID = target.ID
	meeting.IndustryID = target.IndustryID
}

func (s *Service) targetName(ctx context.Context, targetID uuid.UUID) string {
	if targetID == uuid.Nil {
		return ""
	}
	var target models.Target
	if err := s.db.WithContext(ctx).First(&target, targetID).Error; err != nil {
		return ""
	}
	return target.Name
}

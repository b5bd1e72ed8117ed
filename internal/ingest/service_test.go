package ingest_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vani-hq/vani/internal/database/models"
	"github.com/vani-hq/vani/internal/ingest"
	"github.com/vani-hq/vani/internal/testutil"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []ingest.EventSummary
}

func (n *recordingNotifier) NotifyEvent(_ context.Context, summary ingest.EventSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, summary)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.summaries)
}

func newTestService(t *testing.T) (*ingest.Service, *gorm.DB, *recordingNotifier, *testutil.TestSetup) {
	t.Helper()
	tc := testutil.NewTestContext(t)
	t.Cleanup(tc.Cleanup)

	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := ingest.NewService(tc.DB, logger, notifier)
	return svc, tc.DB, notifier, tc
}

func activityStatus(t *testing.T, db *gorm.DB, correlationID string) (models.EventStatus, int) {
	t.Helper()
	var activity models.OutreachActivity
	require.NoError(t, db.Where("correlation_id = ?", correlationID).First(&activity).Error)
	return activity.Status, activity.StatusRank
}

func auditCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.WebhookEvent{}).Count(&count).Error)
	return count
}

func TestProcessMessageEvent_AdvancesStatus(t *testing.T) {
	svc, db, _, tc := newTestService(t)
	ctx := testutil.TestContext(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Ada")
	testutil.CreateTestActivity(t, db, target, models.ChannelEmail, "msg-1", tc.SuperUser)

	err := svc.ProcessMessageEvent(ctx, ingest.MessageEvent{
		Provider:      ingest.ProviderResend,
		RawType:       "email.delivered",
		Status:        models.StatusDelivered,
		CorrelationID: "msg-1",
	})
	require.NoError(t, err)

	status, rank := activityStatus(t, db, "msg-1")
	assert.Equal(t, models.StatusDelivered, status)
	assert.Equal(t, models.StatusDelivered.Rank(), rank)
	assert.Equal(t, int64(1), auditCount(t, db))
}

func TestProcessMessageEvent_StaleEventNeverRegresses(t *testing.T) {
	svc, db, _, tc := newTestService(t)
	ctx := testutil.TestContext(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Ada")
	testutil.CreateTestActivity(t, db, target, models.ChannelEmail, "msg-1", tc.SuperUser)

	// Reply arrives first, then a late delivery confirmation.
	require.NoError(t, svc.ProcessMessageEvent(ctx, ingest.MessageEvent{
		Provider: ingest.ProviderResend, RawType: "email.received",
		Status: models.StatusReplied, CorrelationID: "msg-1",
	}))
	require.NoError(t, svc.ProcessMessageEvent(ctx, ingest.MessageEvent{
		Provider: ingest.ProviderResend, RawType: "email.delivered",
		Status: models.StatusDelivered, CorrelationID: "msg-1",
	}))

	status, _ := activityStatus(t, db, "msg-1")
	assert.Equal(t, models.StatusReplied, status)

	// Both deliveries leave an audit row regardless.
	assert.Equal(t, int64(2), auditCount(t, db))
}

func TestProcessMessageEvent_RedeliveryIsIdempotent(t *testing.T) {
	svc, db, notifier, tc := newTestService(t)
	ctx := testutil.TestContext(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Ada")
	testutil.CreateTestActivity(t, db, target, models.ChannelEmail, "msg-1", tc.SuperUser)

	ev := ingest.MessageEvent{
		Provider: ingest.ProviderResend, RawType: "email.received",
		Status: models.StatusReplied, CorrelationID: "msg-1",
	}
	require.NoError(t, svc.ProcessMessageEvent(ctx, ev))
	require.NoError(t, svc.ProcessMessageEvent(ctx, ev))

	status, _ := activityStatus(t, db, "msg-1")
	assert.Equal(t, models.StatusReplied, status)

	// Only the delivery that advanced the status notifies.
	assert.Equal(t, 1, notifier.count())
}

func TestProcessMessageEvent_UnknownCorrelationIsNoOp(t *testing.T) {
	svc, db, notifier, _ := newTestService(t)
	ctx := testutil.TestContext(t)

	err := svc.ProcessMessageEvent(ctx, ingest.MessageEvent{
		Provider: ingest.ProviderResend, RawType: "email.delivered",
		Status: models.StatusDelivered, CorrelationID: "never-seen",
	})
	require.NoError(t, err)

	var audit models.WebhookEvent
	require.NoError(t, db.Where("correlation_id = ?", "never-seen").First(&audit).Error)
	assert.False(t, audit.ProcessedOK)
	assert.Equal(t, "no matching record", audit.Note)
	assert.Equal(t, 0, notifier.count())
}

func TestProcessMessageEvent_NotableStatusNotifies(t *testing.T) {
	svc, db, notifier, tc := newTestService(t)
	ctx := testutil.TestContext(t)

	target := testutil.CreateTestTarget(t, db, nil, tc.SuperUser, "Grace Hopper")
	testutil.CreateTestActivity(t, db, target, models.ChannelWhatsApp, "wa-1", tc.SuperUser)

	// A delivery update is not notable.
	require.NoError(t, svc.ProcessMessageEvent(ctx, ingest.MessageEvent{
		Provider: ingest.ProviderTwilio, RawType: "delivered",
		Status: models.StatusDelivered, CorrelationID: "wa-1",
	}))
	assert.Equal(t, 0, notifier.count())

	// A reply is.
	require.NoError(t, svc.ProcessMessageEvent(ctx, ingest.MessageEvent{
		Provider: ingest.ProviderTwilio, RawType: "received",
		Status: models.StatusReplied, CorrelationID: "wa-1",
	}))
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "Grace Hopper", notifier.summaries[0].TargetName)
	assert.Equal(t, models.ChannelWhatsApp, notifier.summaries[0].Channel)
}

func TestProcessBookingEvent_CreatesMeetingAndMatchesTarget(t *testing.T) {
	svc, db, notifier, tc := newTestService(t)
	ctx := testutil.TestContext(t)

	industry := testutil.CreateTestIndustry(t, db, "FMCG")
	target := testutil.CreateTestTarget(t, db, industry, tc.SuperUser, "Ada")

	starts := time.Now().Add(24 * time.Hour).Truncate(time.Second)
	err := svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType:       "BOOKING_CREATED",
		Status:        models.StatusScheduled,
		BookingUID:    "bk-1",
		Title:         "Intro call",
		StartsAt:      starts,
		EndsAt:        starts.Add(30 * time.Minute),
		AttendeeEmail: target.Email,
	})
	require.NoError(t, err)

	var meeting models.Meeting
	require.NoError(t, db.Where("booking_uid = ?", "bk-1").First(&meeting).Error)
	assert.Equal(t, models.StatusScheduled, meeting.Status)
	assert.Equal(t, target.ID, meeting.TargetID)
	require.NotNil(t, meeting.IndustryID)
	assert.Equal(t, industry.ID, *meeting.IndustryID)

	// Scheduling a meeting is notable.
	assert.Equal(t, 1, notifier.count())
}

func TestProcessBookingEvent_NonScheduledForUnknownBookingIsNoOp(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	ctx := testutil.TestContext(t)

	err := svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType:    "BOOKING_CANCELLED",
		Status:     models.StatusCancelled,
		BookingUID: "ghost",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Meeting{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestProcessBookingEvent_CancellationIsTerminal(t *testing.T) {
	svc, db, notifier, _ := newTestService(t)
	ctx := testutil.TestContext(t)

	starts := time.Now().Add(time.Hour)
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "BOOKING_CREATED", Status: models.StatusScheduled,
		BookingUID: "bk-1", Title: "Call", StartsAt: starts, EndsAt: starts.Add(time.Hour),
	}))
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "BOOKING_CANCELLED", Status: models.StatusCancelled, BookingUID: "bk-1",
	}))
	notified := notifier.count()

	// The calendar provider can still deliver MEETING_ENDED or a no-show
	// update for the cancelled slot; neither resurrects the meeting.
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "MEETING_ENDED", Status: models.StatusCompleted, BookingUID: "bk-1",
	}))
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "BOOKING_NO_SHOW_UPDATED", Status: models.StatusNoShow, BookingUID: "bk-1",
	}))

	var meeting models.Meeting
	require.NoError(t, db.Where("booking_uid = ?", "bk-1").First(&meeting).Error)
	assert.Equal(t, models.StatusCancelled, meeting.Status)

	// No spurious "completed" alert for a meeting that never happened.
	assert.Equal(t, notified, notifier.count())

	// Both late events still leave their audit rows.
	assert.Equal(t, int64(4), auditCount(t, db))
}

func TestProcessBookingEvent_StatusIsMonotonic(t *testing.T) {
	svc, db, _, _ := newTestService(t)
	ctx := testutil.TestContext(t)

	starts := time.Now().Add(time.Hour)
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "BOOKING_CREATED", Status: models.StatusScheduled,
		BookingUID: "bk-1", Title: "Call", StartsAt: starts, EndsAt: starts.Add(time.Hour),
	}))
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "MEETING_ENDED", Status: models.StatusCompleted, BookingUID: "bk-1",
	}))

	// A late cancellation cannot undo completion.
	require.NoError(t, svc.ProcessBookingEvent(ctx, ingest.BookingEvent{
		RawType: "BOOKING_CANCELLED", Status: models.StatusCancelled, BookingUID: "bk-1",
	}))

	var meeting models.Meeting
	require.NoError(t, db.Where("booking_uid = ?", "bk-1").First(&meeting).Error)
	assert.Equal(t, models.StatusCompleted, meeting.Status)
}

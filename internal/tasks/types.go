package tasks

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/vani-hq/vani/internal/ingest"
)

// Task type names
const (
	TypeNotifyEvent  = "notify:event"
	TypeFollowUpTick = "followups:tick"
)

// NotifyEventPayload carries an event summary to the worker for out-of-band
// delivery.
type NotifyEventPayload struct {
	Summary ingest.EventSummary `json:"summary"`
}

func NewNotifyEventTask(payload NotifyEventPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotifyEvent, data), nil
}

// NewFollowUpTickTask triggers one pass over due follow-up schedules.
func NewFollowUpTickTask() *asynq.Task {
	return asynq.NewTask(TypeFollowUpTick, nil)
}

// Enqueuer is the API-side producer. It satisfies ingest.Notifier so webhook
// handlers can hand summaries off without knowing about the queue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) NotifyEvent(ctx context.Context, summary ingest.EventSummary) error {
	if e.client == nil {
		return nil
	}
	task, err := NewNotifyEventTask(NotifyEventPayload{Summary: summary})
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task, asynq.Queue("critical"))
	return err
}

var _ ingest.Notifier = (*Enqueuer)(nil)

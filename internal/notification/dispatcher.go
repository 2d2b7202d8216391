package notification

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=dispatcher.go -destination=mock/dispatcher_mock.go -package=mock

// Dispatcher accepts leave status events for delivery. Implementations must
// be best-effort: callers never check delivery success and a failing
// dispatcher must not affect the workflow that emitted the event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event LeaveStatusEvent) error
}

// OutboxDispatcher stages events in the notification outbox; the publisher
// worker moves them to Kafka. Constructed once at startup and injected, so
// there is no package-level transporter state.
type OutboxDispatcher struct {
	outbox OutboxRepository
	logger *zap.Logger
}

func NewOutboxDispatcher(outbox OutboxRepository, logger ...*zap.Logger) *OutboxDispatcher {
	l := zap.L().Named("notification.dispatcher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.dispatcher")
	}
	return &OutboxDispatcher{outbox: outbox, logger: l}
}

func (d *OutboxDispatcher) Dispatch(ctx context.Context, event LeaveStatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = d.outbox.Create(ctx, OutboxEvent{
		ID:        uuid.NewString(),
		EventType: event.EventType,
		Topic:     LeaveStatusTopic,
		Key:       event.EmployeeID,
		Payload:   payload,
		Status:    OutboxStatusPending,
	})
	if err != nil {
		return err
	}

	d.logger.Debug("leave status event staged",
		zap.String("event_type", event.EventType),
		zap.String("request_id", event.RequestID),
	)
	return nil
}

// NopDispatcher discards events. Used when the notification pipeline is
// disabled and in tests.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(ctx context.Context, event LeaveStatusEvent) error {
	return nil
}

var _ Dispatcher = (*OutboxDispatcher)(nil)
var _ Dispatcher = NopDispatcher{}

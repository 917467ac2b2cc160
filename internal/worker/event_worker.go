package worker

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ict-helpdesk/servicedesk/internal/config"
	"github.com/ict-helpdesk/servicedesk/internal/events"
)

// EventWorker observes lifecycle events for operational visibility. It logs
// every event and, when configured, forwards a webhook stub. Failures here
// never reach the operation that published the event.
type EventWorker struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewEventWorker creates the worker.
func NewEventWorker(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *EventWorker {
	return &EventWorker{dispatcher: dispatcher, logger: logger, cfg: cfg}
}

// Start subscribes to all lifecycle event types.
func (w *EventWorker) Start() {
	if w.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketNoteAdded,
		events.EventTicketFileAttached,
		events.EventTicketFeedbackGiven,
		events.EventTaskUpdated,
		events.EventTaskRated,
	} {
		w.dispatcher.Subscribe(eventType, w.handle)
	}
}

func (w *EventWorker) handle(ctx context.Context, event events.Event) error {
	w.logger.Info("lifecycle event",
		zap.String("type", string(event.Type)),
		zap.Int64("entity_id", event.EntityID),
		zap.Int64("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	w.sendWebhookStub(ctx, event)
	return nil
}

func (w *EventWorker) sendWebhookStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(w.cfg.WebhookURL) == "" {
		return
	}
	w.logger.Debug("sendWebhookStub",
		zap.String("url", w.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.Int64("entity_id", event.EntityID))
}

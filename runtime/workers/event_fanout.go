package workers

import (
	"context"
	"log/slog"
	"time"

	"helplink/contract"
	"helplink/domain/event"
)

// EventFanout broadcasts conversation events to the sinks of everyone
// currently viewing the conversation, plus the permanent sinks (search
// index, projections, logs).
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// ordering across conversations, durability, or retries. EventFanout is
// not a message broker: durable writes happen before the event is
// published, live delivery is at-least-once on top of that.
//
// EventFanout is safe for concurrent use by multiple goroutines.
type EventFanout struct {
	log            *slog.Logger
	registry       contract.IRegistry
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewEventFanout(
	log *slog.Logger,
	registry contract.IRegistry,
	events chan event.DomainEvent,
	permanentSinks []contract.EventSink,
	sinkTimeout time.Duration,
) *EventFanout {
	return &EventFanout{
		log:            log,
		registry:       registry,
		events:         events,
		permanentSinks: permanentSinks,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers one event to every viewer sink of its conversation and
// to the permanent sinks. A slow sink only burns its own timeout.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	sinks := w.registry.GetSinksForConversation(evt.ConversationID())
	sinks = append(sinks, w.permanentSinks...)

	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink rejected event", "conversation", evt.ConversationID(), "error", err)
		}
		cancel()
	}
}

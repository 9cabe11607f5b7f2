package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"helplink/contract"
	"helplink/domain/event"
	"helplink/runtime/workers"

	"github.com/google/uuid"
)

// Hub wires event publication, fan-out, viewer sessions, and background
// recounts together. Components receive the hub (or the narrow interfaces
// it satisfies) through their constructors; nothing reaches for a global.
type Hub struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	counter        workers.IParticipantCounter
	events         chan event.DomainEvent
	recounts       chan string
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewHub(
	log *slog.Logger,
	supervisor contract.ISupervisor,
	registry contract.IRegistry,
	counter workers.IParticipantCounter,
	bufferSize int,
	sinkTimeout time.Duration,
) *Hub {
	return &Hub{
		log:         log,
		supervisor:  supervisor,
		registry:    registry,
		counter:     counter,
		events:      make(chan event.DomainEvent, bufferSize),
		recounts:    make(chan string, bufferSize),
		sinkTimeout: sinkTimeout,
	}
}

// AddSinks registers permanent sinks that observe every conversation event
// regardless of viewership (search index, projections, disk logs).
func (h *Hub) AddSinks(sinks ...contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permanentSinks = append(h.permanentSinks, sinks...)
}

// Publish hands an event to the fanout without blocking the caller. The
// durable write already happened; a full channel only costs live delivery.
func (h *Hub) Publish(evt event.DomainEvent) {
	select {
	case h.events <- evt:
	default:
		h.log.Warn(fmt.Sprintf("Event channel full for conversation %s, dropping live delivery",
			evt.ConversationID()))
	}
}

// RequestRecount schedules a best-effort participant recount for the post.
// Failure to enqueue never propagates to the conversation write.
func (h *Hub) RequestRecount(postID string) {
	select {
	case h.recounts <- postID:
	default:
		h.log.Warn(fmt.Sprintf("Recount channel full, dropping recount for post %s", postID))
	}
}

// Watch attaches a live viewer session to a conversation.
func (h *Hub) Watch(participantID string, conversationID uuid.UUID, sink contract.EventSink) {
	h.registry.Subscribe(participantID, conversationID, sink)
}

// Unwatch detaches a viewer session; teardown paths must call it, a leaked
// session keeps delivering into a dead sink.
func (h *Hub) Unwatch(participantID string, conversationID uuid.UUID) {
	h.registry.Unsubscribe(participantID, conversationID)
}

// Start registers the fanout and recount workers with the supervisor and
// blocks until supervision ends.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	fanout := workers.NewEventFanout(h.log, h.registry, h.events, h.permanentSinks, h.sinkTimeout)
	recount := workers.NewRecountWorker(h.counter, h.recounts, h.log)
	h.supervisor.Add(fanout, recount)
	h.mu.Unlock()

	h.log.Info("Starting hub and all supervised workers")
	h.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the supervised workers.
func (h *Hub) Stop() {
	h.log.Info("Requesting hub shutdown")
	h.supervisor.Stop()
}

package workers

import (
	"context"
	"log/slog"

	"helplink/contract"
)

// Ensure *RecountWorker implements the contract.Worker interface at compile
// time. This prevents type mismatches from appearing late in other packages
// and acts as a static assertion of the architectural rules.
var _ contract.Worker = (*RecountWorker)(nil)

// IParticipantCounter recomputes the derived participant count of a post.
type IParticipantCounter interface {
	Recompute(ctx context.Context, postID string) (int, error)
}

// RecountWorker drains participant-recount requests in the background.
// Recounts are best-effort: a failed recount is logged and never fails the
// conversation write that triggered it; the counter's own
// read-recompute-write retry already absorbed transient errors.
type RecountWorker struct {
	counter  IParticipantCounter
	requests chan string
	log      *slog.Logger
}

func NewRecountWorker(counter IParticipantCounter, requests chan string, log *slog.Logger) *RecountWorker {
	return &RecountWorker{counter: counter, requests: requests, log: log}
}

func (w *RecountWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping recount worker")
			return ctx.Err()
		case postID, ok := <-w.requests:
			if !ok {
				w.log.Debug("Recount channel is closed")
				return nil
			}
			count, err := w.counter.Recompute(ctx, postID)
			if err != nil {
				w.log.Warn("Participant recount abandoned", "post", postID, "error", err)
				continue
			}
			w.log.Debug("Participant count refreshed", "post", postID, "count", count)
		}
	}
}

package projection

import (
	"context"
	"sort"
	"sync"

	"helplink/domain"
	"helplink/domain/event"

	"github.com/google/uuid"
)

// Timeline holds one viewer's local view of a conversation. Live delivery
// is at-least-once (the same insert can arrive via direct response and via
// the subscription), so incoming messages are deduplicated by id and kept
// sorted by (created-at, id).
type Timeline struct {
	mu       sync.Mutex
	Owner    string
	seen     map[uuid.UUID]struct{}
	messages []domain.Message
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner: owner,
		seen:  make(map[uuid.UUID]struct{}),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		t.add(evt.Message)
	case event.ConversationRead:
		t.markRead(evt.ReaderID)
	}
	return nil
}

func (t *Timeline) add(message domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, dup := t.seen[message.ID]; dup {
		return
	}
	t.seen[message.ID] = struct{}{}

	at := sort.Search(len(t.messages), func(i int) bool {
		if !t.messages[i].CreatedAt.Equal(message.CreatedAt) {
			return t.messages[i].CreatedAt.After(message.CreatedAt)
		}
		return t.messages[i].ID.String() > message.ID.String()
	})
	t.messages = append(t.messages, domain.Message{})
	copy(t.messages[at+1:], t.messages[at:])
	t.messages[at] = message
}

// markRead mirrors the read receipt locally: everything the reader did not
// send becomes read. The flag never reverts.
func (t *Timeline) markRead(readerID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if t.messages[i].SenderID != readerID {
			t.messages[i].Read = true
		}
	}
}

// Messages returns a stable copy in (created-at, id) ascending order.
func (t *Timeline) Messages() []domain.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

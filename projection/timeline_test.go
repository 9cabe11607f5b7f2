package projection

import (
	"context"
	"testing"
	"time"

	"helplink/domain"
	"helplink/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func timelineMessage(sender, text string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		SenderID:       sender,
		Text:           text,
		CreatedAt:      at,
	}
}

func Test_Timeline_Deduplicates_Redelivered_Messages(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("alice")
	ctx := context.Background()

	message := timelineMessage("bob", "hello", time.Now().UTC())
	req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: message}))
	// Same insert again, e.g. once via response and once via subscription.
	req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: message}))

	req.Len(timeline.Messages(), 1)
}

func Test_Timeline_Keeps_Messages_Sorted(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("alice")
	ctx := context.Background()

	at := time.Now().UTC()
	first := timelineMessage("bob", "first", at)
	second := timelineMessage("alice", "second", at.Add(time.Second))
	third := timelineMessage("bob", "third", at.Add(2*time.Second))

	// Delivered out of order.
	for _, m := range []domain.Message{third, first, second} {
		req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: m}))
	}

	messages := timeline.Messages()
	req.Len(messages, 3)
	req.Equal("first", messages[0].Text)
	req.Equal("second", messages[1].Text)
	req.Equal("third", messages[2].Text)
}

func Test_Timeline_Breaks_Timestamp_Ties_By_ID(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("alice")
	ctx := context.Background()

	at := time.Now().UTC()
	a := timelineMessage("bob", "a", at)
	b := timelineMessage("bob", "b", at)

	req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: b}))
	req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: a}))

	messages := timeline.Messages()
	req.Len(messages, 2)
	req.Less(messages[0].ID.String(), messages[1].ID.String())
}

func Test_Timeline_Mirrors_Read_Receipts(t *testing.T) {
	req := require.New(t)
	timeline := NewTimeline("alice")
	ctx := context.Background()

	at := time.Now().UTC()
	fromBob := timelineMessage("bob", "hi alice", at)
	fromAlice := timelineMessage("alice", "hi bob", at.Add(time.Second))
	req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: fromBob}))
	req.NoError(timeline.Consume(ctx, event.MessagePosted{Message: fromAlice}))

	req.NoError(timeline.Consume(ctx, event.ConversationRead{
		Conversation: fromBob.ConversationID,
		ReaderID:     "alice",
		Count:        1,
		At:           at.Add(2 * time.Second),
	}))

	messages := timeline.Messages()
	req.True(messages[0].Read)   // bob's message, read by alice
	req.False(messages[1].Read)  // alice's own message untouched

	// A second receipt changes nothing.
	req.NoError(timeline.Consume(ctx, event.ConversationRead{
		Conversation: fromBob.ConversationID,
		ReaderID:     "alice",
	}))
	req.True(timeline.Messages()[0].Read)
}

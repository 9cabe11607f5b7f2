package repositories

import (
	"log/slog"
	"testing"
	"time"

	"helplink/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func storedMessage(conversationID uuid.UUID, sender, text string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       sender,
		Text:           text,
		CreatedAt:      at,
	}
}

func Test_ListOrdered_Sorts_By_Time_Then_ID(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	conversationID := uuid.New()
	at := time.Now().UTC()
	early := storedMessage(conversationID, "alice", "first", at)
	late := storedMessage(conversationID, "bob", "second", at.Add(time.Minute))
	// Same nanosecond as early: the id decides the order.
	tied := storedMessage(conversationID, "bob", "tied", at)

	for _, m := range []domain.Message{late, early, tied} {
		req.NoError(repository.Append(m))
	}

	fetched, err := repository.ListOrdered(conversationID)
	req.NoError(err)
	req.Len(fetched, 3)
	req.Equal(late.ID, fetched[2].ID)
	for i := 1; i < len(fetched); i++ {
		prev, cur := fetched[i-1], fetched[i]
		if prev.CreatedAt.Equal(cur.CreatedAt) {
			req.Less(prev.ID.String(), cur.ID.String())
		} else {
			req.True(prev.CreatedAt.Before(cur.CreatedAt))
		}
	}

	// Stable across repeated calls absent new writes.
	again, err := repository.ListOrdered(conversationID)
	req.NoError(err)
	req.Equal(fetched, again)
}

func Test_ListOrdered_Scopes_To_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	mine := uuid.New()
	other := uuid.New()
	at := time.Now().UTC()
	req.NoError(repository.Append(storedMessage(mine, "alice", "visible", at)))
	req.NoError(repository.Append(storedMessage(other, "bob", "elsewhere", at)))

	fetched, err := repository.ListOrdered(mine)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("visible", fetched[0].Text)
}

func Test_ListPage_Respects_Limit(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)

	conversationID := uuid.New()
	at := time.Now().UTC()
	for i, text := range []string{"one", "two", "three"} {
		req.NoError(repository.Append(storedMessage(conversationID, "alice", text, at.Add(time.Duration(i)*time.Minute))))
	}

	page, cursor, err := repository.ListPage(conversationID, nil)
	req.NoError(err)
	req.Len(page, limit)
	req.NotNil(cursor)
	// Newest first on the paged path.
	req.Equal("three", page[0].Text)

	// The last page carries no cursor.
	next, cursor, err := repository.ListPage(conversationID, cursor)
	req.NoError(err)
	req.Len(next, 1)
	req.Equal("one", next[0].Text)
	req.Nil(cursor)
}

func Test_ListPage_Without_Remainder_Has_No_Cursor(t *testing.T) {
	req := require.New(t)
	limit := 2
	repository := NewMessageRepository(openTestDB(t), slog.Default(), &limit)

	// Empty conversation: empty page, no cursor.
	page, cursor, err := repository.ListPage(uuid.New(), nil)
	req.NoError(err)
	req.Empty(page)
	req.Nil(cursor)

	// Exactly one full page: the page fills up but nothing remains.
	conversationID := uuid.New()
	at := time.Now().UTC()
	req.NoError(repository.Append(storedMessage(conversationID, "alice", "one", at)))
	req.NoError(repository.Append(storedMessage(conversationID, "bob", "two", at.Add(time.Minute))))

	page, cursor, err = repository.ListPage(conversationID, nil)
	req.NoError(err)
	req.Len(page, limit)
	req.Nil(cursor)
}

func Test_MarkRead_Flips_Only_Other_Partys_Unread(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	conversationID := uuid.New()
	at := time.Now().UTC()
	fromAlice := storedMessage(conversationID, "alice", "hi bob", at)
	fromBob := storedMessage(conversationID, "bob", "hi alice", at.Add(time.Second))
	req.NoError(repository.Append(fromAlice))
	req.NoError(repository.Append(fromBob))

	flipped, err := repository.MarkRead(conversationID, "bob")
	req.NoError(err)
	req.Equal(1, flipped)

	fetched, err := repository.ListOrdered(conversationID)
	req.NoError(err)
	req.True(fetched[0].Read)      // alice's message, read by bob
	req.False(fetched[1].Read)     // bob's own message stays unread

	// Repeating is a no-op; the flag never reverts.
	flipped, err = repository.MarkRead(conversationID, "bob")
	req.NoError(err)
	req.Zero(flipped)

	fetched, err = repository.ListOrdered(conversationID)
	req.NoError(err)
	req.True(fetched[0].Read)
}

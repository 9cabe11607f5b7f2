package repositories

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"helplink/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newConversation(postID, helperID, requesterID string) (domain.Conversation, domain.Message) {
	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:          uuid.New(),
		PostID:      postID,
		HelperID:    helperID,
		RequesterID: requesterID,
		LastMessage: "hello",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	first := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       helperID,
		Text:           "hello",
		CreatedAt:      now,
	}
	return conversation, first
}

func Test_Create_Then_Repeat_Returns_Winner(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	conversation, first := newConversation("post-1", "alice", "bob")
	winner, existing, err := repository.CreateWithFirstMessage(conversation, first)
	req.NoError(err)
	req.False(existing)
	req.Equal(conversation.ID, winner.ID)

	// Same triple again, fresh ids: the original row must win.
	duplicate, second := newConversation("post-1", "alice", "bob")
	winner, existing, err = repository.CreateWithFirstMessage(duplicate, second)
	req.NoError(err)
	req.True(existing)
	req.Equal(conversation.ID, winner.ID)

	conversations, err := repository.ListByPost("post-1")
	req.NoError(err)
	req.Len(conversations, 1)
}

func Test_Concurrent_Creates_Share_One_Conversation(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	messages := NewMessageRepository(db, slog.Default(), nil)

	type outcome struct {
		winner   domain.Conversation
		existing bool
		err      error
	}

	// All writers race on the same triple with fresh row and message ids.
	const writers = 8
	outcomes := make(chan outcome, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conversation, first := newConversation("post-1", "alice", "bob")
			winner, existing, err := conversations.CreateWithFirstMessage(conversation, first)
			outcomes <- outcome{winner: winner, existing: existing, err: err}
		}()
	}
	wg.Wait()
	close(outcomes)

	created := 0
	var winnerID uuid.UUID
	for o := range outcomes {
		req.NoError(o.err)
		if !o.existing {
			created++
		}
		if winnerID == uuid.Nil {
			winnerID = o.winner.ID
		}
		// Everyone, winner and losers alike, lands on the same row.
		req.Equal(winnerID, o.winner.ID)
	}
	req.Equal(1, created)

	rows, err := conversations.ListByPost("post-1")
	req.NoError(err)
	req.Len(rows, 1)

	// Exactly one first message survived the race.
	stored, err := messages.ListOrdered(winnerID)
	req.NoError(err)
	req.Len(stored, 1)
}

func Test_Create_Writes_First_Message_Atomically(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	conversations := NewConversationRepository(db, slog.Default())
	messages := NewMessageRepository(db, slog.Default(), nil)

	conversation, first := newConversation("post-1", "alice", "bob")
	_, _, err := conversations.CreateWithFirstMessage(conversation, first)
	req.NoError(err)

	stored, err := messages.ListOrdered(conversation.ID)
	req.NoError(err)
	req.Len(stored, 1)
	req.Equal(first.ID, stored[0].ID)

	// The losing duplicate must not have appended its message.
	duplicate, second := newConversation("post-1", "alice", "bob")
	_, _, err = conversations.CreateWithFirstMessage(duplicate, second)
	req.NoError(err)
	stored, err = messages.ListOrdered(conversation.ID)
	req.NoError(err)
	req.Len(stored, 1)
}

func Test_Distinct_Pairs_Get_Distinct_Conversations(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	first, msg1 := newConversation("post-1", "alice", "bob")
	second, msg2 := newConversation("post-1", "clara", "bob")
	third, msg3 := newConversation("post-2", "alice", "bob")

	for i, pair := range []struct {
		c domain.Conversation
		m domain.Message
	}{{first, msg1}, {second, msg2}, {third, msg3}} {
		_, existing, err := repository.CreateWithFirstMessage(pair.c, pair.m)
		req.NoError(err, "conversation %d", i)
		req.False(existing, "conversation %d", i)
	}

	conversations, err := repository.ListByPost("post-1")
	req.NoError(err)
	req.Len(conversations, 2)

	conversations, err = repository.ListByPost("post-2")
	req.NoError(err)
	req.Len(conversations, 1)
}

func Test_Touch_Updates_Denormalized_Fields(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	conversation, first := newConversation("post-1", "alice", "bob")
	_, _, err := repository.CreateWithFirstMessage(conversation, first)
	req.NoError(err)

	at := time.Now().UTC().Add(time.Minute)
	req.NoError(repository.Touch(conversation.ID, "see you at 5", at))

	fetched, err := repository.Get(conversation.ID)
	req.NoError(err)
	req.Equal("see you at 5", fetched.LastMessage)
	req.True(fetched.UpdatedAt.Equal(at))
}

func Test_Get_Missing_Conversation(t *testing.T) {
	req := require.New(t)
	repository := NewConversationRepository(openTestDB(t), slog.Default())

	_, err := repository.Get(uuid.New())
	req.Error(err)
}

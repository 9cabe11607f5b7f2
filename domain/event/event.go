package event

import (
	"helplink/domain"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is anything fanned out to the sinks of one conversation.
type DomainEvent interface {
	ConversationID() uuid.UUID
}

// MessagePosted is published after a message has been durably appended.
// Delivery to live viewers is at-least-once; consumers deduplicate by
// Message.ID.
type MessagePosted struct {
	Message domain.Message
}

func (e MessagePosted) ConversationID() uuid.UUID {
	return e.Message.ConversationID
}

// ConversationRead is published after a reader flipped the unread messages
// of the other party to read.
type ConversationRead struct {
	Conversation uuid.UUID
	ReaderID     string
	Count        int
	At           time.Time
}

func (e ConversationRead) ConversationID() uuid.UUID {
	return e.Conversation
}

// ConversationStarted is published when the coordinator creates a new
// conversation (not on the idempotent create-or-get fast path).
type ConversationStarted struct {
	Conversation domain.Conversation
}

func (e ConversationStarted) ConversationID() uuid.UUID {
	return e.Conversation.ID
}

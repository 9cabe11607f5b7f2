package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents one chat entry inside a Conversation.
// Messages are totally ordered per conversation by (CreatedAt, ID);
// the ID breaks ties between same-timestamp inserts.
// Read transitions only false -> true and never reverts.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	Lang           string    `json:"lang,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
}

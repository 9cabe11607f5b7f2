// Package domain contains core concepts of the help-interaction system.
// This file defines the Conversation entity and its identity rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the unique two-party thread tied to one post and one
// (helper, requester) pair. At most one Conversation exists per
// (PostID, HelperID, RequesterID) triple; the repository enforces this
// with a reference key committed in the same transaction as the row.
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	PostID      string    `json:"post_id"`
	HelperID    string    `json:"helper_id"`
	RequesterID string    `json:"requester_id"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasParticipant reports whether userID is one of the two parties.
func (c Conversation) HasParticipant(userID string) bool {
	return c.HelperID == userID || c.RequesterID == userID
}

// OtherParty returns the id of the participant facing userID.
func (c Conversation) OtherParty(userID string) string {
	if c.HelperID == userID {
		return c.RequesterID
	}
	return c.HelperID
}

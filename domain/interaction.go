package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind is the initiating action against a post.
type ActionKind string

const (
	ActionOfferHelp   ActionKind = "offer_help"
	ActionRequestHelp ActionKind = "request_help"
)

type InteractionStatus string

const (
	InteractionPending   InteractionStatus = "pending"
	InteractionAccepted  InteractionStatus = "accepted"
	InteractionDeclined  InteractionStatus = "declined"
	InteractionCancelled InteractionStatus = "cancelled"
)

// HelpOffer records an actor offering help on a post. Created once per
// (post, actor) pair; distinct from the Conversation it spawns.
type HelpOffer struct {
	ID            uuid.UUID         `json:"id"`
	PostID        string            `json:"post_id"`
	HelperID      string            `json:"helper_id"`
	RequesterID   string            `json:"requester_id"`
	Message       string            `json:"message"`
	Availability  string            `json:"availability,omitempty"`
	ContactMethod string            `json:"contact_method,omitempty"`
	SkillsOffered string            `json:"skills_offered,omitempty"`
	Status        InteractionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}

// HelpRequest records an actor asking the author of an offer post for help.
type HelpRequest struct {
	ID          uuid.UUID         `json:"id"`
	PostID      string            `json:"post_id"`
	HelperID    string            `json:"helper_id"`
	RequesterID string            `json:"requester_id"`
	Message     string            `json:"message"`
	Status      InteractionStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
}

// ResolveRoles maps an action against a post onto the fixed helper and
// requester roles. For offer_help the actor helps the author; for
// request_help the author is the helper.
func ResolveRoles(kind ActionKind, actorID, authorID string) (helperID, requesterID string) {
	if kind == ActionOfferHelp {
		return actorID, authorID
	}
	return authorID, actorID
}

package domain

import "time"

type PostType string

const (
	PostTypeRequest PostType = "request"
	PostTypeOffer   PostType = "offer"
)

// Post is the read-only view of a post owned by the external post service.
// The core never creates or deletes posts; it only consults the author and
// writes activity aggregates back through the IPostDirectory port.
type Post struct {
	ID       string
	AuthorID string
	Type     PostType
	Status   string
}

// PostActivity is the derived aggregate written back onto a post after a
// participant recount.
type PostActivity struct {
	PostID           string
	ParticipantCount int
	LastActivityAt   time.Time
}

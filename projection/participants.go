// Package projection builds read models derived from conversations and
// observed events. Handles ordering, deduplication, and aggregates.
// Does not emit events or interact with UI directly.
package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"helplink/contract"
	"helplink/domain"
	"helplink/errors"
	"helplink/repositories"

	"github.com/samber/lo"
)

// Counter derives the participant count of a post: the number of distinct
// user ids across the post's conversations, excluding the post's author.
// The count is always recomputed from the conversation set, never
// incremented, so concurrent offers cannot drift it.
type Counter struct {
	conversations repositories.IConversationRepository
	posts         contract.IPostDirectory
	log           *slog.Logger
	attempts      int
	backoff       time.Duration
}

func NewCounter(
	conversations repositories.IConversationRepository,
	posts contract.IPostDirectory,
	log *slog.Logger,
	attempts int,
	backoff time.Duration,
) *Counter {
	if attempts < 1 {
		attempts = 1
	}
	return &Counter{
		conversations: conversations,
		posts:         posts,
		log:           log,
		attempts:      attempts,
		backoff:       backoff,
	}
}

// Recompute reads the post's conversations, derives the distinct non-author
// participant set, and writes count plus last-activity back onto the post.
// On a transient write failure it re-reads and recomputes before retrying,
// rather than replaying a stale value.
func (c *Counter) Recompute(ctx context.Context, postID string) (int, error) {
	post, err := c.posts.GetPost(ctx, postID)
	if err != nil {
		return 0, err
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		conversations, err := c.conversations.ListByPost(postID)
		if err != nil {
			lastErr = err
		} else {
			count := len(distinctParticipants(conversations, post.AuthorID))
			err = c.posts.UpdatePostActivity(ctx, postID, count, time.Now().UTC())
			if err == nil {
				return count, nil
			}
			lastErr = err
		}

		c.log.Warn("Participant recount attempt failed",
			"post", postID, "attempt", attempt+1, "error", lastErr)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(c.backoff):
		}
	}
	return 0, fmt.Errorf("%w: participant recount for post %s: %v",
		errors.ErrTransientStorage, postID, lastErr)
}

// distinctParticipants collects every helper and requester id once,
// excluding the post's author. A user holding several conversations on the
// same post still counts as one participant.
func distinctParticipants(conversations []domain.Conversation, authorID string) []string {
	ids := lo.FlatMap(conversations, func(c domain.Conversation, _ int) []string {
		return []string{c.HelperID, c.RequesterID}
	})
	return lo.Filter(lo.Uniq(ids), func(id string, _ int) bool {
		return id != authorID
	})
}

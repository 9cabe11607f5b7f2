package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"helplink/domain"
	"helplink/domain/event"
	"helplink/errors"
	"helplink/moderation"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestModerator(t *testing.T) *moderation.Moderator {
	t.Helper()
	moderator, err := moderation.NewModerator([]string{"idiot"}, '*')
	require.NoError(t, err)
	return &moderator
}

// fakePosts implements contract.IPostDirectory against an in-memory map.
type fakePosts struct {
	mu          sync.Mutex
	posts       map[string]domain.Post
	authorNames map[string]string
	activity    []domain.PostActivity
	getCalls    int
	updateFails int
	nameErr     error
}

func newFakePosts(posts ...domain.Post) *fakePosts {
	f := &fakePosts{
		posts:       make(map[string]domain.Post),
		authorNames: make(map[string]string),
	}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePosts) GetPost(_ context.Context, id string) (domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	post, ok := f.posts[id]
	if !ok {
		return domain.Post{}, fmt.Errorf("%w: post %s", errors.ErrNotFound, id)
	}
	return post, nil
}

func (f *fakePosts) UpdatePostActivity(_ context.Context, id string, participantCount int, lastActivityAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateFails > 0 {
		f.updateFails--
		return fmt.Errorf("%w: post service unavailable", errors.ErrTransientStorage)
	}
	f.activity = append(f.activity, domain.PostActivity{
		PostID:           id,
		ParticipantCount: participantCount,
		LastActivityAt:   lastActivityAt,
	})
	return nil
}

func (f *fakePosts) FindAuthorName(_ context.Context, userID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nameErr != nil {
		return "", f.nameErr
	}
	name, ok := f.authorNames[userID]
	if !ok {
		return "", fmt.Errorf("%w: no post authored by %s", errors.ErrNotFound, userID)
	}
	return name, nil
}

// fakePublisher records what the services hand to the hub.
type fakePublisher struct {
	mu       sync.Mutex
	events   []event.DomainEvent
	recounts []string
}

func (f *fakePublisher) Publish(evt event.DomainEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
}

func (f *fakePublisher) RequestRecount(postID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recounts = append(f.recounts, postID)
}

func (f *fakePublisher) published() []event.DomainEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]event.DomainEvent, len(f.events))
	copy(out, f.events)
	return out
}

// fakeProfiles implements contract.IProfileStore.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]domain.Identity
	err      error
	getCalls int
}

func newFakeProfiles(identities ...domain.Identity) *fakeProfiles {
	f := &fakeProfiles{profiles: make(map[string]domain.Identity)}
	for _, identity := range identities {
		f.profiles[identity.UserID] = identity
	}
	return f
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (domain.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.err != nil {
		return domain.Identity{}, f.err
	}
	identity, ok := f.profiles[userID]
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: profile %s", errors.ErrNotFound, userID)
	}
	return identity, nil
}

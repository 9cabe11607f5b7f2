package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"helplink/domain"
	"helplink/errors"

	"github.com/stretchr/testify/require"
)

func Test_Resolve_Prefers_The_Profile_Store(t *testing.T) {
	req := require.New(t)
	profiles := newFakeProfiles(domain.Identity{UserID: "bob", DisplayName: "Bob B.", AvatarURL: "https://cdn/x.png"})
	posts := newFakePosts()
	posts.authorNames["bob"] = "stale name"
	resolver := NewProfileResolver(profiles, posts, slog.Default())

	identity, err := resolver.Resolve(context.Background(), "alice", "bob")
	req.NoError(err)
	req.Equal("Bob B.", identity.DisplayName)
	req.Equal("https://cdn/x.png", identity.AvatarURL)
}

func Test_Resolve_Falls_Back_To_Post_Author_Name(t *testing.T) {
	req := require.New(t)
	posts := newFakePosts()
	posts.authorNames["bob"] = "Bob from the post"
	resolver := NewProfileResolver(newFakeProfiles(), posts, slog.Default())

	identity, err := resolver.Resolve(context.Background(), "alice", "bob")
	req.NoError(err)
	req.Equal("Bob from the post", identity.DisplayName)
	req.Equal("bob", identity.UserID)
}

func Test_Resolve_Falls_Back_To_Placeholder(t *testing.T) {
	req := require.New(t)
	resolver := NewProfileResolver(newFakeProfiles(), newFakePosts(), slog.Default())

	identity, err := resolver.Resolve(context.Background(), "alice", "ghost")
	req.NoError(err)
	req.Equal(domain.PlaceholderIdentity("ghost"), identity)
}

func Test_Resolve_Survives_A_Broken_Store(t *testing.T) {
	req := require.New(t)
	profiles := newFakeProfiles()
	profiles.err = fmt.Errorf("%w: store timed out", errors.ErrTransientStorage)
	posts := newFakePosts()
	posts.authorNames["bob"] = "Bob from the post"
	resolver := NewProfileResolver(profiles, posts, slog.Default())

	identity, err := resolver.Resolve(context.Background(), "alice", "bob")
	req.NoError(err)
	req.Equal("Bob from the post", identity.DisplayName)
}

func Test_Resolve_Caches_The_Callers_Own_Identity(t *testing.T) {
	req := require.New(t)
	profiles := newFakeProfiles(domain.Identity{UserID: "alice", DisplayName: "Alice"})
	resolver := NewProfileResolver(profiles, newFakePosts(), slog.Default())
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, "alice", "alice")
	req.NoError(err)
	req.Equal("Alice", first.DisplayName)
	req.Equal(1, profiles.getCalls)

	// Second self-lookup is served from the cache.
	second, err := resolver.Resolve(ctx, "alice", "alice")
	req.NoError(err)
	req.Equal(first, second)
	req.Equal(1, profiles.getCalls)

	// Looking someone else up still hits the store.
	_, err = resolver.Resolve(ctx, "alice", "bob")
	req.NoError(err)
	req.Equal(2, profiles.getCalls)
}

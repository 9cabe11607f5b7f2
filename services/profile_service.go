package services

import (
	"context"
	goerrors "errors"
	"log/slog"
	"sync"

	"helplink/contract"
	"helplink/domain"
	"helplink/errors"
)

type IProfileResolver interface {
	Resolve(ctx context.Context, callerID, targetID string) (domain.Identity, error)
}

// ProfileResolver resolves a user id to a display identity through one
// fixed fallback chain, each step tried only if the prior yields nothing:
//
//  1. cached self-profile when the target is the caller
//  2. the profile store
//  3. the display name on any post authored by the target
//  4. a generic placeholder identity
//
// Call sites must not layer their own fallback logic on top.
type ProfileResolver struct {
	store contract.IProfileStore
	posts contract.IPostDirectory
	log   *slog.Logger

	mu        sync.RWMutex
	selfCache map[string]domain.Identity
}

func NewProfileResolver(store contract.IProfileStore, posts contract.IPostDirectory, log *slog.Logger) *ProfileResolver {
	return &ProfileResolver{
		store:     store,
		posts:     posts,
		log:       log,
		selfCache: make(map[string]domain.Identity),
	}
}

func (r *ProfileResolver) Resolve(ctx context.Context, callerID, targetID string) (domain.Identity, error) {
	if targetID == callerID {
		r.mu.RLock()
		cached, ok := r.selfCache[targetID]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}
	}

	identity, err := r.store.GetProfile(ctx, targetID)
	switch {
	case err == nil && identity.DisplayName != "":
		if targetID == callerID {
			r.cacheSelf(identity)
		}
		return identity, nil
	case err != nil && !goerrors.Is(err, errors.ErrNotFound):
		// The store being down must not block rendering; fall through.
		r.log.Warn("Profile store lookup failed, falling back", "user", targetID, "error", err)
	}

	name, err := r.posts.FindAuthorName(ctx, targetID)
	if err == nil && name != "" {
		return domain.Identity{UserID: targetID, DisplayName: name}, nil
	}
	if err != nil && !goerrors.Is(err, errors.ErrNotFound) {
		r.log.Warn("Author name lookup failed, falling back", "user", targetID, "error", err)
	}

	return domain.PlaceholderIdentity(targetID), nil
}

func (r *ProfileResolver) cacheSelf(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selfCache[identity.UserID] = identity
}

// Package runtime handles event propagation and live viewer sessions.
// It orchestrates the system without containing business logic or
// domain rules.
package runtime

import (
	"sync"

	"helplink/contract"

	"github.com/google/uuid"
)

type Set map[string]struct{}

// Registry maps live viewer connections onto the conversations they watch.
// Sessions and membership are kept separately so a user viewing several
// conversations still has their connection managed in a single place.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink
	viewers  map[uuid.UUID]Set
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.EventSink),
		viewers:  make(map[uuid.UUID]Set),
	}
}

// GetSinksForConversation resolves the active sinks of everyone currently
// viewing the conversation. Returns nil when nobody is watching.
func (r *Registry) GetSinksForConversation(id uuid.UUID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.viewers[id]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for participantID := range members {
		if sink, exists := r.sessions[participantID]; exists {
			activeSinks = append(activeSinks, sink)
		}
	}
	return activeSinks
}

// Subscribe registers a participant's active connection and attaches them
// to a conversation. Missing conversation entries are initialized lazily.
func (r *Registry) Subscribe(participantID string, conversationID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[participantID] = sink

	if _, ok := r.viewers[conversationID]; !ok {
		r.viewers[conversationID] = make(Set)
	}
	r.viewers[conversationID][participantID] = struct{}{}
}

// Unsubscribe removes a participant's session and conversation membership.
// Empty membership sets are dropped so closed conversations don't leak.
func (r *Registry) Unsubscribe(participantID string, conversationID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, participantID)

	if members, ok := r.viewers[conversationID]; ok {
		delete(members, participantID)
		if len(members) == 0 {
			delete(r.viewers, conversationID)
		}
	}
}

// Package presence tracks ephemeral online/offline membership per channel.
// State lives in memory only and is rebuilt from live events; durable
// storage is never the source of truth for who is online.
package presence

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"helplink/domain"
)

type EventKind string

const (
	KindJoin  EventKind = "join"
	KindLeave EventKind = "leave"
	KindSync  EventKind = "sync"
)

// Event is one membership transition delivered to channel subscribers.
// Join and leave carry the affected record; sync carries the full
// membership snapshot and overrides any previously inferred state.
type Event struct {
	Kind    EventKind
	Channel string
	Record  domain.PresenceRecord
	Members map[string]domain.PresenceRecord
}

type channelState struct {
	members  map[string]domain.PresenceRecord
	lastSeen map[string]time.Time
	subs     map[uint64]chan Event
}

// Tracker is the per-channel presence state machine. Every tracked user is
// either offline (initial) or online; join moves them online, leave moves
// them offline and records last-seen, sync reconciles the whole channel.
type Tracker struct {
	mu       sync.RWMutex
	log      *slog.Logger
	buffer   int
	nextSub  uint64
	channels map[string]*channelState
}

func NewTracker(log *slog.Logger, buffer int) *Tracker {
	if buffer <= 0 {
		buffer = 16
	}
	return &Tracker{
		log:      log,
		buffer:   buffer,
		channels: make(map[string]*channelState),
	}
}

func (t *Tracker) channel(name string) *channelState {
	state, ok := t.channels[name]
	if !ok {
		state = &channelState{
			members:  make(map[string]domain.PresenceRecord),
			lastSeen: make(map[string]time.Time),
			subs:     make(map[uint64]chan Event),
		}
		t.channels[name] = state
	}
	return state
}

// Join transitions the user to online on the channel and broadcasts it.
func (t *Tracker) Join(channel string, meta domain.PresenceMeta) {
	t.mu.Lock()
	state := t.channel(channel)
	record := domain.PresenceRecord{
		UserID:      meta.UserID,
		Online:      true,
		OnlineSince: meta.OnlineAt,
		Meta:        meta,
	}
	if record.OnlineSince.IsZero() {
		record.OnlineSince = time.Now().UTC()
		record.Meta.OnlineAt = record.OnlineSince
	}
	state.members[meta.UserID] = record
	t.mu.Unlock()

	t.broadcast(channel, Event{Kind: KindJoin, Channel: channel, Record: record})
}

// Leave transitions the user to offline, records last-seen at leave time,
// and broadcasts the departure so other viewers see a timely transition.
func (t *Tracker) Leave(channel, userID string) {
	now := time.Now().UTC()

	t.mu.Lock()
	state, ok := t.channels[channel]
	if !ok {
		t.mu.Unlock()
		return
	}
	record, tracked := state.members[userID]
	delete(state.members, userID)
	state.lastSeen[userID] = now
	t.mu.Unlock()

	if !tracked {
		record = domain.PresenceRecord{UserID: userID}
	}
	record.Online = false
	record.LastSeen = now
	t.broadcast(channel, Event{Kind: KindLeave, Channel: channel, Record: record})
}

// Sync replaces the channel membership with the given snapshot. Users no
// longer present are dropped (their last-seen is stamped now); previously
// inferred state does not survive a sync.
func (t *Tracker) Sync(channel string, membership map[string][]domain.PresenceMeta) {
	now := time.Now().UTC()

	t.mu.Lock()
	state := t.channel(channel)
	fresh := make(map[string]domain.PresenceRecord, len(membership))
	for userID, metas := range membership {
		if len(metas) == 0 {
			continue
		}
		// A user with several open clients appears once; the first meta wins.
		meta := metas[0]
		record := domain.PresenceRecord{
			UserID:      userID,
			Online:      true,
			OnlineSince: meta.OnlineAt,
			Meta:        meta,
		}
		fresh[userID] = record
	}
	for userID := range state.members {
		if _, still := fresh[userID]; !still {
			state.lastSeen[userID] = now
		}
	}
	state.members = fresh
	snapshot := cloneMembers(fresh)
	t.mu.Unlock()

	t.broadcast(channel, Event{Kind: KindSync, Channel: channel, Members: snapshot})
}

// Snapshot returns a copy of the current online membership.
func (t *Tracker) Snapshot(channel string) map[string]domain.PresenceRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.channels[channel]
	if !ok {
		return map[string]domain.PresenceRecord{}
	}
	return cloneMembers(state.members)
}

// LastSeen reports when the user last left the channel.
func (t *Tracker) LastSeen(channel, userID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, ok := t.channels[channel]
	if !ok {
		return time.Time{}, false
	}
	at, ok := state.lastSeen[userID]
	return at, ok
}

func (t *Tracker) broadcast(channel string, evt Event) {
	t.mu.RLock()
	state, ok := t.channels[channel]
	if !ok {
		t.mu.RUnlock()
		return
	}
	subs := make([]chan Event, 0, len(state.subs))
	for _, ch := range state.subs {
		subs = append(subs, ch)
	}
	t.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			t.log.Debug(fmt.Sprintf("Presence subscriber on %s too slow, event dropped", channel))
		}
	}
}

func (t *Tracker) register(channel string) (uint64, chan Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state := t.channel(channel)
	t.nextSub++
	ch := make(chan Event, t.buffer)
	state.subs[t.nextSub] = ch
	return t.nextSub, ch
}

func (t *Tracker) deregister(channel string, id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.channels[channel]
	if !ok {
		return
	}
	delete(state.subs, id)
	// Drop empty channels so leaked names don't accumulate.
	if len(state.subs) == 0 && len(state.members) == 0 {
		delete(t.channels, channel)
	}
}

func cloneMembers(members map[string]domain.PresenceRecord) map[string]domain.PresenceRecord {
	cloned := make(map[string]domain.PresenceRecord, len(members))
	for id, record := range members {
		cloned[id] = record
	}
	return cloned
}

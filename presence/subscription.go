package presence

import (
	"fmt"
	"sync/atomic"

	"helplink/domain"
	"helplink/errors"
)

type SubscriptionState int32

const (
	StateConnecting SubscriptionState = iota
	StateConnected
	StateDisconnected
)

func (s SubscriptionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Subscription is one client's cancellable view of a presence channel.
// Subscribing tracks the client itself on the channel; Unsubscribe leaves
// cleanly so other viewers observe a timely offline transition. A leaked
// subscription keeps its user persistently online for everyone else.
type Subscription struct {
	tracker *Tracker
	channel string
	self    domain.PresenceMeta
	id      uint64
	events  chan Event
	state   atomic.Int32
	left    atomic.Bool
}

// Subscribe registers a viewer on the channel, announces its own presence,
// and primes the event stream with a full sync snapshot so local state
// starts reconciled.
func (t *Tracker) Subscribe(channel string, self domain.PresenceMeta) *Subscription {
	s := &Subscription{tracker: t, channel: channel, self: self}
	s.state.Store(int32(StateConnecting))
	s.attach()
	return s
}

func (s *Subscription) attach() {
	s.left.Store(false)
	s.id, s.events = s.tracker.register(s.channel)
	s.tracker.Join(s.channel, s.self)

	snapshot := s.tracker.Snapshot(s.channel)
	select {
	case s.events <- Event{Kind: KindSync, Channel: s.channel, Members: snapshot}:
	default:
		s.tracker.log.Debug(fmt.Sprintf("Initial sync dropped on %s", s.channel))
	}
	s.state.Store(int32(StateConnected))
}

// Events yields membership transitions until Unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// EnsureConnected gates outgoing sends: while connecting or disconnected
// a send must be rejected client-side instead of silently queued.
func (s *Subscription) EnsureConnected() error {
	if s.State() != StateConnected {
		return fmt.Errorf("%w: presence channel %s is %s",
			errors.ErrNotConnected, s.channel, s.State())
	}
	return nil
}

// Drop simulates losing the transport: the viewer stops receiving events
// and moves to disconnected without leaving the channel cleanly.
func (s *Subscription) Drop() {
	if !s.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		return
	}
	s.tracker.deregister(s.channel, s.id)
}

// Resubscribe re-attaches a dropped subscription: connecting, re-track
// self, re-sync, connected. It is a no-op unless disconnected.
func (s *Subscription) Resubscribe() error {
	if !s.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("%w: resubscribe requires a disconnected channel", errors.ErrConflict)
	}
	s.attach()
	return nil
}

// Unsubscribe leaves the channel and tears the stream down. Safe to call
// from any state, including after Drop; repeated calls are no-ops. The
// leave is tracked separately from the subscription state: a drop also
// lands on disconnected, but its user is still online for everyone else
// and teardown must still emit exactly one timely leave.
func (s *Subscription) Unsubscribe() {
	prev := SubscriptionState(s.state.Swap(int32(StateDisconnected)))
	if prev != StateDisconnected {
		s.tracker.deregister(s.channel, s.id)
	}
	if s.left.CompareAndSwap(false, true) {
		s.tracker.Leave(s.channel, s.self.UserID)
	}
}

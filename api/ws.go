package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"helplink/contract"
	"helplink/domain"
	"helplink/domain/event"
	"helplink/presence"
	"helplink/repositories"
	"helplink/runtime"
	"helplink/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	readDeadline = 90 * time.Second
	writeTimeout = 10 * time.Second
	readLimit    = int64(4 << 10)
)

// Frame is the wire format of the realtime channel. The presence protocol
// carries join/sync/leave; message and read mirror conversation events;
// send is the only client-initiated frame besides ping.
type Frame struct {
	Type       string                           `json:"type"`
	Message    *domain.Message                  `json:"message,omitempty"`
	Presence   *domain.PresenceRecord           `json:"presence,omitempty"`
	Membership map[string]domain.PresenceRecord `json:"membership,omitempty"`
	ReaderID   string                           `json:"reader_id,omitempty"`
	Text       string                           `json:"text,omitempty"`
	Error      string                           `json:"error,omitempty"`
}

// WSHandler upgrades a conversation view into a live session: the socket
// doubles as the viewer's event sink and its presence track.
type WSHandler struct {
	upgrader      websocket.Upgrader
	hub           *runtime.Hub
	tracker       *presence.Tracker
	conversations repositories.IConversationRepository
	messages      services.IMessageService
	profiles      services.IProfileResolver
	authn         contract.IAuthenticator
	log           *slog.Logger
}

func NewWSHandler(
	hub *runtime.Hub,
	tracker *presence.Tracker,
	conversations repositories.IConversationRepository,
	messages services.IMessageService,
	profiles services.IProfileResolver,
	authn contract.IAuthenticator,
	log *slog.Logger,
) *WSHandler {
	return &WSHandler{
		upgrader: websocket.Upgrader{
			// Origin is enforced by the CORS layer in front of the router.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub:           hub,
		tracker:       tracker,
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		authn:         authn,
		log:           log,
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authn.CurrentUserID(r.Context())
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		http.Error(w, "invalid conversation id", http.StatusBadRequest)
		return
	}
	conversation, err := h.conversations.Get(conversationID)
	if err != nil {
		http.Error(w, "conversation not found", http.StatusNotFound)
		return
	}
	if !conversation.HasParticipant(userID) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "user", userID, "error", err)
		return
	}

	identity, err := h.profiles.Resolve(r.Context(), userID, userID)
	if err != nil {
		identity = domain.PlaceholderIdentity(userID)
	}

	// Subscribing tracks this viewer on the conversation's presence
	// channel; everyone already watching receives the join.
	sub := h.tracker.Subscribe(conversationID.String(), domain.PresenceMeta{
		UserID:      userID,
		DisplayName: identity.DisplayName,
		AvatarURL:   identity.AvatarURL,
		OnlineAt:    time.Now().UTC(),
	})

	sess := &wsSession{conn: conn, userID: userID, log: h.log}
	h.hub.Watch(userID, conversationID, sess)

	// The session context dies with the socket, so an append in flight
	// when the client disappears is canceled instead of orphaned.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	done := make(chan struct{})
	go sess.presenceLoop(sub, done)

	h.readLoop(ctx, sess, sub, conversationID)

	// Teardown order matters: stop delivering before leaving the channel,
	// so the leave is not fanned into our own dead socket.
	close(done)
	h.hub.Unwatch(userID, conversationID)
	sub.Unsubscribe()
	_ = conn.Close()
}

// readLoop consumes client frames until the socket dies. Sends are
// rejected, not queued, while the presence subscription is not connected:
// a "sent" state with no delivery guarantee is worse than an error.
func (h *WSHandler) readLoop(ctx context.Context, sess *wsSession, sub *presence.Subscription, conversationID uuid.UUID) {
	sess.conn.SetReadLimit(readLimit)
	_ = sess.conn.SetReadDeadline(time.Now().Add(readDeadline))

	for {
		var frame Frame
		if err := sess.conn.ReadJSON(&frame); err != nil {
			h.log.Debug("Websocket closed", "user", sess.userID, "error", err)
			return
		}
		_ = sess.conn.SetReadDeadline(time.Now().Add(readDeadline))

		switch frame.Type {
		case "ping":
			sess.write(Frame{Type: "pong"})
		case "send":
			if err := sub.EnsureConnected(); err != nil {
				sess.write(Frame{Type: "error", Error: err.Error()})
				continue
			}
			if _, err := h.messages.Append(ctx, conversationID, sess.userID, frame.Text); err != nil {
				sess.write(Frame{Type: "error", Error: err.Error()})
			}
		default:
			sess.write(Frame{Type: "error", Error: fmt.Sprintf("unknown frame type %q", frame.Type)})
		}
	}
}

// wsSession adapts one socket into a contract.EventSink. Writes from the
// fanout and the presence loop are serialized by the mutex.
type wsSession struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	userID string
	log    *slog.Logger
}

func (s *wsSession) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.MessagePosted:
		message := evt.Message
		return s.write(Frame{Type: "message", Message: &message})
	case event.ConversationRead:
		return s.write(Frame{Type: "read", ReaderID: evt.ReaderID})
	}
	return nil
}

func (s *wsSession) presenceLoop(sub *presence.Subscription, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case evt, ok := <-sub.Events():
			if !ok {
				return
			}
			switch evt.Kind {
			case presence.KindJoin:
				record := evt.Record
				_ = s.write(Frame{Type: "join", Presence: &record})
			case presence.KindLeave:
				record := evt.Record
				_ = s.write(Frame{Type: "leave", Presence: &record})
			case presence.KindSync:
				_ = s.write(Frame{Type: "sync", Membership: evt.Members})
			}
		}
	}
}

func (s *wsSession) write(frame Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		s.log.Debug("Websocket write failed", "user", s.userID, "error", err)
		return err
	}
	return nil
}

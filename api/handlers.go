package api

import (
	"encoding/json"
	goerrors "errors"
	"log/slog"
	"net/http"
	"time"

	"helplink/contract"
	"helplink/errors"
	"helplink/internal"
	"helplink/presence"
	"helplink/search"
	"helplink/services"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type Handlers struct {
	interactions services.IInteractionService
	messages     services.IMessageService
	profiles     services.IProfileResolver
	authn        contract.IAuthenticator
	tracker      *presence.Tracker
	index        *search.Index
	log          *slog.Logger
}

func NewHandlers(
	interactions services.IInteractionService,
	messages services.IMessageService,
	profiles services.IProfileResolver,
	authn contract.IAuthenticator,
	tracker *presence.Tracker,
	index *search.Index,
	log *slog.Logger,
) *Handlers {
	return &Handlers{
		interactions: interactions,
		messages:     messages,
		profiles:     profiles,
		authn:        authn,
		tracker:      tracker,
		index:        index,
		log:          log,
	}
}

type offerHelpRequest struct {
	Message       string `json:"message"`
	Availability  string `json:"availability,omitempty"`
	ContactMethod string `json:"contact_method,omitempty"`
	SkillsOffered string `json:"skills_offered,omitempty"`
}

type requestHelpRequest struct {
	Message string `json:"message"`
}

type createConversationRequest struct {
	PostID         string `json:"post_id"`
	HelperID       string `json:"helper_id"`
	RequesterID    string `json:"requester_id"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

func (h *Handlers) OfferHelp(w http.ResponseWriter, r *http.Request) {
	actorID, err := h.authn.CurrentUserID(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req offerHelpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.ErrValidation)
		return
	}

	result, err := h.interactions.OfferHelp(r.Context(), services.OfferHelpCommand{
		PostID:        chi.URLParam(r, "postID"),
		ActorID:       actorID,
		Message:       req.Message,
		Availability:  req.Availability,
		ContactMethod: req.ContactMethod,
		SkillsOffered: req.SkillsOffered,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"offer_id":        result.OfferID,
		"conversation_id": result.ConversationID,
		"is_existing":     result.IsExisting,
	})
}

func (h *Handlers) RequestHelp(w http.ResponseWriter, r *http.Request) {
	actorID, err := h.authn.CurrentUserID(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req requestHelpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.ErrValidation)
		return
	}

	result, err := h.interactions.RequestHelp(r.Context(), services.RequestHelpCommand{
		PostID:  chi.URLParam(r, "postID"),
		ActorID: actorID,
		Message: req.Message,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"request_id":      result.RequestID,
		"conversation_id": result.ConversationID,
		"is_existing":     result.IsExisting,
	})
}

func (h *Handlers) CreateOrGetConversation(w http.ResponseWriter, r *http.Request) {
	actorID, err := h.authn.CurrentUserID(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.ErrValidation)
		return
	}

	result, err := h.interactions.CreateOrGetConversation(r.Context(),
		actorID, req.PostID, req.HelperID, req.RequesterID, req.InitialMessage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": result.ConversationID,
		"is_existing":     result.IsExisting,
	})
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	actorID, conversationID, err := h.conversationCall(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, errors.ErrValidation)
		return
	}

	message, err := h.messages.Append(r.Context(), conversationID, actorID, req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"message_id": message.ID,
		"created_at": message.CreatedAt.Format(time.RFC3339Nano),
	})
}

func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	actorID, conversationID, err := h.conversationCall(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if raw := r.URL.Query().Get("cursor"); raw != "" || r.URL.Query().Has("page") {
		var cursor *string
		if raw != "" {
			cursor = &raw
		}
		messages, next, err := h.messages.ListPage(r.Context(), conversationID, actorID, cursor)
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, map[string]any{"messages": messages, "cursor": next})
		return
	}

	messages, err := h.messages.ListOrdered(r.Context(), conversationID, actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handlers) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	actorID, conversationID, err := h.conversationCall(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	updated, err := h.messages.MarkRead(r.Context(), conversationID, actorID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (h *Handlers) SearchMessages(w http.ResponseWriter, r *http.Request) {
	actorID, conversationID, err := h.conversationCall(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// Listing authorization doubles as search authorization.
	if _, err = h.messages.ListOrdered(r.Context(), conversationID, actorID); err != nil {
		h.writeError(w, err)
		return
	}

	ids, err := h.index.Search(r.Context(), conversationID, r.URL.Query().Get("q"), 20)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"message_ids": ids})
}

func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	callerID, err := h.authn.CurrentUserID(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	identity, err := h.profiles.Resolve(r.Context(), callerID, chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, identity)
}

func (h *Handlers) GetPresence(w http.ResponseWriter, r *http.Request) {
	_, conversationID, err := h.conversationCall(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"membership": h.tracker.Snapshot(conversationID.String()),
	})
}

func (h *Handlers) OpsStats(w http.ResponseWriter, r *http.Request) {
	stats, err := internal.CollectSelfStats()
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) conversationCall(r *http.Request) (string, uuid.UUID, error) {
	actorID, err := h.authn.CurrentUserID(r.Context())
	if err != nil {
		return "", uuid.Nil, err
	}
	conversationID, err := uuid.Parse(chi.URLParam(r, "conversationID"))
	if err != nil {
		return "", uuid.Nil, errors.ErrValidation
	}
	return actorID, conversationID, nil
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn("Response encoding failed", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case goerrors.Is(err, errors.ErrAuthenticationRequired):
		status = http.StatusUnauthorized
	case goerrors.Is(err, errors.ErrForbidden):
		status = http.StatusForbidden
	case goerrors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case goerrors.Is(err, errors.ErrValidation):
		status = http.StatusBadRequest
	case goerrors.Is(err, errors.ErrConflict):
		status = http.StatusConflict
	case goerrors.Is(err, errors.ErrTransientStorage):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "error", err)
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

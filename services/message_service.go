package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"helplink/domain"
	"helplink/domain/event"
	"helplink/errors"
	"helplink/moderation"
	"helplink/repositories"

	"github.com/google/uuid"
)

// IEventPublisher is the hub surface the services need: best-effort live
// publication and recount scheduling, both after the durable write.
type IEventPublisher interface {
	Publish(evt event.DomainEvent)
	RequestRecount(postID string)
}

type IMessageService interface {
	Append(ctx context.Context, conversationID uuid.UUID, senderID, text string) (domain.Message, error)
	ListOrdered(ctx context.Context, conversationID uuid.UUID, readerID string) ([]domain.Message, error)
	ListPage(ctx context.Context, conversationID uuid.UUID, readerID string, cursor *string) ([]domain.Message, *string, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, readerID string) (int, error)
}

type MessageService struct {
	conversations repositories.IConversationRepository
	messages      repositories.IMessageRepository
	moderator     *moderation.Moderator
	publisher     IEventPublisher
	log           *slog.Logger
}

func NewMessageService(
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	moderator *moderation.Moderator,
	publisher IEventPublisher,
	log *slog.Logger,
) *MessageService {
	return &MessageService{
		conversations: conversations,
		messages:      messages,
		moderator:     moderator,
		publisher:     publisher,
		log:           log,
	}
}

// Append validates, moderates, and durably stores one message, then bumps
// the parent conversation and publishes the live event. Callers must not
// assume delivery unless Append returned nil: the write is the guarantee,
// the publication is best-effort on top.
func (s *MessageService) Append(ctx context.Context, conversationID uuid.UUID, senderID, text string) (domain.Message, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Message{}, fmt.Errorf("%w: message text is empty", errors.ErrValidation)
	}

	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return domain.Message{}, err
	}
	if !conversation.HasParticipant(senderID) {
		return domain.Message{}, fmt.Errorf("%w: %s is not part of conversation %s",
			errors.ErrForbidden, senderID, conversationID)
	}

	message := s.BuildMessage(conversationID, senderID, trimmed)
	if err = s.messages.Append(message); err != nil {
		return domain.Message{}, err
	}
	if err = s.conversations.Touch(conversationID, message.Text, message.CreatedAt); err != nil {
		return domain.Message{}, err
	}

	s.publisher.Publish(event.MessagePosted{Message: message})
	return message, nil
}

// BuildMessage assembles an unread message with moderated text and a
// language tag. Shared with the coordinator, which persists the first
// message atomically with the conversation row.
func (s *MessageService) BuildMessage(conversationID uuid.UUID, senderID, trimmed string) domain.Message {
	censored := s.moderator.Censor(trimmed)
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           censored,
		Lang:           moderation.DetectLanguage(censored),
		CreatedAt:      time.Now().UTC(),
		Read:           false,
	}
}

// ListOrdered returns the conversation's messages in (created-at, id)
// ascending order, the ordering consumers diff against.
func (s *MessageService) ListOrdered(ctx context.Context, conversationID uuid.UUID, readerID string) ([]domain.Message, error) {
	if err := s.authorize(conversationID, readerID); err != nil {
		return nil, err
	}
	return s.messages.ListOrdered(conversationID)
}

// ListPage returns the newest page of messages with an opaque cursor.
func (s *MessageService) ListPage(ctx context.Context, conversationID uuid.UUID, readerID string, cursor *string) ([]domain.Message, *string, error) {
	if err := s.authorize(conversationID, readerID); err != nil {
		return nil, nil, err
	}
	return s.messages.ListPage(conversationID, cursor)
}

// MarkRead flips every unread message not sent by the reader. Repeating
// the call is a no-op; the flag never reverts.
func (s *MessageService) MarkRead(ctx context.Context, conversationID uuid.UUID, readerID string) (int, error) {
	if err := s.authorize(conversationID, readerID); err != nil {
		return 0, err
	}
	count, err := s.messages.MarkRead(conversationID, readerID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publisher.Publish(event.ConversationRead{
			Conversation: conversationID,
			ReaderID:     readerID,
			Count:        count,
			At:           time.Now().UTC(),
		})
	}
	return count, nil
}

func (s *MessageService) authorize(conversationID uuid.UUID, userID string) error {
	conversation, err := s.conversations.Get(conversationID)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(userID) {
		return fmt.Errorf("%w: %s is not part of conversation %s",
			errors.ErrForbidden, userID, conversationID)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"helplink/contract"
	"helplink/domain"
	"helplink/domain/event"
	"helplink/errors"
	"helplink/repositories"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// RequestOrCreateCommand is the normalized form of an initiating action.
type RequestOrCreateCommand struct {
	PostID  string            `validate:"required"`
	ActorID string            `validate:"required"`
	Kind    domain.ActionKind `validate:"required,oneof=offer_help request_help"`
	Message string            `validate:"required"`
}

type OfferHelpCommand struct {
	PostID        string `validate:"required"`
	ActorID       string `validate:"required"`
	Message       string `validate:"required"`
	Availability  string
	ContactMethod string
	SkillsOffered string
}

type RequestHelpCommand struct {
	PostID  string `validate:"required"`
	ActorID string `validate:"required"`
	Message string `validate:"required"`
}

type InteractionResult struct {
	ConversationID uuid.UUID
	FirstMessageID uuid.UUID
	IsExisting     bool
}

type OfferResult struct {
	OfferID        uuid.UUID
	ConversationID uuid.UUID
	IsExisting     bool
}

type RequestResult struct {
	RequestID      uuid.UUID
	ConversationID uuid.UUID
	IsExisting     bool
}

type IInteractionService interface {
	RequestOrCreateConversation(ctx context.Context, cmd RequestOrCreateCommand) (InteractionResult, error)
	OfferHelp(ctx context.Context, cmd OfferHelpCommand) (OfferResult, error)
	RequestHelp(ctx context.Context, cmd RequestHelpCommand) (RequestResult, error)
	CreateOrGetConversation(ctx context.Context, actorID, postID, helperID, requesterID, initialMessage string) (InteractionResult, error)
}

// InteractionService is the coordinator turning a help-offer or
// help-request action into a durable, deduplicated conversation plus its
// first message.
type InteractionService struct {
	posts         contract.IPostDirectory
	conversations repositories.IConversationRepository
	interactions  repositories.IInteractionRepository
	messages      *MessageService
	publisher     IEventPublisher
	log           *slog.Logger
}

func NewInteractionService(
	posts contract.IPostDirectory,
	conversations repositories.IConversationRepository,
	interactions repositories.IInteractionRepository,
	messages *MessageService,
	publisher IEventPublisher,
	log *slog.Logger,
) *InteractionService {
	return &InteractionService{
		posts:         posts,
		conversations: conversations,
		interactions:  interactions,
		messages:      messages,
		publisher:     publisher,
		log:           log,
	}
}

// RequestOrCreateConversation is idempotent: repeating the same action
// (double-submitted form, retried request) returns the existing
// conversation with IsExisting=true and writes nothing new.
func (s *InteractionService) RequestOrCreateConversation(ctx context.Context, cmd RequestOrCreateCommand) (InteractionResult, error) {
	cmd.Message = strings.TrimSpace(cmd.Message)
	if err := validate.Struct(cmd); err != nil {
		return InteractionResult{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	post, err := s.posts.GetPost(ctx, cmd.PostID)
	if err != nil {
		return InteractionResult{}, err
	}
	if post.AuthorID == cmd.ActorID {
		return InteractionResult{}, fmt.Errorf("%w: cannot interact with your own post", errors.ErrForbidden)
	}

	helperID, requesterID := domain.ResolveRoles(cmd.Kind, cmd.ActorID, post.AuthorID)
	return s.createOrGet(ctx, post, helperID, requesterID, cmd.ActorID, cmd.Message)
}

// OfferHelp records the help offer and spawns (or finds) its conversation.
func (s *InteractionService) OfferHelp(ctx context.Context, cmd OfferHelpCommand) (OfferResult, error) {
	cmd.Message = strings.TrimSpace(cmd.Message)
	if err := validate.Struct(cmd); err != nil {
		return OfferResult{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	result, err := s.RequestOrCreateConversation(ctx, RequestOrCreateCommand{
		PostID:  cmd.PostID,
		ActorID: cmd.ActorID,
		Kind:    domain.ActionOfferHelp,
		Message: cmd.Message,
	})
	if err != nil {
		return OfferResult{}, err
	}

	post, err := s.posts.GetPost(ctx, cmd.PostID)
	if err != nil {
		return OfferResult{}, err
	}
	offer, _, err := s.interactions.PutOffer(domain.HelpOffer{
		ID:            uuid.New(),
		PostID:        cmd.PostID,
		HelperID:      cmd.ActorID,
		RequesterID:   post.AuthorID,
		Message:       cmd.Message,
		Availability:  cmd.Availability,
		ContactMethod: cmd.ContactMethod,
		SkillsOffered: cmd.SkillsOffered,
		Status:        domain.InteractionPending,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		return OfferResult{}, err
	}

	return OfferResult{
		OfferID:        offer.ID,
		ConversationID: result.ConversationID,
		IsExisting:     result.IsExisting,
	}, nil
}

// RequestHelp records the help request against an offer post.
func (s *InteractionService) RequestHelp(ctx context.Context, cmd RequestHelpCommand) (RequestResult, error) {
	cmd.Message = strings.TrimSpace(cmd.Message)
	if err := validate.Struct(cmd); err != nil {
		return RequestResult{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}

	result, err := s.RequestOrCreateConversation(ctx, RequestOrCreateCommand{
		PostID:  cmd.PostID,
		ActorID: cmd.ActorID,
		Kind:    domain.ActionRequestHelp,
		Message: cmd.Message,
	})
	if err != nil {
		return RequestResult{}, err
	}

	post, err := s.posts.GetPost(ctx, cmd.PostID)
	if err != nil {
		return RequestResult{}, err
	}
	request, _, err := s.interactions.PutRequest(domain.HelpRequest{
		ID:          uuid.New(),
		PostID:      cmd.PostID,
		HelperID:    post.AuthorID,
		RequesterID: cmd.ActorID,
		Message:     cmd.Message,
		Status:      domain.InteractionPending,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return RequestResult{}, err
	}

	return RequestResult{
		RequestID:      request.ID,
		ConversationID: result.ConversationID,
		IsExisting:     result.IsExisting,
	}, nil
}

// CreateOrGetConversation is the explicit-role variant of the coordinator.
// The caller must be one of the two parties.
func (s *InteractionService) CreateOrGetConversation(ctx context.Context, actorID, postID, helperID, requesterID, initialMessage string) (InteractionResult, error) {
	initialMessage = strings.TrimSpace(initialMessage)
	if initialMessage == "" {
		return InteractionResult{}, fmt.Errorf("%w: initial message is empty", errors.ErrValidation)
	}
	if helperID == "" || requesterID == "" || helperID == requesterID {
		return InteractionResult{}, fmt.Errorf("%w: helper and requester must be two distinct users", errors.ErrValidation)
	}
	if actorID != helperID && actorID != requesterID {
		return InteractionResult{}, fmt.Errorf("%w: caller is not part of the pair", errors.ErrForbidden)
	}

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return InteractionResult{}, err
	}
	return s.createOrGet(ctx, post, helperID, requesterID, actorID, initialMessage)
}

// createOrGet commits the conversation row, its uniqueness reference, and
// the first message in one storage transaction, then schedules the
// participant recount. Recount failure never fails the creation.
func (s *InteractionService) createOrGet(ctx context.Context, post domain.Post, helperID, requesterID, senderID, text string) (InteractionResult, error) {
	now := time.Now().UTC()
	conversation := domain.Conversation{
		ID:          uuid.New(),
		PostID:      post.ID,
		HelperID:    helperID,
		RequesterID: requesterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	first := s.messages.BuildMessage(conversation.ID, senderID, text)
	conversation.LastMessage = first.Text
	conversation.UpdatedAt = first.CreatedAt

	winner, existing, err := s.conversations.CreateWithFirstMessage(conversation, first)
	if err != nil {
		return InteractionResult{}, err
	}
	if existing {
		s.log.Debug("Conversation already exists, returning winner",
			"post", post.ID, "conversation", winner.ID)
		return InteractionResult{ConversationID: winner.ID, IsExisting: true}, nil
	}

	s.publisher.Publish(event.ConversationStarted{Conversation: winner})
	s.publisher.Publish(event.MessagePosted{Message: first})
	s.publisher.RequestRecount(post.ID)

	return InteractionResult{
		ConversationID: winner.ID,
		FirstMessageID: first.ID,
		IsExisting:     false,
	}, nil
}

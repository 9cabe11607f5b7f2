//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"helplink/domain"
	"helplink/domain/event"
	"reflect"
	"time"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives conversation events. Consume must be safe for
// concurrent use and should return quickly; the fanout applies a timeout.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry maps live viewer sessions onto conversations.
type IRegistry interface {
	GetSinksForConversation(id uuid.UUID) []EventSink
	Subscribe(participantID string, conversationID uuid.UUID, sink EventSink)
	Unsubscribe(participantID string, conversationID uuid.UUID)
}

// IPostDirectory is the port to the external post service.
type IPostDirectory interface {
	GetPost(ctx context.Context, id string) (domain.Post, error)
	UpdatePostActivity(ctx context.Context, id string, participantCount int, lastActivityAt time.Time) error
	// FindAuthorName returns the display name attached to any post authored
	// by userID, or errors.ErrNotFound when the user authored none.
	FindAuthorName(ctx context.Context, userID string) (string, error)
}

// IAuthenticator yields the caller identity or ErrAuthenticationRequired.
type IAuthenticator interface {
	CurrentUserID(ctx context.Context) (string, error)
}

// IProfileStore is the port to the external profile storage.
type IProfileStore interface {
	GetProfile(ctx context.Context, userID string) (domain.Identity, error)
}

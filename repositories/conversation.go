//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"helplink/domain"
	"helplink/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// writeAttempts bounds the optimistic-transaction retry loop.
// Badger aborts one of two overlapping read-write transactions with
// ErrConflict; re-running the closure observes the winner's writes.
const writeAttempts = 3

type IConversationRepository interface {
	CreateWithFirstMessage(conversation domain.Conversation, first domain.Message) (domain.Conversation, bool, error)
	Get(id uuid.UUID) (domain.Conversation, error)
	ListByPost(postID string) ([]domain.Conversation, error)
	Touch(id uuid.UUID, lastMessage string, at time.Time) error
}

type ConversationRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewConversationRepository(db *badger.DB, log *slog.Logger) ConversationRepository {
	return ConversationRepository{db: db, log: log}
}

// Key layout:
//
//	conv:{uuid}                            -> conversation row (JSON)
//	convref:{post}:{helper}:{requester}    -> conversation uuid
//	convpost:{post}:{uuid}                 -> empty (listing index)
//
// The convref key is the storage-level uniqueness constraint on the
// (post, helper, requester) triple: it is written in the same transaction
// as the row, so two racing creators cannot both commit.
func rowKey(id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("conv:%s", id))
}

func refKey(postID, helperID, requesterID string) []byte {
	return []byte(fmt.Sprintf("convref:%s:%s:%s", postID, helperID, requesterID))
}

func postIndexKey(postID string, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("convpost:%s:%s", postID, id))
}

// CreateWithFirstMessage inserts the conversation and its first message in
// one transaction, unless a conversation already exists for the
// (post, helper, requester) triple. It returns the winning row and whether
// it pre-existed; on the existing path the message is not written, which
// makes a double-submitted form safe to repeat. A concurrent identical
// insert loses the transaction race, re-reads, and comes back with the
// winner instead of an error.
func (r ConversationRepository) CreateWithFirstMessage(conversation domain.Conversation, first domain.Message) (domain.Conversation, bool, error) {
	var (
		winner   domain.Conversation
		existing bool
	)

	ref := refKey(conversation.PostID, conversation.HelperID, conversation.RequesterID)
	for attempt := 0; attempt < writeAttempts; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(ref)
			switch {
			case err == nil:
				return item.Value(func(val []byte) error {
					id, err := uuid.ParseBytes(val)
					if err != nil {
						return err
					}
					winner, err = getConversation(txn, id)
					existing = true
					return err
				})
			case goerrors.Is(err, badger.ErrKeyNotFound):
				// Triple is free: claim it and write the row atomically.
			default:
				return err
			}

			bytes, err := json.Marshal(conversation)
			if err != nil {
				return err
			}
			if err = txn.Set(ref, []byte(conversation.ID.String())); err != nil {
				return err
			}
			if err = txn.Set(rowKey(conversation.ID), bytes); err != nil {
				return err
			}
			if err = txn.Set(postIndexKey(conversation.PostID, conversation.ID), nil); err != nil {
				return err
			}
			msgBytes, err := json.Marshal(first)
			if err != nil {
				return err
			}
			if err = txn.Set(messageKey(first), msgBytes); err != nil {
				return err
			}
			winner = conversation
			existing = false
			return nil
		})
		if goerrors.Is(err, badger.ErrConflict) {
			r.log.Debug("Conversation insert lost a transaction race, re-reading winner",
				"post", conversation.PostID)
			continue
		}
		if err != nil {
			return domain.Conversation{}, false, fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
		}
		return winner, existing, nil
	}
	return domain.Conversation{}, false, fmt.Errorf("%w: conversation insert kept conflicting", errors.ErrTransientStorage)
}

func (r ConversationRepository) Get(id uuid.UUID) (domain.Conversation, error) {
	var conversation domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		conversation, err = getConversation(txn, id)
		return err
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, fmt.Errorf("%w: conversation %s", errors.ErrNotFound, id)
	}
	return conversation, err
}

// ListByPost walks the convpost index and resolves each row in the same
// read transaction, so the listing is a consistent snapshot.
func (r ConversationRepository) ListByPost(postID string) ([]domain.Conversation, error) {
	var conversations []domain.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("convpost:%s:", postID)
		prefix := []byte(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id, err := uuid.Parse(string(it.Item().Key()[len(prefixStr):]))
			if err != nil {
				return err
			}
			conversation, err := getConversation(txn, id)
			if err != nil {
				return err
			}
			conversations = append(conversations, conversation)
		}
		return nil
	})
	return conversations, err
}

// Touch denormalizes the latest message text and bumps UpdatedAt.
func (r ConversationRepository) Touch(id uuid.UUID, lastMessage string, at time.Time) error {
	for attempt := 0; attempt < writeAttempts; attempt++ {
		err := r.db.Update(func(txn *badger.Txn) error {
			conversation, err := getConversation(txn, id)
			if err != nil {
				return err
			}
			conversation.LastMessage = lastMessage
			conversation.UpdatedAt = at
			bytes, err := json.Marshal(conversation)
			if err != nil {
				return err
			}
			return txn.Set(rowKey(id), bytes)
		})
		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: conversation %s", errors.ErrNotFound, id)
		}
		return err
	}
	return fmt.Errorf("%w: conversation touch kept conflicting", errors.ErrTransientStorage)
}

func getConversation(txn *badger.Txn, id uuid.UUID) (domain.Conversation, error) {
	item, err := txn.Get(rowKey(id))
	if err != nil {
		return domain.Conversation{}, err
	}
	var conversation domain.Conversation
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &conversation)
	})
	return conversation, err
}

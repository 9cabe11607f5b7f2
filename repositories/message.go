//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"

	"helplink/domain"
	"helplink/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Append(message domain.Message) error
	ListOrdered(conversationID uuid.UUID) ([]domain.Message, error)
	ListPage(conversationID uuid.UUID, cursor *string) ([]domain.Message, *string, error)
	MarkRead(conversationID uuid.UUID, readerID string) (int, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// messageKey formats "msg:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order equals (created-at, id) order).
//  2. Prevent data loss by using the UUID as a collision disconnector if
//     two messages land on the same nanosecond.
func messageKey(message domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s",
		message.ConversationID,
		message.CreatedAt.UnixNano(),
		message.ID,
	))
}

func (m MessageRepository) Append(message domain.Message) error {
	bytes, err := json.Marshal(message)
	if err != nil {
		return err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
	}
	return nil
}

// ListOrdered returns every message of the conversation sorted ascending by
// (created-at, id). Consumers rely on this order for display and diffing.
func (m MessageRepository) ListOrdered(conversationID uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", conversationID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	return messages, err
}

// ListPage retrieves the newest messages first using a reverse prefix scan.
// Thanks to the padded timestamp in the key, iteration order is time order.
// It stops once the configured limitMessages is reached and hands back the
// key remainder as an opaque cursor for the next page, or a nil cursor when
// the scan exhausted the conversation so callers can stop paging.
func (m MessageRepository) ListPage(conversationID uuid.UUID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	var more bool
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conversationID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			var message domain.Message
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &message)
			})
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		// Still valid means the limit cut the scan short, not the prefix.
		more = it.ValidForPrefix(prefix)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if !more {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}

// MarkRead flips Read to true on every message whose sender is not the
// reader and which is still unread, in one transaction. Already-read
// messages are left untouched, so the flag never reverts.
func (m MessageRepository) MarkRead(conversationID uuid.UUID, readerID string) (int, error) {
	var flipped int
	for attempt := 0; attempt < writeAttempts; attempt++ {
		flipped = 0
		err := m.db.Update(func(txn *badger.Txn) error {
			prefix := []byte(fmt.Sprintf("msg:%s:", conversationID))
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				var message domain.Message
				err := item.Value(func(val []byte) error {
					return json.Unmarshal(val, &message)
				})
				if err != nil {
					return err
				}
				if message.SenderID == readerID || message.Read {
					continue
				}
				message.Read = true
				bytes, err := json.Marshal(message)
				if err != nil {
					return err
				}
				if err = txn.Set(item.KeyCopy(nil), bytes); err != nil {
					return err
				}
				flipped++
			}
			return nil
		})
		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
		}
		return flipped, nil
	}
	return 0, fmt.Errorf("%w: mark-read kept conflicting", errors.ErrTransientStorage)
}

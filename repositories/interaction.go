//go:generate go run go.uber.org/mock/mockgen -source=interaction.go -destination=../mocks/mock_interaction_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"

	"helplink/domain"
	"helplink/errors"

	"github.com/dgraph-io/badger/v4"
)

type IInteractionRepository interface {
	PutOffer(offer domain.HelpOffer) (domain.HelpOffer, bool, error)
	PutRequest(request domain.HelpRequest) (domain.HelpRequest, bool, error)
}

// InteractionRepository stores the initiating help-offer and help-request
// records, one per (post, actor) pair. The key itself carries the pair, so
// a retried form submit lands on the existing record.
type InteractionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewInteractionRepository(db *badger.DB, log *slog.Logger) InteractionRepository {
	return InteractionRepository{db: db, log: log}
}

func offerKey(postID, helperID string) []byte {
	return []byte(fmt.Sprintf("offer:%s:%s", postID, helperID))
}

func requestKey(postID, requesterID string) []byte {
	return []byte(fmt.Sprintf("request:%s:%s", postID, requesterID))
}

func (r InteractionRepository) PutOffer(offer domain.HelpOffer) (domain.HelpOffer, bool, error) {
	winner := offer
	existing := false
	err := putOnce(r.db, offerKey(offer.PostID, offer.HelperID), offer, &winner, &existing)
	return winner, existing, err
}

func (r InteractionRepository) PutRequest(request domain.HelpRequest) (domain.HelpRequest, bool, error) {
	winner := request
	existing := false
	err := putOnce(r.db, requestKey(request.PostID, request.RequesterID), request, &winner, &existing)
	return winner, existing, err
}

// putOnce writes value under key unless the key is taken, in which case the
// stored record wins. Same claim-or-read pattern as conversation creation.
func putOnce[T any](db *badger.DB, key []byte, value T, winner *T, existing *bool) error {
	for attempt := 0; attempt < writeAttempts; attempt++ {
		err := db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(key)
			switch {
			case err == nil:
				*existing = true
				return item.Value(func(val []byte) error {
					return json.Unmarshal(val, winner)
				})
			case goerrors.Is(err, badger.ErrKeyNotFound):
			default:
				return err
			}
			bytes, err := json.Marshal(value)
			if err != nil {
				return err
			}
			*winner = value
			*existing = false
			return txn.Set(key, bytes)
		})
		if goerrors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
		}
		return nil
	}
	return fmt.Errorf("%w: interaction insert kept conflicting", errors.ErrTransientStorage)
}

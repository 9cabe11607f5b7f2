package repositories

import (
	"log/slog"
	"testing"
	"time"

	"helplink/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_Offer_Created_Once_Per_Post_And_Actor(t *testing.T) {
	req := require.New(t)
	repository := NewInteractionRepository(openTestDB(t), slog.Default())

	offer := domain.HelpOffer{
		ID:        uuid.New(),
		PostID:    "post-1",
		HelperID:  "alice",
		Message:   "I can help",
		Status:    domain.InteractionPending,
		CreatedAt: time.Now().UTC(),
	}

	winner, existing, err := repository.PutOffer(offer)
	req.NoError(err)
	req.False(existing)
	req.Equal(offer.ID, winner.ID)

	retry := offer
	retry.ID = uuid.New()
	winner, existing, err = repository.PutOffer(retry)
	req.NoError(err)
	req.True(existing)
	req.Equal(offer.ID, winner.ID)

	// A different actor on the same post gets their own record.
	other := offer
	other.ID = uuid.New()
	other.HelperID = "clara"
	_, existing, err = repository.PutOffer(other)
	req.NoError(err)
	req.False(existing)
}

func Test_Request_Created_Once_Per_Post_And_Actor(t *testing.T) {
	req := require.New(t)
	repository := NewInteractionRepository(openTestDB(t), slog.Default())

	request := domain.HelpRequest{
		ID:          uuid.New(),
		PostID:      "post-2",
		RequesterID: "bob",
		Message:     "could you help me",
		Status:      domain.InteractionPending,
		CreatedAt:   time.Now().UTC(),
	}

	_, existing, err := repository.PutRequest(request)
	req.NoError(err)
	req.False(existing)

	retry := request
	retry.ID = uuid.New()
	winner, existing, err := repository.PutRequest(retry)
	req.NoError(err)
	req.True(existing)
	req.Equal(request.ID, winner.ID)
}

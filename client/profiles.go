package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"helplink/domain"
	"helplink/errors"
)

// ProfileStore talks to the external profile service. It satisfies
// contract.IProfileStore.
type ProfileStore struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewProfileStore(baseURL string, timeout time.Duration, log *slog.Logger) *ProfileStore {
	return &ProfileStore{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (domain.Identity, error) {
	endpoint := fmt.Sprintf("%s/profiles/%s", s.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Identity{}, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.Identity{}, fmt.Errorf("%w: profile %s", errors.ErrNotFound, userID)
	case resp.StatusCode >= 500:
		return domain.Identity{}, fmt.Errorf("%w: profile service returned %d", errors.ErrTransientStorage, resp.StatusCode)
	case resp.StatusCode >= 400:
		return domain.Identity{}, fmt.Errorf("profile service returned %d", resp.StatusCode)
	}

	var identity domain.Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return domain.Identity{}, err
	}
	identity.UserID = userID
	return identity, nil
}

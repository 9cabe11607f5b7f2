// Package client implements the HTTP ports to the external collaborators:
// the post service and the profile store.
package client

import (
	"bytes"
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

// PostDirectory talks to the external post service. It satisfies
// contract.IPostDirectory.
type PostDirectory struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func NewPostDirectory(baseURL string, timeout time.Duration, log *slog.Logger) *PostDirectory {
	return &PostDirectory{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (d *PostDirectory) GetPost(ctx context.Context, id string) (domain.Post, error) {
	var post domain.Post
	err := d.getJSON(ctx, fmt.Sprintf("%s/posts/%s", d.baseURL, url.PathEscape(id)), &post)
	return post, err
}

// UpdatePostActivity writes the recomputed participant count and the last
// activity timestamp back onto the post record.
func (d *PostDirectory) UpdatePostActivity(ctx context.Context, id string, participantCount int, lastActivityAt time.Time) error {
	body, err := json.Marshal(map[string]any{
		"participant_count": participantCount,
		"last_activity_at":  lastActivityAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/posts/%s/activity", d.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: post %s", errors.ErrNotFound, id)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: post service returned %d", errors.ErrTransientStorage, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("post service rejected activity update with %d", resp.StatusCode)
	}
	return nil
}

func (d *PostDirectory) FindAuthorName(ctx context.Context, userID string) (string, error) {
	var payload struct {
		DisplayName string `json:"display_name"`
	}
	endpoint := fmt.Sprintf("%s/authors/%s/display-name", d.baseURL, url.PathEscape(userID))
	if err := d.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if payload.DisplayName == "" {
		return "", fmt.Errorf("%w: author %s has no display name", errors.ErrNotFound, userID)
	}
	return payload.DisplayName, nil
}

func (d *PostDirectory) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransientStorage, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.ErrNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: post service returned %d", errors.ErrTransientStorage, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("post service returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

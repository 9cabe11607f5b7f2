package domain

import "time"

// PresenceMeta is the public payload attached to a join frame.
type PresenceMeta struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	OnlineAt    time.Time `json:"online_at"`
}

// PresenceRecord is the ephemeral online/offline state of one user on one
// channel. It is rebuilt from live membership and never read from durable
// storage as source of truth.
type PresenceRecord struct {
	UserID      string       `json:"user_id"`
	Online      bool         `json:"online"`
	OnlineSince time.Time    `json:"online_since,omitempty"`
	LastSeen    time.Time    `json:"last_seen,omitempty"`
	Meta        PresenceMeta `json:"meta"`
}

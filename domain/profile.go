package domain

// Identity is the display identity a user id resolves to.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// PlaceholderIdentity is the last step of the resolver fallback chain,
// used when nothing else yields a display name.
func PlaceholderIdentity(userID string) Identity {
	return Identity{UserID: userID, DisplayName: "Neighbor"}
}

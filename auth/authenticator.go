package auth

import (
	"context"
	"fmt"

	"helplink/errors"
)

type contextKey struct{}

var userIDKey contextKey

// WithUserID stamps the validated caller identity onto the context. The
// HTTP middleware is the only writer.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Authenticator yields the caller identity previously validated by the
// middleware. It satisfies contract.IAuthenticator.
type Authenticator struct{}

func NewAuthenticator() Authenticator {
	return Authenticator{}
}

func (Authenticator) CurrentUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("%w: no caller identity on context", errors.ErrAuthenticationRequired)
	}
	return userID, nil
}

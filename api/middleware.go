package api

import (
	"net/http"
	"strings"

	"helplink/auth"
)

// AuthMiddleware validates the Bearer token and stamps the caller identity
// onto the request context. Requests without a valid token never reach the
// handlers behind it.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				// Websocket clients cannot set headers from browsers;
				// accept the token as a query parameter there.
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			claims, err := auth.ValidateToken(token, secret)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(r.Context(), claims.UserID)))
		})
	}
}

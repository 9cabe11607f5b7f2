package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"helplink/auth"

	"github.com/stretchr/testify/require"
)

func Test_AuthMiddleware(t *testing.T) {
	req := require.New(t)
	secret := []byte("test-secret")

	var seenUserID string
	handler := AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := auth.NewAuthenticator().CurrentUserID(r.Context())
		require.NoError(t, err)
		seenUserID = userID
		w.WriteHeader(http.StatusOK)
	}))

	token, err := auth.GenerateToken("alice", []string{"member"}, secret, time.Hour)
	req.NoError(err)

	t.Run("bearer header", func(t *testing.T) {
		seenUserID = ""
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		request.Header.Set("Authorization", "Bearer "+token)

		handler.ServeHTTP(recorder, request)

		req.Equal(http.StatusOK, recorder.Code)
		req.Equal("alice", seenUserID)
	})

	t.Run("token query parameter for websocket clients", func(t *testing.T) {
		seenUserID = ""
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/conversations?token="+token, nil)

		handler.ServeHTTP(recorder, request)

		req.Equal(http.StatusOK, recorder.Code)
		req.Equal("alice", seenUserID)
	})

	t.Run("missing token", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)

		handler.ServeHTTP(recorder, request)

		req.Equal(http.StatusUnauthorized, recorder.Code)
	})

	t.Run("tampered token", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
		request.Header.Set("Authorization", "Bearer "+token+"x")

		handler.ServeHTTP(recorder, request)

		req.Equal(http.StatusUnauthorized, recorder.Code)
	})
}

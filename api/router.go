package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Dependencies carries everything the routes need; the router never
// reaches for globals.
type Dependencies struct {
	Handlers       *Handlers
	WS             *WSHandler
	AuthSecret     []byte
	AllowedOrigins string
}

// SetupRoutes wires the exposed API surface onto the router.
func SetupRoutes(r *chi.Mux, deps Dependencies) {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(deps.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(deps.AuthSecret))

		r.Post("/api/posts/{postID}/offer-help", deps.Handlers.OfferHelp)
		r.Post("/api/posts/{postID}/request-help", deps.Handlers.RequestHelp)
		r.Post("/api/conversations", deps.Handlers.CreateOrGetConversation)

		r.Route("/api/conversations/{conversationID}", func(r chi.Router) {
			r.Get("/messages", deps.Handlers.ListMessages)
			r.Post("/messages", deps.Handlers.SendMessage)
			r.Get("/messages/search", deps.Handlers.SearchMessages)
			r.Post("/read", deps.Handlers.MarkConversationRead)
			r.Get("/presence", deps.Handlers.GetPresence)
			r.Get("/ws", deps.WS.Serve)
		})

		r.Get("/api/profiles/{userID}", deps.Handlers.GetProfile)
		r.Get("/api/ops/stats", deps.Handlers.OpsStats)
	})
}

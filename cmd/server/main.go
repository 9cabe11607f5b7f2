package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"helplink/api"
	"helplink/auth"
	"helplink/client"
	"helplink/internal"
	"helplink/moderation"
	"helplink/presence"
	"helplink/projection"
	"helplink/repositories"
	"helplink/runtime"
	"helplink/runtime/workers"
	"helplink/search"
	"helplink/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting. Deferred cleanups (database close, index
// close) execute before the process exits, and the initialization logic
// stays decoupled from the entry point.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Storage (BadgerDB + search index)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := search.NewIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 3. Moderation
	censoredChar, err := internal.CharacterRune(config.CensoredChar)
	if err != nil {
		return err
	}
	censored, err := moderation.LoadCensoredWords()
	if err != nil {
		return fmt.Errorf("censored words loading failed: %w", err)
	}
	log.Info(fmt.Sprintf("%d unique censored words loaded [%d languages]",
		len(censored.Words), len(censored.Languages)))
	moderator, err := moderation.NewModerator(censored.Words, censoredChar)
	if err != nil {
		return err
	}

	// 4. Repositories & collaborator ports
	conversations := repositories.NewConversationRepository(db, log)
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	interactions := repositories.NewInteractionRepository(db, log)
	posts := client.NewPostDirectory(config.PostServiceURL, config.CollaboratorTimeout, log)
	profiles := client.NewProfileStore(config.ProfileServiceURL, config.CollaboratorTimeout, log)

	// 5. Runtime: supervision, fanout, presence
	supervisor := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	counter := projection.NewCounter(conversations, posts, log, config.RecountAttempts, config.RecountBackoff)
	hub := runtime.NewHub(log, supervisor, registry, counter, config.BufferSize, config.SinkTimeout)
	hub.AddSinks(search.NewSink(index))
	tracker := presence.NewTracker(log, config.PresenceBuffer)

	// 6. Services
	messageService := services.NewMessageService(conversations, messages, &moderator, hub, log)
	interactionService := services.NewInteractionService(posts, conversations, interactions, messageService, hub, log)
	profileResolver := services.NewProfileResolver(profiles, posts, log)
	authenticator := auth.NewAuthenticator()

	// 7. HTTP surface
	handlers := api.NewHandlers(interactionService, messageService, profileResolver,
		authenticator, tracker, index, log)
	ws := api.NewWSHandler(hub, tracker, conversations, messageService, profileResolver,
		authenticator, log)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Dependencies{
		Handlers:       handlers,
		WS:             ws,
		AuthSecret:     []byte(config.AuthSecret),
		AllowedOrigins: config.AllowedOrigins,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: router,
	}

	// 8. Context & signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Start(ctx); err != nil {
			log.Error("Hub stopped with error", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Listening on %s", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}

	hub.Stop()
	<-hubDone
	log.Info("Shutdown complete")
	return nil
}

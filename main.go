package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"rpgchat/backend"
	"rpgchat/config"
	"rpgchat/db"
	"rpgchat/db/memory"
	"rpgchat/handlers"
	"rpgchat/logging"
	"rpgchat/middleware"
	"rpgchat/models"
	"rpgchat/registry"
	"rpgchat/retry"
	"rpgchat/session"
)

// owner is the participant recorded on conversations. The shell has no
// user accounts.
const owner = "local-player"

type store interface {
	backend.History
	session.Store
	handlers.ConversationLister
}

func main() {
	// Load .env file
	if err := config.LoadDotenv(); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Stderr.WriteString("Warning: failed to read .env: " + err.Error() + "\n")
	}

	cfg, err := config.Parse()
	if err != nil {
		os.Stderr.WriteString("Invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		os.Stderr.WriteString("Failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st store
	switch cfg.StorageBackend {
	case config.StorageMongo:
		client, mongoStore, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return err
		}
		defer db.Disconnect(client)
		if err := mongoStore.CreateIndexes(ctx); err != nil {
			return err
		}
		st = mongoStore
	default:
		log.Warn("Using in-memory storage; data is lost on exit")
		st = memory.NewStore()
	}

	var gen backend.Generator
	if cfg.GeminiAPIKey != "" {
		gemini, err := backend.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return err
		}
		gen = gemini
	} else {
		log.Warn("GEMINI_API_KEY is not set; only character recall questions are answered")
	}

	svc := backend.New(st, gen, backend.Options{Logger: log})
	defer svc.Close()

	identity := session.StaticIdentity(owner)
	sessions := registry.New(func(mode models.Mode) *session.Session {
		return session.New(svc, st, identity, session.Options{
			Mode:           mode,
			TypingRate:     cfg.TypingRate,
			CharacterRetry: retry.Constant(cfg.CharacterFetchRetries, cfg.CharacterFetchDelay),
			Logger:         log,
		})
	})
	defer sessions.Close()

	h := handlers.New(sessions, st, identity, log)
	server := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: middleware.Chain(h.Routes(),
			middleware.WithLogging(log),
			middleware.EnableCORS(cfg.AllowedOrigins),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server running", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageBackend))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

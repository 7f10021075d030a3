package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/speaker-scheduler/internal/application"
	"github.com/example/speaker-scheduler/internal/config"
	"github.com/example/speaker-scheduler/internal/geocoding"
	httptransport "github.com/example/speaker-scheduler/internal/http"
	"github.com/example/speaker-scheduler/internal/logging"
	"github.com/example/speaker-scheduler/internal/notify"
	"github.com/example/speaker-scheduler/internal/persistence/sqlite"
	"github.com/example/speaker-scheduler/internal/talks"
	"github.com/example/speaker-scheduler/internal/token"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("scheduler stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	wired, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := wired.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           wired.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

type app struct {
	handler http.Handler
	storage *sqlite.Storage
}

func (a *app) Close() error {
	if a == nil || a.storage == nil {
		return nil
	}
	return a.storage.Close()
}

// newApp opens and migrates storage and wires services to the router.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	storage, err := sqlite.OpenWithLogger(cfg.SQLiteDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	catalog := talks.Empty()
	if cfg.TalkCatalogPath != "" {
		catalog, err = talks.Load(cfg.TalkCatalogPath)
		if err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("load talk catalog: %w", err)
		}
		logger.Info("talk catalog loaded", "path", cfg.TalkCatalogPath, "talks", catalog.Len())
	}

	var distances application.DistanceCalculator
	if !cfg.Geocoder.Disabled {
		distances = geocoding.NewClient(geocoding.Options{
			BaseURL:       cfg.Geocoder.BaseURL,
			UserAgent:     cfg.Geocoder.UserAgent,
			CountrySuffix: cfg.Geocoder.CountrySuffix,
			Timeout:       cfg.Geocoder.Timeout,
			Logger:        logger,
		})
	}

	mailer := notify.NewMailer(notify.Options{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		AdminEmail: cfg.AdminEmail,
		AppURL:     cfg.AppURL,
		Logger:     logger,
	})
	if !mailer.Enabled() {
		logger.Warn("smtp not configured, notifications will be skipped")
	}

	idGenerator := func() string { return uuid.NewString() }
	now := time.Now

	speakers := newSpeakerRepositoryAdapter(storage)
	programs := newProgramRepositoryAdapter(storage)
	congregations := newCongregationRepositoryAdapter(storage)
	users := newUserRepositoryAdapter(storage)

	speakerService := application.NewSpeakerServiceWithLogger(speakers, programs, users, distances, catalog, idGenerator, now, logger)
	programService := application.NewProgramServiceWithLogger(programs, speakers, catalog, idGenerator, now, logger)
	congregationService := application.NewCongregationServiceWithLogger(congregations, speakers, idGenerator, now, logger)
	userService := application.NewUserServiceWithLogger(users, speakers, mailer, application.HashPassword, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(users, token.NewJWT(cfg.JWT.Secret, cfg.JWT.TTL), application.VerifyPassword, logger)

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:          httptransport.NewAuthHandler(authService, userService, logger),
		Users:         httptransport.NewUserHandler(userService, logger),
		Speakers:      httptransport.NewSpeakerHandler(speakerService, catalog, logger),
		Programs:      httptransport.NewProgramHandler(programService, catalog, logger),
		Congregations: httptransport.NewCongregationHandler(congregationService, logger),
		Session:       httptransport.RequireSession(authService, logger),
		Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return &app{handler: handler, storage: storage}, nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	fbapp "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"agriconnect/internal/adapter/api"
	"agriconnect/internal/adapter/repository"
	domainrepo "agriconnect/internal/domain/repository"
	"agriconnect/internal/domain/service"
	"agriconnect/internal/infrastructure/firebase"
	"agriconnect/internal/infrastructure/identity"
	"agriconnect/internal/infrastructure/matching"
	"agriconnect/internal/infrastructure/metrics"
	"agriconnect/internal/infrastructure/mysql"
	"agriconnect/internal/infrastructure/ratelimit"
	"agriconnect/internal/infrastructure/websocket"
	"agriconnect/internal/usecase"
	"agriconnect/pkg/config"
	"agriconnect/pkg/logger"
)

type stores struct {
	requests     domainrepo.RequestRepository
	messages     domainrepo.MessageRepository
	participants domainrepo.ParticipantRepository
	ping         func(ctx context.Context) error
	close        func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Configure(cfg.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func firebaseOption(cfg *config.Config) (option.ClientOption, error) {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON)), nil
	}
	if cfg.FirebaseServiceAccountPath == "" {
		return nil, fmt.Errorf("FIREBASE_SERVICE_ACCOUNT_JSON or FIREBASE_SERVICE_ACCOUNT_PATH is required")
	}
	if _, err := os.Stat(cfg.FirebaseServiceAccountPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("service account file does not exist: %s", cfg.FirebaseServiceAccountPath)
	}
	logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
	return option.WithCredentialsFile(cfg.FirebaseServiceAccountPath), nil
}

func openStores(ctx context.Context, cfg *config.Config, app *fbapp.App) (*stores, error) {
	switch cfg.StoreBackend {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		return &stores{
			requests:     repository.NewMemoryRequestRepository(),
			messages:     repository.NewMemoryMessageRepository(),
			participants: repository.NewMemoryParticipantRepository(),
			close:        func() {},
		}, nil

	case "firestore":
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		return &stores{
			requests:     repository.NewFirestoreRequestRepository(client),
			messages:     repository.NewFirestoreMessageRepository(client),
			participants: repository.NewFirestoreParticipantRepository(client),
			ping: func(ctx context.Context) error {
				_, err := client.Collection("counters").Limit(1).Documents(ctx).GetAll()
				return err
			},
			close: func() { client.Close() },
		}, nil

	case "mysql":
		db, err := mysql.Connect(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		if err := mysql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			requests:     repository.NewMySQLRequestRepository(db),
			messages:     repository.NewMySQLMessageRepository(db),
			participants: repository.NewMySQLParticipantRepository(db),
			ping:         db.PingContext,
			close:        func() { closeDB(db) },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Warn("closing mysql: %v", err)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var firebaseApp *fbapp.App
	if cfg.StoreBackend == "firestore" || cfg.IdentityProvider == "firebase" {
		opt, err := firebaseOption(cfg)
		if err != nil {
			return err
		}
		firebaseApp, err = fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase: %w", err)
		}
	}

	st, err := openStores(ctx, cfg, firebaseApp)
	if err != nil {
		return err
	}
	defer st.close()

	jwtResolver := identity.NewJWTResolver(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second, st.participants)
	var resolver usecase.IdentityResolver = jwtResolver
	if cfg.IdentityProvider == "firebase" {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase Auth: %w", err)
		}
		resolver = firebase.NewAuthResolver(authClient, st.participants)
	}
	cachedResolver := identity.NewCachedResolver(resolver, cfg.IdentityCacheSize, time.Minute)
	resolver = cachedResolver

	if cfg.IsDevelopment() {
		logger.Warn("Development mode: POST /v1/dev/token issues tokens without credentials")
	}

	m := metrics.New()
	limiter := ratelimit.NewRateLimiter(cfg.RateLimitPerMinute, nil)
	limiter.StartCleanupRoutine(ctx.Done())

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	collab := usecase.Collaborators{
		Notifier: wsManager,
		Limiter:  limiter,
		Recorder: m,
	}

	localMatcher := service.NewLocalMatcher(st.participants)
	var matchUseCase *usecase.MatchUseCase
	if cfg.MatchingServiceURL != "" {
		remote := matching.NewClient(cfg.MatchingServiceURL, time.Duration(cfg.MatchingTimeoutMs)*time.Millisecond)
		matchUseCase = usecase.NewMatchUseCase(remote, "remote", localMatcher, m)
	} else {
		matchUseCase = usecase.NewMatchUseCase(localMatcher, "local", nil, m)
	}

	e := api.NewServer(api.ServerDeps{
		Environment:     cfg.Environment,
		Backend:         cfg.StoreBackend,
		Ping:            st.ping,
		Resolver:        resolver,
		IdentityUseCase: usecase.NewIdentityUseCase(st.participants, jwtResolver, cachedResolver),
		RequestUseCase: usecase.NewRequestUseCase(st.requests, st.messages, st.participants, collab, usecase.RequestOptions{
			RejectDuplicatePending: cfg.RejectDuplicatePending,
			CascadeDeleteMessages:  cfg.CascadeDeleteMessages,
		}),
		ChatUseCase:  usecase.NewChatUseCase(st.messages, st.requests, collab),
		MatchUseCase: matchUseCase,
		WSManager:    wsManager,
		Limiter:      limiter,
		Metrics:      m,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server on port %s (store=%s, identity=%s)", cfg.ServerPort, cfg.StoreBackend, cfg.IdentityProvider)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-tracker-api/internal/auth"
	"github.com/yukikurage/project-tracker-api/internal/config"
	"github.com/yukikurage/project-tracker-api/internal/database"
	"github.com/yukikurage/project-tracker-api/internal/events"
	"github.com/yukikurage/project-tracker-api/internal/handlers"
	"github.com/yukikurage/project-tracker-api/internal/logger"
	"github.com/yukikurage/project-tracker-api/internal/repository"
	"github.com/yukikurage/project-tracker-api/internal/services"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync(zapLogger)

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.Server.GinMode)

	// Connect to database
	db, err := database.Connect(ctx, cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db, zapLogger); err != nil {
		return err
	}
	if err := database.SeedAdmin(ctx, db, cfg.Admin, zapLogger); err != nil {
		return err
	}

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	publisher, err := newPublisher(cfg, zapLogger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	store := repository.NewStore(db)
	tokens := auth.NewTokenManager(cfg.JWT)
	cascade := cfg.SoftDelete.Cascade

	authService := services.NewAuthService(store, tokens, publisher, zapLogger)
	if _, err := authService.PurgeRevokedTokens(ctx); err != nil {
		zapLogger.Warn("failed to purge revoked tokens", zap.Error(err))
	}

	router := handlers.NewRouter(handlers.Services{
		Auth:      authService,
		Companies: services.NewCompanyService(store, publisher, zapLogger, cascade),
		Projects:  services.NewProjectService(store, publisher, zapLogger, cascade),
		Tasks:     services.NewTaskService(store, publisher, zapLogger, cascade, aiService),
		Users:     services.NewUserService(store, publisher, zapLogger),
	}, sessionStore, zapLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newSessionStore uses Redis when configured and signed cookies otherwise.
func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}

	if !cfg.Redis.Enabled() {
		store := cookie.NewStore([]byte(cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		10,    // Redis pool size
		"tcp", // network type
		cfg.Redis.Addr(),
		"", // password
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		return nil, err
	}
	store.Options(options)
	return store, nil
}

func newPublisher(cfg *config.Config, zapLogger *zap.Logger) (events.Publisher, error) {
	if !cfg.Kafka.Enabled() {
		return events.NoopPublisher{}, nil
	}
	return events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, zapLogger)
}

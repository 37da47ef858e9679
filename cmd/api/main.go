// server/cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"sistema-bup-api-server/config"
	"sistema-bup-api-server/internal/analysis"
	"sistema-bup-api-server/internal/api/handlers"
	"sistema-bup-api-server/internal/api/routes"
	"sistema-bup-api-server/internal/auth"
	"sistema-bup-api-server/internal/database"
	"sistema-bup-api-server/internal/logging"
	"sistema-bup-api-server/internal/repository"
	"sistema-bup-api-server/internal/s3"
	"sistema-bup-api-server/internal/session"
	"sistema-bup-api-server/internal/socket"
	"sistema-bup-api-server/internal/store"
)

func main() {
	envErr := godotenv.Load()

	// 1. Load configuration
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		bootLogger := logging.New("info", false)
		bootLogger.Fatal().Err(err).Msg("could not load config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Pretty)
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("no .env file loaded")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Document store
	client, db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer client.Disconnect(context.Background())

	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure indexes")
	}

	gateway := repository.NewGateway(store.NewMongoStore(db), logger, repository.Options{
		ProjectsCollection: cfg.Mongo.ProjectsCollection,
		CascadeDelete:      cfg.Delete.Cascade,
	})
	aggregator := analysis.NewAggregator(gateway, logger)

	// 3. Authentication
	users := auth.NewMongoUserStore(db)
	if _, err := database.SeedAdmin(ctx, users, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed admin user")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}
	authService := auth.NewService(users, auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL()), revocationStore(cfg.Redis, logger), logger)

	// 4. Live updates
	hub := socket.NewHub(logger)
	if cfg.Mongo.Watch {
		go func() {
			if err := database.WatchAnalyses(ctx, db, hub, logger); err != nil {
				logger.Error().Err(err).Msg("analysis watcher stopped")
			}
		}()
	}

	// 5. Summary export
	var exporter handlers.SummaryExporter
	if cfg.S3.Bucket != "" {
		uploader, err := s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create S3 uploader")
		}
		exporter = uploader
	}

	router := routes.SetupRouter(routes.Dependencies{
		Gateway:     gateway,
		Aggregator:  aggregator,
		Auth:        authService,
		Hub:         hub,
		Exporter:    exporter,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	// 6. Start server
	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: router}
	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to run server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	logger.Info().Msg("server stopped")
}

func revocationStore(cfg config.RedisConfig, logger zerolog.Logger) auth.RevocationStore {
	if cfg.URL == "" {
		logger.Info().Msg("REDIS_URL not set, keeping revoked sessions in memory")
		return session.NewMemoryStore()
	}
	redisStore, err := session.NewRedisStore(cfg.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	return redisStore
}

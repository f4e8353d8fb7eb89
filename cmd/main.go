package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/senyabanana/proposal-service/internal/db"
	"github.com/senyabanana/proposal-service/internal/events"
	"github.com/senyabanana/proposal-service/internal/handlers"
	"github.com/senyabanana/proposal-service/internal/repository"
	"github.com/senyabanana/proposal-service/internal/router"
	"github.com/senyabanana/proposal-service/internal/router/config"
	"github.com/senyabanana/proposal-service/internal/services"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const serviceName = "proposal-service"

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("cannot load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	store, err := initStore(cfg)
	if err != nil {
		slog.Error("error initializing store", "store_type", cfg.StoreType, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var publisher events.Publisher = events.NewLogPublisher(serviceName, logger)
	if cfg.EventWebhookURL != "" {
		publisher = events.NewWebhookPublisher(serviceName, cfg.EventWebhookURL, logger)
	}

	proposalService := services.NewProposalService(store, publisher, time.Now)
	analyticsService := services.NewAnalyticsService(store, time.Now)

	proposalHandler := handlers.NewProposalHandler(proposalService, logger, cfg.RequestTimeout)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, logger, cfg.RequestTimeout)

	routes := router.InitRoutes(proposalHandler, analyticsHandler)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      routes,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server is listening", "addr", cfg.ServerAddress, "store_type", cfg.StoreType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
}

func initStore(cfg config.Config) (repository.Store, error) {
	switch cfg.StoreType {
	case config.MemoryStore:
		slog.Warn("using in-memory store, data will not survive a restart")
		return repository.NewMemoryRepository(), nil

	case config.MongoStore:
		client, err := db.InitMongo(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		repo := repository.NewMongoProposalRepository(client, cfg.MongoDB)
		if err := repo.EnsureIndexes(context.Background()); err != nil {
			slog.Warn("failed to create indexes", "error", err)
		}
		return repo, nil

	default:
		if err := runDBMigration(cfg.MigrationURL, cfg.PostgresConn); err != nil {
			return nil, err
		}
		dbPool, err := db.InitDb(cfg)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresProposalRepository(dbPool), nil
	}
}

func runDBMigration(migrationURL string, dbSource string) error {
	conn, err := sql.Open("postgres", dbSource)
	if err != nil {
		return err
	}
	defer conn.Close()

	driver, err := postgres.WithInstance(conn, &postgres.Config{})
	if err != nil {
		return err
	}

	migration, err := migrate.NewWithDatabaseInstance(migrationURL, "postgres", driver)
	if err != nil {
		return err
	}

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	slog.Info("db migrated successfully")
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"chatWs/internal/config"
	handler "chatWs/internal/modules/realtime/application/handler"
	usecase "chatWs/internal/modules/realtime/application/usecase"
	"chatWs/internal/modules/realtime/infrastructure"
	transport "chatWs/internal/modules/realtime/interface"
	"chatWs/internal/platform/broker"
	"chatWs/internal/platform/persistence"
	"chatWs/internal/shared/auth"
	"chatWs/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	if err := run(cfg); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		logFile.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	db, err := persistence.Open(persistence.Config{
		Driver:          cfg.Database.Driver,
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogQueries:      cfg.Database.LogQueries,
	})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := persistence.Close(db); err != nil {
			slog.Warn("database close failed", slog.Any("error", err))
		}
	}()
	store := persistence.NewStore(db)

	// JWT validator: RS256 when a public key is configured, HS256 otherwise
	validator, err := auth.NewJWTValidator(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
	if err != nil {
		return fmt.Errorf("jwt validator: %w", err)
	}

	// Use cases
	registry := infrastructure.NewRegistry(infrastructure.WithStrictInvariants(cfg.Websocket.StrictInvariants))
	lifecycle := usecase.NewLifecycle(registry)
	dispatcher := usecase.NewDispatcher(registry, lifecycle)
	authenticator := usecase.NewAuthenticator(validator, store)
	chatUC := usecase.NewChatUseCase(usecase.ChatDependencies{
		Lifecycle:    lifecycle,
		Dispatcher:   dispatcher,
		Messages:     store,
		Rooms:        store,
		Connections:  store,
		HistoryLimit: cfg.Websocket.HistoryLimit,
	})

	// Broker topic handlers
	announcements := handler.NewAnnouncementHandler(cfg.Kafka.AnnouncementsTopic, dispatcher)
	topics := infrastructure.NewHandlerRegistry()
	topics.Register(announcements)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", topics.Topics()))
	consumers := broker.StartKafkaConsumers(ctx, topics, cfg.Kafka.Brokers, cfg.Kafka.GroupID, topics.Topics())

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: allowOrigins(cfg.Server.AllowedOrigins)}))

	wsHandler := transport.NewHandler(transport.Dependencies{
		Chat:          chatUC,
		Lifecycle:     lifecycle,
		Authenticator: authenticator,
		Announcements: announcements,
		Client: infrastructure.ClientConfig{
			SendBuffer:   cfg.Websocket.SendBuffer,
			ReadLimit:    cfg.Websocket.ReadLimit,
			WriteWait:    cfg.Websocket.WriteWait,
			PongWait:     cfg.Websocket.PongWait,
			PingInterval: cfg.Websocket.PingInterval,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AnnounceAPIKey: cfg.Security.AnnounceAPIKey,
	})
	wsHandler.Register(e)

	serverErr := make(chan error, 1)
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for a stop signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-stop:
		slog.Info("shutting down", slog.String("signal", sig.String()))
	case err := <-serverErr:
		cancel()
		consumers.Wait()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Sessions must finish their disconnect writes before the database is closed.
	closed, err := wsHandler.Shutdown(shutdownCtx)
	if err != nil {
		slog.Warn("websocket sessions still running", slog.Int("closed", closed), slog.Any("error", err))
	} else {
		slog.Info("websocket connections closed", slog.Int("count", closed))
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", slog.Any("error", err))
	}

	cancel()
	consumers.Wait()
	counts := lifecycle.Snapshot()
	slog.Info("shutdown complete", slog.Int("remaining", counts.Active))
	return nil
}

func allowOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func setupLogging(cfg config.LoggingConfig) (*os.File, *slog.Logger, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}

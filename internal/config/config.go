package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"chatWs/internal/shared/logging"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Security  SecurityConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Websocket WebsocketConfig
}

type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type SecurityConfig struct {
	JWTSecret      string
	JWTPublicKey   string
	AnnounceAPIKey string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

type KafkaConfig struct {
	Brokers            []string
	GroupID            string
	AnnouncementsTopic string
}

type WebsocketConfig struct {
	SendBuffer       int
	ReadLimit        int64
	WriteWait        time.Duration
	PongWait         time.Duration
	PingInterval     time.Duration
	HistoryLimit     int
	StrictInvariants bool
}

// Load reads the environment. Every malformed value is reported, not just the first.
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:            envOr("PORT", "8000"),
			ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		},
		Logging: LoggingConfig{
			Directory: envOr("LOG_DIRECTORY", "./logs"),
			Level:     envOr("LOG_LEVEL", "info"),
			Format:    envOr("LOG_FORMAT", "text"),
		},
		Security: SecurityConfig{
			JWTSecret:      firstEnv("JWT_SECRET", "SECRET_KEY"),
			JWTPublicKey:   strings.ReplaceAll(os.Getenv("JWT_PUBLIC_KEY"), `\n`, "\n"),
			AnnounceAPIKey: strings.TrimSpace(os.Getenv("ANNOUNCE_API_KEY")),
		},
		Database: DatabaseConfig{
			Driver:          envOr("DB_DRIVER", "sqlite"),
			DSN:             envOr("DATABASE_URL", "chat.db"),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 0),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 0),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 0),
			LogQueries:      p.boolean("DB_LOG_QUERIES", false),
		},
		Kafka: KafkaConfig{
			Brokers:            splitList(firstEnv("KAFKA_BROKERS", "KAFKA_BROKER")),
			GroupID:            envOr("KAFKA_GROUP_ID", "chat-ws"),
			AnnouncementsTopic: envOr("KAFKA_ANNOUNCEMENTS_TOPIC", "chat.announcements"),
		},
		Websocket: WebsocketConfig{
			SendBuffer:       p.integer("WS_SEND_BUFFER", 64),
			ReadLimit:        int64(p.integer("WS_READ_LIMIT", 1<<16)),
			WriteWait:        p.duration("WS_WRITE_WAIT", 10*time.Second),
			PongWait:         p.duration("WS_PONG_WAIT", 60*time.Second),
			PingInterval:     p.duration("WS_PING_INTERVAL", 30*time.Second),
			HistoryLimit:     p.integer("WS_HISTORY_LIMIT", 50),
			StrictInvariants: p.boolean("WS_STRICT_INVARIANTS", false),
		},
	}

	if cfg.Security.JWTSecret == "" && cfg.Security.JWTPublicKey == "" {
		p.errs = append(p.errs, errors.New("JWT_SECRET or JWT_PUBLIC_KEY must be set"))
	}
	if _, ok := logging.LookupLevel(cfg.Logging.Level); !ok {
		p.errs = append(p.errs, fmt.Errorf("LOG_LEVEL: unknown level %q", cfg.Logging.Level))
	}
	if !logging.ValidFormat(cfg.Logging.Format) {
		p.errs = append(p.errs, fmt.Errorf("LOG_FORMAT: unknown format %q", cfg.Logging.Format))
	}
	if cfg.Websocket.PingInterval >= cfg.Websocket.PongWait {
		p.errs = append(p.errs, fmt.Errorf("WS_PING_INTERVAL (%s) must be shorter than WS_PONG_WAIT (%s)", cfg.Websocket.PingInterval, cfg.Websocket.PongWait))
	}
	if cfg.Websocket.HistoryLimit <= 0 {
		p.errs = append(p.errs, fmt.Errorf("WS_HISTORY_LIMIT must be positive, got %d", cfg.Websocket.HistoryLimit))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type parser struct {
	errs []error
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (p *parser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

package serverapi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/contenox/pkgbot/libbus"
	libdb "github.com/contenox/pkgbot/libdbexec"
	libkv "github.com/contenox/pkgbot/libkvstore"
	"github.com/contenox/pkgbot/libredact"
	"github.com/contenox/pkgbot/libroutine"
	"github.com/contenox/pkgbot/recipestore"
	"github.com/contenox/pkgbot/slacknotify"
	"github.com/contenox/pkgbot/trustworkflow"
)

const kvTimeout = 5 * time.Second

// connect retries fn a few times before giving up on a backing service.
func connect(ctx context.Context, fn func(ctx context.Context) error) error {
	return libroutine.NewRoutine(10, time.Minute).ExecuteWithRetry(ctx, time.Second, 3, fn)
}

// InitDatabase opens PostgreSQL when database_url is set, SQLite otherwise.
func InitDatabase(ctx context.Context, cfg *Config) (libdb.DBManager, error) {
	var dbInstance libdb.DBManager
	err := connect(ctx, func(ctx context.Context) error {
		var err error
		if cfg.DatabaseURL != "" {
			dbInstance, err = libdb.NewPostgresDBManager(ctx, cfg.DatabaseURL, recipestore.Schema)
		} else {
			dbInstance, err = libdb.NewSQLiteDBManager(ctx, cfg.GetSQLitePath(), recipestore.SchemaSQLite)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	return dbInstance, nil
}

// InitPubSub connects to NATS when nats_url is set and falls back to an
// in-process bus otherwise.
func InitPubSub(ctx context.Context, cfg *Config) (libbus.Messenger, error) {
	if cfg.NATSURL == "" {
		slog.Info("nats_url not set, using in-process bus")
		return libbus.NewInMem(), nil
	}
	var ps libbus.Messenger
	err := connect(ctx, func(ctx context.Context) error {
		var err error
		ps, err = libbus.NewPubSub(ctx, &libbus.Config{
			NATSURL:      cfg.NATSURL,
			NATSUser:     cfg.NATSUser,
			NATSPassword: cfg.NATSPassword,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return ps, nil
}

// InitKV connects to Valkey when kv_addr is set. The in-memory store only
// coordinates leases within one process.
func InitKV(ctx context.Context, cfg *Config) (libkv.KVManager, error) {
	if cfg.KVAddr == "" {
		slog.Info("kv_addr not set, using in-memory lease store")
		return libkv.NewInMemManager(), nil
	}
	var kv libkv.KVManager
	err := connect(ctx, func(ctx context.Context) error {
		var err error
		kv, err = libkv.NewManager(libkv.Config{KVAddr: cfg.KVAddr, KVPassword: cfg.KVPassword}, kvTimeout)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return kv, nil
}

func NewRedactor(cfg *Config) *libredact.Redactor {
	return libredact.New(append(cfg.Secrets(), libredact.SplitList(cfg.RedactionStrings)...)...)
}

// NewNotifier posts to Slack when a bot token is configured.
func NewNotifier(cfg *Config, redactor *libredact.Redactor) trustworkflow.Notifier {
	if cfg.SlackBotToken == "" {
		slog.Warn("slack_bot_token not set, notifications are only logged")
		return slacknotify.NewLogNotifier(slog.Default(), redactor)
	}
	return slacknotify.NewWithToken(cfg.SlackBotToken, cfg.SlackChannel, redactor)
}

// SetupLogging installs the default slog logger for log_level and
// log_format.
func SetupLogging(cfg *Config) error {
	var level slog.Level
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.LogFormat) {
	case "", "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log_format %q", cfg.LogFormat)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

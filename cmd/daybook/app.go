package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goodtune/daybook/internal/config"
	"github.com/goodtune/daybook/internal/labels"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/storage/bolt"
	"github.com/goodtune/daybook/internal/storage/redis"
	"github.com/goodtune/daybook/internal/tracker"
	"github.com/rs/zerolog"
)

// app bundles what every command needs: configuration, logger, store,
// label index and tracker.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   storage.Store
	labels  *labels.Index
	tracker *tracker.Tracker
}

// newApp loads the configuration and opens storage. Logs go to logOut.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging, logOut)

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	idx, err := labels.NewIndex(store.Labels(), cfg.Labels.CacheSize, cfg.Labels.SuggestionLimit, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	t := tracker.New(store, idx, tracker.RealClock{}, trackerConfig(cfg.Tracking), logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		labels:  idx,
		tracker: t,
	}, nil
}

// Close releases the store.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// cliApp opens the app for a one-shot command, logging to stderr.
func cliApp() (*app, error) {
	return newApp(os.Stderr)
}

func openStorage(cfg config.StorageConfig) (storage.Store, error) {
	storageType := cfg.Type
	if storageType == "" {
		storageType = "bolt"
	}

	switch storageType {
	case "bolt":
		return bolt.Open(cfg.Path)
	case "redis":
		return redis.Open(cfg.Redis)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'bolt' or 'redis')", storageType)
	}
}

func trackerConfig(cfg config.TrackingConfig) tracker.Config {
	return tracker.Config{
		WarnBefore:   parseDuration(cfg.WarnBefore, tracker.DefaultWarnBefore),
		AutoContinue: cfg.AutoContinue,
	}
}

// setupLogger configures the logger based on configuration
func setupLogger(cfg config.LoggingConfig, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}

	// Default to JSON
	return zerolog.New(out).With().Timestamp().Logger()
}

// parseDuration parses a duration string with a fallback
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

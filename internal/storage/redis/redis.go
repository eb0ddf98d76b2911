package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/daybook/internal/config"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "daybook:"

// Store implements the storage.Store interface using Redis
type Store struct {
	client       *redis.Client
	segmentStore *segmentStore
	blockStore   *blockStore
	labelStore   *labelStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry a port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{
		client:       client,
		segmentStore: &segmentStore{client: client},
		blockStore:   &blockStore{client: client},
		labelStore:   &labelStore{client: client},
	}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Segments returns the SegmentStore implementation
func (s *Store) Segments() storage.SegmentStore {
	return s.segmentStore
}

// Blocks returns the BlockStore implementation
func (s *Store) Blocks() storage.BlockStore {
	return s.blockStore
}

// Labels returns the LabelStore implementation
func (s *Store) Labels() storage.LabelStore {
	return s.labelStore
}

func segmentKey(id string) string      { return keyPrefix + "segment:" + id }
func segmentDateKey(date string) string { return keyPrefix + "segments:date:" + date }
func blockKey(id string) string        { return keyPrefix + "block:" + id }
func blockDateKey(date string) string   { return keyPrefix + "blocks:date:" + date }
func labelKey(key string) string        { return keyPrefix + "label:" + key }

const (
	segmentDatePrefix = keyPrefix + "segments:date:"
	blockPrefix       = keyPrefix + "block:"
	activeSegmentKey  = keyPrefix + "segments:active"
	labelUsageKey     = keyPrefix + "labels:usage"
)

package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/redis/go-redis/v9"
)

type labelStore struct {
	client *redis.Client
}

// Record counts one use of a label
func (s *labelStore) Record(ctx context.Context, label string, at time.Time) error {
	label = strings.TrimSpace(label)
	key := storage.LabelKey(label)
	if key == "" {
		return nil
	}

	keys := []string{labelKey(key), labelUsageKey}
	args := []interface{}{
		key,
		label,
		at.UTC().Format(time.RFC3339Nano),
		at.Unix(),
	}

	if err := recordLabel.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return fmt.Errorf("failed to record label %q: %w", label, err)
	}

	return nil
}

// Top returns the most used labels
func (s *labelStore) Top(ctx context.Context, limit int) ([]storage.LabelUsage, error) {
	if limit <= 0 {
		return []storage.LabelUsage{}, nil
	}

	keys, err := s.client.ZRevRange(ctx, labelUsageKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	if len(keys) == 0 {
		return []storage.LabelUsage{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, labelKey(key))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	usage := make([]storage.LabelUsage, 0, len(keys))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		entry, err := parseLabelUsage(data)
		if err != nil {
			return nil, err
		}
		usage = append(usage, *entry)
	}

	// Scores lose sub-second precision
	storage.SortLabelUsage(usage)
	return usage, nil
}

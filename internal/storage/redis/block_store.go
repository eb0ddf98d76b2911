package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type blockStore struct {
	client *redis.Client
}

// Insert appends a consolidated block to its date
func (s *blockStore) Insert(ctx context.Context, block storage.Block) (string, error) {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}

	keys := []string{blockKey(block.ID), blockDateKey(block.Date)}
	args := []interface{}{
		block.ID,
		block.Date,
		block.Start.String(),
		block.End.String(),
		block.Label,
		block.DurationMinutes,
	}

	if err := insertBlock.Run(ctx, s.client, keys, args...).Err(); err != nil {
		return "", fmt.Errorf("failed to insert block: %w", err)
	}

	return block.ID, nil
}

// ListByDate returns the blocks of one day in insertion order
func (s *blockStore) ListByDate(ctx context.Context, date string) ([]storage.Block, error) {
	ids, err := s.client.LRange(ctx, blockDateKey(date), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.Block{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, blockKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	blocks := make([]storage.Block, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		block, err := parseBlock(data)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *block)
	}

	return blocks, nil
}

// DeleteByDate removes every block of a date
func (s *blockStore) DeleteByDate(ctx context.Context, date string) (int, error) {
	return s.Replace(ctx, date, nil)
}

// Replace swaps the blocks of a date in one script call
func (s *blockStore) Replace(ctx context.Context, date string, blocks []storage.Block) (int, error) {
	args := make([]interface{}, 0, 1+6*len(blocks))
	args = append(args, blockPrefix)
	for _, block := range blocks {
		if block.ID == "" {
			block.ID = uuid.NewString()
		}
		args = append(args,
			block.ID,
			date,
			block.Start.String(),
			block.End.String(),
			block.Label,
			block.DurationMinutes,
		)
	}

	count, err := replaceBlocks.Run(ctx, s.client, []string{blockDateKey(date)}, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to replace blocks for %s: %w", date, err)
	}

	return count, nil
}

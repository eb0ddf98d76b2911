package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type segmentStore struct {
	client *redis.Client
}

// Insert stores a new segment, assigning an ID when none is set
func (s *segmentStore) Insert(ctx context.Context, segment storage.Segment) (string, error) {
	if segment.ID == "" {
		segment.ID = uuid.NewString()
	}

	if err := s.Apply(ctx, []storage.SegmentWrite{{Op: storage.WriteInsert, Segment: segment}}); err != nil {
		return "", err
	}

	return segment.ID, nil
}

// Update overwrites an existing segment
func (s *segmentStore) Update(ctx context.Context, segment storage.Segment) error {
	if segment.ID == "" {
		return fmt.Errorf("segment ID is required")
	}

	return s.Apply(ctx, []storage.SegmentWrite{{Op: storage.WriteUpdate, Segment: segment}})
}

// Delete removes a segment by ID
func (s *segmentStore) Delete(ctx context.Context, id string) error {
	return s.Apply(ctx, []storage.SegmentWrite{{Op: storage.WriteDelete, Segment: storage.Segment{ID: id}}})
}

// Apply runs the whole batch in one script call, so Redis applies all of
// it or none of it
func (s *segmentStore) Apply(ctx context.Context, writes []storage.SegmentWrite) error {
	if len(writes) == 0 {
		return nil
	}

	keys := make([]string, 0, 1+2*len(writes))
	keys = append(keys, activeSegmentKey)
	args := make([]interface{}, 0, 1+8*len(writes))
	args = append(args, segmentDatePrefix)

	for i, w := range writes {
		segment := w.Segment
		switch w.Op {
		case storage.WriteInsert:
			if segment.ID == "" {
				segment.ID = uuid.NewString()
			}
		case storage.WriteUpdate, storage.WriteDelete:
			if segment.ID == "" {
				return fmt.Errorf("write %d (%s): segment ID is required", i, w.Op)
			}
		default:
			return fmt.Errorf("write %d: unknown write op %d", i, w.Op)
		}

		keys = append(keys, segmentKey(segment.ID), segmentDateKey(segment.Date))
		args = append(args,
			w.Op.String(),
			segment.ID,
			segment.Date,
			int(segment.Start),
			segment.Start.String(),
			endValue(segment),
			segment.Label,
			boolFlag(segment.IsBreak),
		)
	}

	failed, err := applySegments.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to apply %d segment writes: %w", len(writes), err)
	}
	if failed > 0 {
		w := writes[failed-1]
		return fmt.Errorf("write %d (%s segment %s): %w", failed-1, w.Op, w.Segment.ID, storage.ErrNotFound)
	}

	return nil
}

// Get retrieves a segment by ID
func (s *segmentStore) Get(ctx context.Context, id string) (*storage.Segment, error) {
	data, err := s.client.HGetAll(ctx, segmentKey(id)).Result()
	if err != nil {
		return nil, err
	}

	return parseSegment(data)
}

// ListByDate returns the segments of one day ordered by start time
func (s *segmentStore) ListByDate(ctx context.Context, date string) ([]storage.Segment, error) {
	ids, err := s.client.ZRange(ctx, segmentDateKey(date), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []storage.Segment{}, nil
	}

	// Use pipeline for efficient batch retrieval
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, segmentKey(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	segments := make([]storage.Segment, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			continue
		}

		seg, err := parseSegment(data)
		if err != nil {
			return nil, err
		}
		segments = append(segments, *seg)
	}

	storage.SortSegments(segments)
	return segments, nil
}

// Active returns the currently open segment
func (s *segmentStore) Active(ctx context.Context) (*storage.Segment, error) {
	id, err := s.client.Get(ctx, activeSegmentKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

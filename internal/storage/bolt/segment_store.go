package bolt

import (
	"context"
	"errors"
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

type segmentStore struct {
	db *bbolt.DB
}

func (s *segmentStore) Insert(ctx context.Context, segment storage.Segment) (string, error) {
	if segment.ID == "" {
		segment.ID = uuid.NewString()
	}
	err := s.update(ctx, func(tx *bbolt.Tx) error {
		return putSegment(tx, segment, false)
	})
	if err != nil {
		return "", err
	}
	return segment.ID, nil
}

func (s *segmentStore) Update(ctx context.Context, segment storage.Segment) error {
	if segment.ID == "" {
		return errors.New("segment ID is required")
	}
	return s.update(ctx, func(tx *bbolt.Tx) error {
		return putSegment(tx, segment, true)
	})
}

func (s *segmentStore) Delete(ctx context.Context, id string) error {
	return s.update(ctx, func(tx *bbolt.Tx) error {
		return removeSegment(tx, id)
	})
}

// Apply runs every write inside one bolt transaction; any failure rolls
// the whole batch back.
func (s *segmentStore) Apply(ctx context.Context, writes []storage.SegmentWrite) error {
	if len(writes) == 0 {
		return nil
	}
	return s.update(ctx, func(tx *bbolt.Tx) error {
		for i, w := range writes {
			segment := w.Segment
			var err error
			switch w.Op {
			case storage.WriteInsert:
				if segment.ID == "" {
					segment.ID = uuid.NewString()
				}
				err = putSegment(tx, segment, false)
			case storage.WriteUpdate:
				if segment.ID == "" {
					err = errors.New("segment ID is required")
				} else {
					err = putSegment(tx, segment, true)
				}
			case storage.WriteDelete:
				err = removeSegment(tx, segment.ID)
			default:
				err = fmt.Errorf("unknown write op %d", w.Op)
			}
			if err != nil {
				return fmt.Errorf("write %d (%s segment %s): %w", i, w.Op, segment.ID, err)
			}
		}
		return nil
	})
}

func (s *segmentStore) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fn(tx)
	})
}

// putSegment writes the segment together with its id index and the active
// pointer.
func putSegment(tx *bbolt.Tx, segment storage.Segment, mustExist bool) error {
	data, err := marshal(segment)
	if err != nil {
		return err
	}
	segments, err := bucketOf(tx, bucketSegments)
	if err != nil {
		return err
	}
	ids, err := bucketOf(tx, bucketSegmentIDs)
	if err != nil {
		return err
	}
	meta, err := bucketOf(tx, bucketMeta)
	if err != nil {
		return err
	}

	id := []byte(segment.ID)
	previous := ids.Get(id)
	if previous == nil && mustExist {
		return storage.ErrNotFound
	}
	if previous != nil && string(previous) != segment.Date {
		if err := segments.Delete(dateKey(string(previous), segment.ID)); err != nil {
			return err
		}
	}

	if err := segments.Put(dateKey(segment.Date, segment.ID), data); err != nil {
		return err
	}
	if err := ids.Put(id, []byte(segment.Date)); err != nil {
		return err
	}

	active := []byte(metaActiveSegment)
	switch {
	case !segment.Closed():
		return meta.Put(active, id)
	case string(meta.Get(active)) == segment.ID:
		return meta.Delete(active)
	}
	return nil
}

func removeSegment(tx *bbolt.Tx, id string) error {
	segments, err := bucketOf(tx, bucketSegments)
	if err != nil {
		return err
	}
	ids, err := bucketOf(tx, bucketSegmentIDs)
	if err != nil {
		return err
	}
	meta, err := bucketOf(tx, bucketMeta)
	if err != nil {
		return err
	}

	date := ids.Get([]byte(id))
	if date == nil {
		return storage.ErrNotFound
	}
	if err := segments.Delete(dateKey(string(date), id)); err != nil {
		return err
	}
	if err := ids.Delete([]byte(id)); err != nil {
		return err
	}
	if string(meta.Get([]byte(metaActiveSegment))) == id {
		return meta.Delete([]byte(metaActiveSegment))
	}
	return nil
}

func (s *segmentStore) Get(ctx context.Context, id string) (*storage.Segment, error) {
	var segment *storage.Segment
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var err error
		segment, err = lookupSegment(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return segment, nil
}

func (s *segmentStore) ListByDate(ctx context.Context, date string) ([]storage.Segment, error) {
	segments, err := listByDate[storage.Segment](ctx, s.db, bucketSegments, date)
	if err != nil {
		return nil, err
	}
	storage.SortSegments(segments)
	return segments, nil
}

func (s *segmentStore) Active(ctx context.Context) (*storage.Segment, error) {
	var segment *storage.Segment
	err := s.db.View(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		meta, err := bucketOf(tx, bucketMeta)
		if err != nil {
			return err
		}
		id := meta.Get([]byte(metaActiveSegment))
		if id == nil {
			return storage.ErrNotFound
		}
		segment, err = lookupSegment(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return segment, nil
}

func lookupSegment(tx *bbolt.Tx, id string) (*storage.Segment, error) {
	ids, err := bucketOf(tx, bucketSegmentIDs)
	if err != nil {
		return nil, err
	}
	segments, err := bucketOf(tx, bucketSegments)
	if err != nil {
		return nil, err
	}

	date := ids.Get([]byte(id))
	if date == nil {
		return nil, storage.ErrNotFound
	}
	value := segments.Get(dateKey(string(date), id))
	if value == nil {
		return nil, fmt.Errorf("segment %s indexed under %s but missing", id, date)
	}

	var segment storage.Segment
	if err := unmarshal(value, &segment); err != nil {
		return nil, err
	}
	return &segment, nil
}

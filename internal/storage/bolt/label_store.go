package bolt

import (
	"context"
	"strings"
	"time"

	"github.com/goodtune/daybook/internal/storage"
	"go.etcd.io/bbolt"
)

type labelStore struct {
	db *bbolt.DB
}

func (s *labelStore) Record(ctx context.Context, label string, at time.Time) error {
	label = strings.TrimSpace(label)
	key := storage.LabelKey(label)
	if key == "" {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b, err := bucketOf(tx, bucketLabels)
		if err != nil {
			return err
		}
		var usage storage.LabelUsage
		if existing := b.Get([]byte(key)); existing != nil {
			if err := unmarshal(existing, &usage); err != nil {
				return err
			}
		}
		usage.Label = label
		usage.UsageCount++
		usage.LastUsed = at.UTC()
		data, err := marshal(usage)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *labelStore) Top(ctx context.Context, limit int) ([]storage.LabelUsage, error) {
	if limit <= 0 {
		return []storage.LabelUsage{}, nil
	}
	usage, err := listBucket[storage.LabelUsage](ctx, s.db, bucketLabels)
	if err != nil {
		return nil, err
	}
	storage.SortLabelUsage(usage)
	if len(usage) > limit {
		usage = usage[:limit]
	}
	return usage, nil
}


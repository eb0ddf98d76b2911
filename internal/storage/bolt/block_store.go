package bolt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

type blockStore struct {
	db *bbolt.DB
}

// Insert appends a block; keys carry the bucket sequence so a day lists in
// insertion order.
func (s *blockStore) Insert(ctx context.Context, block storage.Block) (string, error) {
	if block.ID == "" {
		block.ID = uuid.NewString()
	}
	err := s.update(ctx, func(b *bbolt.Bucket) error {
		return putBlock(b, block)
	})
	if err != nil {
		return "", err
	}
	return block.ID, nil
}

func (s *blockStore) ListByDate(ctx context.Context, date string) ([]storage.Block, error) {
	return listByDate[storage.Block](ctx, s.db, bucketBlocks, date)
}

func (s *blockStore) DeleteByDate(ctx context.Context, date string) (int, error) {
	return s.Replace(ctx, date, nil)
}

func (s *blockStore) Replace(ctx context.Context, date string, blocks []storage.Block) (int, error) {
	deleted := 0
	err := s.update(ctx, func(b *bbolt.Bucket) error {
		var err error
		if deleted, err = deleteBlocks(b, date); err != nil {
			return err
		}
		for _, block := range blocks {
			if block.ID == "" {
				block.ID = uuid.NewString()
			}
			block.Date = date
			if err := putBlock(b, block); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (s *blockStore) update(ctx context.Context, fn func(b *bbolt.Bucket) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b, err := bucketOf(tx, bucketBlocks)
		if err != nil {
			return err
		}
		return fn(b)
	})
}

func putBlock(b *bbolt.Bucket, block storage.Block) error {
	data, err := marshal(block)
	if err != nil {
		return err
	}
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	return b.Put(dateKey(block.Date, fmt.Sprintf("%020d", seq)), data)
}

func deleteBlocks(b *bbolt.Bucket, date string) (int, error) {
	prefix := dateKey(date, "")
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	for _, key := range keys {
		if err := b.Delete(key); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Segments() SegmentStore
	Blocks() BlockStore
	Labels() LabelStore
}

// SegmentStore persists the raw activity segments of each day.
// Implementations do not enforce the sequence invariants; callers must.
type SegmentStore interface {
	// Insert stores a new segment and returns its assigned ID.
	Insert(ctx context.Context, segment Segment) (string, error)
	Update(ctx context.Context, segment Segment) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Segment, error)
	// ListByDate returns the day's segments ordered by start time.
	ListByDate(ctx context.Context, date string) ([]Segment, error)
	// Active returns the open segment, or ErrNotFound.
	Active(ctx context.Context) (*Segment, error)
	// Apply performs writes in order as one transaction: either all of
	// them are stored or none is. Inserts without an ID get one assigned.
	// An update or delete of a missing segment fails the whole batch with
	// ErrNotFound.
	Apply(ctx context.Context, writes []SegmentWrite) error
}

// BlockStore persists consolidated day-end blocks.
// Blocks are only ever written and removed in bulk per date.
type BlockStore interface {
	Insert(ctx context.Context, block Block) (string, error)
	ListByDate(ctx context.Context, date string) ([]Block, error)
	DeleteByDate(ctx context.Context, date string) (int, error)
	// Replace swaps the blocks of date for the given ones in a single
	// transaction and returns how many were removed.
	Replace(ctx context.Context, date string, blocks []Block) (int, error)
}

// LabelStore keeps the label-usage index used for input suggestions.
type LabelStore interface {
	// Record counts one use of label at the given time. Labels are keyed
	// case-insensitively; the most recent spelling is kept.
	Record(ctx context.Context, label string, at time.Time) error
	// Top returns at most limit labels ordered by usage count, then last use.
	Top(ctx context.Context, limit int) ([]LabelUsage, error)
}

// Package labels serves activity label suggestions from the label-usage
// index, ordered by how often and how recently a label was used.
package labels

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/daybook/internal/storage"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultLimit is used when Suggest is called without a limit.
	DefaultLimit = 10

	// prefixScanLimit bounds how many index entries a prefix query filters.
	prefixScanLimit = 500
)

// Index records label usage and answers suggestion queries. Results are
// cached per query until the next Record.
type Index struct {
	store  storage.LabelStore
	cache  *lru.Cache[string, []storage.LabelUsage]
	limit  int
	logger zerolog.Logger
}

// NewIndex creates an index over store. cacheSize bounds the number of
// cached queries; limit is the default suggestion count.
func NewIndex(store storage.LabelStore, cacheSize, limit int, logger zerolog.Logger) (*Index, error) {
	cache, err := lru.New[string, []storage.LabelUsage](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create label cache: %w", err)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	return &Index{
		store:  store,
		cache:  cache,
		limit:  limit,
		logger: logger.With().Str("component", "labels").Logger(),
	}, nil
}

// Record counts one use of label. Blank labels are ignored.
func (i *Index) Record(ctx context.Context, label string, at time.Time) error {
	if storage.LabelKey(label) == "" {
		return nil
	}
	if err := i.store.Record(ctx, label, at); err != nil {
		return err
	}
	i.cache.Purge()

	i.logger.Debug().Str("label", label).Msg("Recorded label use")
	return nil
}

// Suggest returns up to limit labels starting with prefix, compared
// case-insensitively. A limit of zero or less selects the default.
func (i *Index) Suggest(ctx context.Context, prefix string, limit int) ([]storage.LabelUsage, error) {
	if limit <= 0 {
		limit = i.limit
	}
	prefix = storage.LabelKey(prefix)

	key := prefix + "\x00" + strconv.Itoa(limit)
	if cached, ok := i.cache.Get(key); ok {
		return cached, nil
	}

	scan := limit
	if prefix != "" {
		scan = max(limit, prefixScanLimit)
	}
	top, err := i.store.Top(ctx, scan)
	if err != nil {
		return nil, fmt.Errorf("load label usage: %w", err)
	}

	out := make([]storage.LabelUsage, 0, min(limit, len(top)))
	for _, usage := range top {
		if len(out) == limit {
			break
		}
		if strings.HasPrefix(storage.LabelKey(usage.Label), prefix) {
			out = append(out, usage)
		}
	}

	i.cache.Add(key, out)
	return out, nil
}

package tracker

import (
	"context"

	"github.com/goodtune/daybook/internal/metrics"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeline"
)

// apply writes a change-set as one store transaction. On failure nothing
// of it is persisted and the error is a PersistenceError.
func (t *Tracker) apply(ctx context.Context, op, date string, res *timeline.Result) error {
	writes := make([]storage.SegmentWrite, 0, len(res.Changes))
	for _, change := range res.Changes {
		kind, ok := writeOps[change.Kind]
		if !ok {
			continue
		}
		writes = append(writes, storage.SegmentWrite{Op: kind, Segment: change.Segment})
	}

	if err := t.store.Segments().Apply(ctx, writes); err != nil {
		t.logger.Error().
			Err(err).
			Str("op", op).
			Str("date", date).
			Int("writes", len(writes)).
			Msg("Failed to persist change-set")
		return &PersistenceError{Op: op, Writes: len(writes), Err: err}
	}
	for _, w := range writes {
		metrics.StoreWritesTotal.WithLabelValues(w.Op.String()).Inc()
	}

	observeStats(res.Stats)

	if res.Changed() {
		t.logger.Debug().
			Str("op", op).
			Str("date", date).
			Int("changes", len(res.Changes)).
			Int("passes", res.Stats.Passes).
			Int("gap_breaks", res.Stats.GapBreaks).
			Int("split_breaks", res.Stats.SplitBreaks).
			Int("overlaps", res.Stats.OverlapsCorrected).
			Int("splits", res.Stats.Splits).
			Msg("Applied change-set")
	}
	return nil
}

var writeOps = map[timeline.ChangeKind]storage.WriteOp{
	timeline.ChangeInsert: storage.WriteInsert,
	timeline.ChangeUpdate: storage.WriteUpdate,
	timeline.ChangeDelete: storage.WriteDelete,
}

func observeStats(stats timeline.Stats) {
	if stats.Passes > 0 {
		metrics.ReconcilePasses.Observe(float64(stats.Passes))
	}
	metrics.BreaksInserted.WithLabelValues("gap").Add(float64(stats.GapBreaks))
	metrics.BreaksInserted.WithLabelValues("split").Add(float64(stats.SplitBreaks))
	metrics.OverlapsCorrected.Add(float64(stats.OverlapsCorrected))
	metrics.SegmentsSplit.Add(float64(stats.Splits))
}

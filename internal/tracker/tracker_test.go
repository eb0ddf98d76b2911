package tracker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/goodtune/daybook/internal/labels"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/storage/bolt"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/timeofday"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDate = "2024-05-13"

func at(clock string) time.Time {
	tod := timeofday.MustParse(clock)
	return time.Date(2024, 5, 13, tod.Hour(), tod.Minute(), 0, 0, time.Local)
}

type harness struct {
	tracker *Tracker
	clock   *TestClock
	store   storage.Store
	labels  *labels.Index
}

func newHarness(t *testing.T, now time.Time, config Config) *harness {
	t.Helper()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "daybook.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return newHarnessWithStore(t, store, now, config)
}

func newHarnessWithStore(t *testing.T, store storage.Store, now time.Time, config Config) *harness {
	t.Helper()

	idx, err := labels.NewIndex(store.Labels(), 16, 10, zerolog.Nop())
	require.NoError(t, err)

	clock := &TestClock{CurrentTime: now}
	return &harness{
		tracker: New(store, idx, clock, config, zerolog.Nop()),
		clock:   clock,
		store:   store,
		labels:  idx,
	}
}

func (h *harness) add(t *testing.T, start, end, label string) *DayView {
	t.Helper()
	view, err := h.tracker.Add(context.Background(), testDate, timeofday.MustParse(start), timeofday.MustParse(end), label)
	require.NoError(t, err)
	return view
}

func viewSpans(view *DayView) []string {
	out := make([]string, len(view.Segments))
	for i, s := range view.Segments {
		end := "open"
		if s.Closed() {
			end = s.End.String()
		}
		out[i] = s.Start.String() + "-" + end + " " + s.Label
	}
	return out
}

func TestStartAndStop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("09:00"), Config{})

	started, err := h.tracker.Start(ctx, "Coding")
	require.NoError(t, err)
	assert.Equal(t, timeofday.New(9, 0), started.Start)
	assert.Nil(t, started.End)
	assert.Equal(t, testDate, started.Date)

	_, err = h.tracker.Start(ctx, "Mail")
	assert.ErrorIs(t, err, ErrActivityRunning)

	h.clock.Advance(45 * time.Minute)
	stopped, err := h.tracker.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.ID, stopped.ID)
	assert.Equal(t, 45, stopped.Duration())

	h.clock.Advance(5 * time.Minute)
	next, err := h.tracker.Start(ctx, "Mail")
	require.NoError(t, err)
	assert.Equal(t, timeofday.New(9, 45), next.Start, "new activity continues from the last end")

	h.clock.Advance(10 * time.Minute)
	_, err = h.tracker.Stop(ctx)
	require.NoError(t, err)

	view, err := h.tracker.Day(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-09:45 Coding", "09:45-10:00 Mail"}, viewSpans(view))
	assert.Equal(t, 60, view.WorkMinutes)
	assert.Equal(t, "01:00", view.Work)
	assert.Equal(t, "1h", view.WorkText)
	assert.False(t, view.Closed)
}

func TestStartRejectsEmptyLabel(t *testing.T) {
	h := newHarness(t, at("09:00"), Config{})

	_, err := h.tracker.Start(context.Background(), "   ")
	assert.ErrorIs(t, err, timeline.ErrEmptyLabel)
	assert.True(t, timeline.IsValidation(err))
}

func TestStopWithoutActivity(t *testing.T) {
	h := newHarness(t, at("09:00"), Config{})

	_, err := h.tracker.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNoActivity)
}

func TestStopCapsLongActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("08:00"), Config{})

	_, err := h.tracker.Start(ctx, "Coding")
	require.NoError(t, err)

	h.clock.Advance(3 * time.Hour)
	stopped, err := h.tracker.Stop(ctx)
	require.NoError(t, err)
	require.NotNil(t, stopped.End)
	assert.Equal(t, timeofday.New(10, 0), *stopped.End)
}

func TestStopActivityFromEarlierDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("23:00"), Config{})

	_, err := h.tracker.Start(ctx, "Late shift")
	require.NoError(t, err)

	h.clock.Advance(90 * time.Minute)
	stopped, err := h.tracker.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, testDate, stopped.Date)
	assert.Equal(t, timeofday.New(23, 59), *stopped.End)
}

func TestEnforceCap(t *testing.T) {
	ctx := context.Background()

	t.Run("no activity", func(t *testing.T) {
		h := newHarness(t, at("09:00"), Config{})
		status, err := h.tracker.EnforceCap(ctx)
		require.NoError(t, err)
		assert.Nil(t, status.Active)
		assert.False(t, status.Capped)
	})

	t.Run("warns before the limit", func(t *testing.T) {
		h := newHarness(t, at("08:00"), Config{WarnBefore: 10 * time.Minute})
		_, err := h.tracker.Start(ctx, "Coding")
		require.NoError(t, err)

		h.clock.Advance(100 * time.Minute)
		status, err := h.tracker.EnforceCap(ctx)
		require.NoError(t, err)
		assert.False(t, status.Warning)

		h.clock.Advance(15 * time.Minute)
		status, err = h.tracker.EnforceCap(ctx)
		require.NoError(t, err)
		assert.True(t, status.Warning)
		assert.False(t, status.Capped)
		assert.Equal(t, 115, status.RunningMinutes)
	})

	t.Run("closes at the limit", func(t *testing.T) {
		h := newHarness(t, at("08:00"), Config{})
		_, err := h.tracker.Start(ctx, "Coding")
		require.NoError(t, err)

		h.clock.Advance(125 * time.Minute)
		status, err := h.tracker.EnforceCap(ctx)
		require.NoError(t, err)
		assert.True(t, status.Capped)
		assert.Nil(t, status.Continued)

		_, err = h.tracker.Active(ctx)
		assert.ErrorIs(t, err, ErrNoActivity)

		view, err := h.tracker.Day(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, []string{"08:00-10:00 Coding"}, viewSpans(view))
	})

	t.Run("continues with the same label", func(t *testing.T) {
		h := newHarness(t, at("08:00"), Config{AutoContinue: true})
		_, err := h.tracker.Start(ctx, "Coding")
		require.NoError(t, err)

		h.clock.Advance(125 * time.Minute)
		status, err := h.tracker.EnforceCap(ctx)
		require.NoError(t, err)
		assert.True(t, status.Capped)
		require.NotNil(t, status.Continued)
		assert.Equal(t, timeofday.New(10, 0), status.Continued.Start)
		assert.Equal(t, "Coding", status.Continued.Label)

		view, err := h.tracker.Day(ctx, testDate)
		require.NoError(t, err)
		assert.Equal(t, []string{"08:00-10:00 Coding", "10:00-open Coding"}, viewSpans(view))
		assert.True(t, view.Segments[1].Running)
		assert.Equal(t, 5, view.Segments[1].DurationMinutes)
	})
}

func TestAddFillsGapsAndRecordsLabels(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("18:00"), Config{})

	h.add(t, "09:00", "10:00", "Coding")
	view := h.add(t, "10:30", "11:00", "Mail")

	assert.Equal(t, []string{
		"09:00-10:00 Coding",
		"10:00-10:30 " + timeline.GapBreakLabel,
		"10:30-11:00 Mail",
	}, viewSpans(view))
	assert.True(t, view.Segments[1].IsBreak)
	assert.Equal(t, 90, view.WorkMinutes)
	assert.Equal(t, 30, view.BreakMinutes)
	assert.Equal(t, "30 min", view.BreaksText)

	suggestions, err := h.labels.Suggest(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.ElementsMatch(t, []string{"Coding", "Mail"}, []string{suggestions[0].Label, suggestions[1].Label})
}

func TestAddRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("18:00"), Config{})

	_, err := h.tracker.Add(ctx, "13.05.2024", timeofday.New(9, 0), timeofday.New(10, 0), "Coding")
	assert.True(t, timeline.IsValidation(err))

	_, err = h.tracker.Add(ctx, testDate, timeofday.New(10, 0), timeofday.New(9, 0), "Coding")
	assert.ErrorIs(t, err, timeline.ErrEndNotAfterStart)
}

func TestEditAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("18:00"), Config{})

	h.add(t, "09:00", "10:00", "Coding")
	h.add(t, "10:00", "11:00", "Mail")
	view := h.add(t, "11:00", "12:00", "Review")

	first := view.Segments[0]
	assert.Equal(t, []timeline.Field{timeline.FieldStart, timeline.FieldEnd, timeline.FieldLabel}, first.Editable)
	assert.True(t, first.Deletable)

	view, err := h.tracker.Edit(ctx, testDate, first.ID, timeline.FieldEnd, "10:30")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"09:00-10:30 Coding",
		"10:30-11:30 Mail",
		"11:30-12:30 Review",
	}, viewSpans(view))

	mail := view.Segments[1]
	view, err = h.tracker.Delete(ctx, testDate, mail.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"09:00-10:30 Coding",
		"10:30-11:30 " + timeline.GapBreakLabel,
		"11:30-12:30 Review",
	}, viewSpans(view))

	_, err = h.tracker.Edit(ctx, testDate, view.Segments[0].ID, timeline.FieldDuration, "02:00")
	assert.ErrorIs(t, err, timeline.ErrReadOnlyField)

	_, err = h.tracker.Delete(ctx, testDate, "missing")
	assert.ErrorIs(t, err, timeline.ErrSegmentNotFound)
}

func TestCloseAndReopen(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("18:00"), Config{})

	h.add(t, "09:00", "10:00", "Coding")
	h.add(t, "10:00", "10:30", "Mail")
	h.add(t, "10:30", "12:00", "coding")

	view, err := h.tracker.Close(ctx, testDate)
	require.NoError(t, err)
	assert.True(t, view.Closed)
	require.Len(t, view.Blocks, 3)
	assert.Equal(t, "Coding (Teil 1)", view.Blocks[0].Label)
	assert.Equal(t, 120, view.Blocks[0].DurationMinutes)
	for _, s := range view.Segments {
		assert.Empty(t, s.Editable)
		assert.False(t, s.Deletable)
	}

	_, err = h.tracker.Add(ctx, testDate, timeofday.New(13, 0), timeofday.New(14, 0), "Late")
	assert.ErrorIs(t, err, ErrDayClosed)

	// Closing again replaces the blocks
	view, err = h.tracker.Close(ctx, testDate)
	require.NoError(t, err)
	assert.Len(t, view.Blocks, 3)

	deleted, err := h.tracker.Reopen(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	view, err = h.tracker.Day(ctx, testDate)
	require.NoError(t, err)
	assert.False(t, view.Closed)
	assert.Empty(t, view.Blocks)
}

func TestCloseRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("running activity", func(t *testing.T) {
		h := newHarness(t, at("09:00"), Config{})
		_, err := h.tracker.Start(ctx, "Coding")
		require.NoError(t, err)

		_, err = h.tracker.Close(ctx, testDate)
		assert.ErrorIs(t, err, ErrActivityRunning)
	})

	t.Run("empty labels", func(t *testing.T) {
		h := newHarness(t, at("18:00"), Config{})
		h.add(t, "09:00", "10:00", "Coding")
		h.add(t, "10:00", "11:00", "")

		_, err := h.tracker.Close(ctx, testDate)
		var ve *timeline.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, []int{2}, ve.Rows)
	})

	t.Run("nothing to report", func(t *testing.T) {
		h := newHarness(t, at("18:00"), Config{})
		_, err := h.tracker.Close(ctx, testDate)
		assert.ErrorIs(t, err, ErrEmptyDay)
	})
}

func TestReconcileRepairsStoredDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("18:00"), Config{})

	// Write an overlapping day behind the tracker's back
	for _, s := range []storage.Segment{
		{Date: testDate, Start: timeofday.New(9, 0), End: timeofday.Ptr(timeofday.New(10, 0)), Label: "Coding"},
		{Date: testDate, Start: timeofday.New(9, 30), End: timeofday.Ptr(timeofday.New(10, 30)), Label: "Mail"},
	} {
		_, err := h.store.Segments().Insert(ctx, s)
		require.NoError(t, err)
	}

	stats, err := h.tracker.Reconcile(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OverlapsCorrected)

	stats, err = h.tracker.Reconcile(ctx, testDate)
	require.NoError(t, err)
	assert.Zero(t, stats.OverlapsCorrected)

	segments, err := h.store.Segments().ListByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, timeofday.New(10, 0), segments[1].Start)
	assert.Equal(t, timeofday.New(11, 0), *segments[1].End)
}

// failingStore fails change-sets larger than a limit. The failing
// change-set still reaches the real store, with its first writes executed
// before a write that cannot succeed, so a store that is not atomic would
// keep them.
type failingStore struct {
	storage.Store
	segments *failingSegments
}

func (s *failingStore) Segments() storage.SegmentStore { return s.segments }

type failingSegments struct {
	storage.SegmentStore
	limit int
}

var errDiskFull = errors.New("disk full")

func (s *failingSegments) Apply(ctx context.Context, writes []storage.SegmentWrite) error {
	if len(writes) <= s.limit {
		return s.SegmentStore.Apply(ctx, writes)
	}
	partial := append([]storage.SegmentWrite{}, writes[:s.limit]...)
	partial = append(partial, storage.SegmentWrite{Op: storage.WriteUpdate, Segment: storage.Segment{ID: "missing"}})
	if err := s.SegmentStore.Apply(ctx, partial); !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("expected the store to refuse the batch, got %v", err)
	}
	return errDiskFull
}

func newFailingHarness(t *testing.T, limit int) (*harness, storage.Store) {
	t.Helper()

	inner, err := bolt.Open(filepath.Join(t.TempDir(), "daybook.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = inner.Close() })

	store := &failingStore{Store: inner, segments: &failingSegments{SegmentStore: inner.Segments(), limit: limit}}
	return newHarnessWithStore(t, store, at("18:00"), Config{}), inner
}

func TestPersistenceErrorStopsChangeSet(t *testing.T) {
	ctx := context.Background()
	h, inner := newFailingHarness(t, 1)

	h.add(t, "09:00", "10:00", "Coding")

	// The gap break and the new segment need two inserts
	_, err := h.tracker.Add(ctx, testDate, timeofday.New(11, 0), timeofday.New(12, 0), "Mail")
	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, errDiskFull)

	var pe *PersistenceError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "add", pe.Op)
	assert.Equal(t, 2, pe.Writes)

	segments, err := inner.Segments().ListByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Coding", segments[0].Label)
}

func TestPersistenceErrorMidChangeSetKeepsPriorRows(t *testing.T) {
	ctx := context.Background()
	h, inner := newFailingHarness(t, 1)

	h.add(t, "09:00", "10:00", "A")
	view := h.add(t, "10:00", "11:00", "B")
	h.add(t, "11:00", "12:00", "C")

	before, err := inner.Segments().ListByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, before, 3)

	// Removing B deletes a row and inserts the break that fills its gap
	_, err = h.tracker.Delete(ctx, testDate, view.Segments[1].ID)
	require.Error(t, err)
	assert.True(t, IsPersistence(err))
	assert.ErrorIs(t, err, errDiskFull)

	after, err := inner.Segments().ListByDate(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	view, err = h.tracker.Day(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-10:00 A", "10:00-11:00 B", "11:00-12:00 C"}, viewSpans(view))
}

func TestStopInStartMinuteDiscardsActivity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("09:00"), Config{})

	h.add(t, "08:00", "09:00", "Mail")
	started, err := h.tracker.Start(ctx, "Coding")
	require.NoError(t, err)
	assert.Equal(t, timeofday.New(9, 0), started.Start)

	h.clock.Advance(30 * time.Second)
	stopped, err := h.tracker.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, started.ID, stopped.ID)
	assert.Equal(t, 0, stopped.Duration())

	_, err = h.store.Segments().Get(ctx, started.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = h.tracker.Active(ctx)
	assert.ErrorIs(t, err, ErrNoActivity)

	view, err := h.tracker.Day(ctx, testDate)
	require.NoError(t, err)
	assert.Equal(t, []string{"08:00-09:00 Mail"}, viewSpans(view))
	for _, s := range view.Segments {
		assert.Positive(t, s.DurationMinutes)
	}
}

func TestAddPastMidnightIsValidationError(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("23:55"), Config{})

	h.add(t, "22:00", "23:00", "A")
	_, err := h.tracker.Add(ctx, testDate, timeofday.New(22, 30), timeofday.New(23, 50), "B")
	require.Error(t, err)
	assert.ErrorIs(t, err, timeline.ErrPastMidnight)
	assert.True(t, timeline.IsValidation(err))
	assert.False(t, timeline.IsInvariant(err))

	segments, err := h.store.Segments().ListByDate(ctx, testDate)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "A", segments[0].Label)
}

func TestMonitorEnforcesCap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at("08:00"), Config{})

	_, err := h.tracker.Start(ctx, "Coding")
	require.NoError(t, err)
	h.clock.Advance(130 * time.Minute)

	monitor := NewMonitor(h.tracker, 10*time.Millisecond, zerolog.Nop())
	monitor.Start()
	defer monitor.Stop()

	require.Eventually(t, func() bool {
		_, err := h.tracker.Active(ctx)
		return errors.Is(err, ErrNoActivity)
	}, time.Second, 10*time.Millisecond)
}

func TestDayRejectsInvalidDate(t *testing.T) {
	h := newHarness(t, at("09:00"), Config{})

	_, err := h.tracker.Day(context.Background(), "2024-13-01")
	assert.True(t, timeline.IsValidation(err))
}

package timeline

import (
	"testing"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileContiguousDayIsUnchanged(t *testing.T) {
	in := []storage.Segment{
		seg("a", "09:00", "10:30", "Dev"),
		seg("b", "10:30", "11:00", "Meeting"),
	}

	res, err := Reconcile(in)
	require.NoError(t, err)

	assert.False(t, res.Changed())
	assert.Empty(t, res.Changes)
	assert.Equal(t, 1, res.Stats.Passes)
	assert.Equal(t, spans(in), spans(res.Segments))
}

func TestReconcileFillsGapWithBreak(t *testing.T) {
	res, err := Reconcile([]storage.Segment{
		seg("a", "09:00", "10:00", "Dev"),
		seg("b", "10:30", "11:00", "Dev"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"09:00-10:00 Dev",
		"10:00-10:30 Pause (automatisch eingefügt)",
		"10:30-11:00 Dev",
	}, spans(res.Segments))

	require.Len(t, res.Changes, 1)
	inserted := res.Changes[0]
	assert.Equal(t, ChangeInsert, inserted.Kind)
	assert.True(t, inserted.Segment.IsBreak)
	assert.Empty(t, inserted.Segment.ID)
	assert.Equal(t, testDate, inserted.Segment.Date)
	assert.Equal(t, 1, res.Stats.GapsFilled)
}

func TestReconcileChunksLongGaps(t *testing.T) {
	res, err := Reconcile([]storage.Segment{
		seg("a", "08:00", "09:00", "A"),
		seg("b", "14:00", "15:00", "B"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"08:00-09:00 A",
		"09:00-11:00 Pause (automatisch eingefügt)",
		"11:00-13:00 Pause (automatisch eingefügt)",
		"13:00-14:00 Pause (automatisch eingefügt)",
		"14:00-15:00 B",
	}, spans(res.Segments))
	assert.Len(t, res.Changes, 3)
	assert.Equal(t, 3, res.Stats.GapBreaks)
	assert.Equal(t, 1, res.Stats.GapsFilled)
}

func TestReconcileShiftsOverlapsAndCascades(t *testing.T) {
	res, err := Reconcile([]storage.Segment{
		seg("a", "09:00", "10:30", "A"),
		seg("b", "10:00", "11:00", "B"),
		seg("c", "11:00", "11:30", "C"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"09:00-10:30 A",
		"10:30-11:30 B",
		"11:30-12:00 C",
	}, spans(res.Segments))
	assert.Equal(t, []string{
		"update 10:30-11:30 B",
		"update 11:30-12:00 C",
	}, changeLog(res.Changes))
	assert.Equal(t, 2, res.Stats.OverlapsCorrected)
	assert.Equal(t, 3, res.Stats.Passes)
}

func TestReconcileMovesRunningSegmentBehindOverlap(t *testing.T) {
	res, err := Reconcile([]storage.Segment{
		seg("a", "09:00", "10:00", "A"),
		seg("b", "09:45", "", "B"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00-10:00 A", "10:00-open B"}, spans(res.Segments))
}

func TestReconcileSplitsOverlongSegment(t *testing.T) {
	res, err := Reconcile([]storage.Segment{seg("a", "09:00", "12:00", "Dev")})
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00-11:00 Dev"}, spans(res.Segments))
	assert.Equal(t, []string{"update 09:00-11:00 Dev"}, changeLog(res.Changes))
	assert.Equal(t, 1, res.Stats.Splits)
}

func TestReconcileSplitBeforeFullNeighbourInsertsBreak(t *testing.T) {
	res, err := Reconcile([]storage.Segment{
		seg("a", "08:00", "11:00", "A"),
		seg("b", "11:00", "13:00", "B"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"08:00-10:00 A",
		"10:00-11:00 Pause (automatisch)",
		"11:00-13:00 B",
	}, spans(res.Segments))
	assert.Equal(t, []string{
		"update 08:00-10:00 A",
		"insert 10:00-11:00 Pause (automatisch)",
	}, changeLog(res.Changes))
}

func TestReconcileSplitReanchorsFollowingSegments(t *testing.T) {
	res, err := Reconcile([]storage.Segment{
		seg("a", "08:00", "11:00", "A"),
		seg("b", "11:00", "12:00", "B"),
		seg("c", "12:00", "13:00", "C"),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"08:00-10:00 A",
		"10:00-11:00 B",
		"11:00-12:00 C",
	}, spans(res.Segments))
	assert.Len(t, res.Changes, 3)
}

func TestReconcileRejectsRunningSegmentBeforeOthers(t *testing.T) {
	_, err := Reconcile([]storage.Segment{
		seg("a", "09:00", "", "A"),
		seg("b", "10:00", "11:00", "B"),
	})
	require.ErrorIs(t, err, ErrOpenNotLast)
	assert.True(t, IsInvariant(err))
}

func TestReconcileRejectsNegativeDuration(t *testing.T) {
	_, err := Reconcile([]storage.Segment{seg("a", "10:00", "09:00", "A")})

	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, ErrNegativeDuration)
	assert.Equal(t, "a", ie.SegmentID)
}

func TestReconcileIterationCap(t *testing.T) {
	day := []storage.Segment{
		seg("a", "08:00", "09:00", "A"),
		seg("b", "10:00", "11:00", "B"),
		seg("c", "12:00", "13:00", "C"),
	}

	err := newPlan(day).reconcileWithin(2)
	require.ErrorIs(t, err, ErrIterationCap)
	assert.True(t, IsInvariant(err))

	assert.NoError(t, newPlan(day).reconcileWithin(3))
}

func TestReconcileProperties(t *testing.T) {
	days := map[string][]storage.Segment{
		"split gap and running": {
			seg("a", "07:00", "10:30", "A"),
			seg("b", "10:00", "10:15", "B"),
			seg("c", "13:00", "13:30", "C"),
			seg("d", "13:30", "", "D"),
		},
		"overlap then gap then overlong": {
			seg("a", "09:00", "10:00", "A"),
			seg("b", "09:30", "09:45", "B"),
			seg("c", "12:00", "15:00", "C"),
		},
		"empty": {},
	}

	for name, day := range days {
		t.Run(name, func(t *testing.T) {
			first, err := Reconcile(day)
			require.NoError(t, err)
			assertConsistent(t, first.Segments)

			second, err := Reconcile(first.Segments)
			require.NoError(t, err)
			assert.False(t, second.Changed(), "second run changed %v", changeLog(second.Changes))
		})
	}
}

func TestReconcileDoesNotModifyInput(t *testing.T) {
	in := []storage.Segment{
		seg("b", "10:00", "11:00", "B"),
		seg("a", "09:00", "10:30", "A"),
	}
	before := spans(in)

	_, err := Reconcile(in)
	require.NoError(t, err)
	assert.Equal(t, before, spans(in))
}

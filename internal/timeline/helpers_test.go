package timeline

import (
	"fmt"
	"testing"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
	"github.com/stretchr/testify/assert"
)

const testDate = "2024-05-13"

// seg builds a segment; an empty end makes it open.
func seg(id, start, end, label string) storage.Segment {
	s := storage.Segment{
		ID:      id,
		Date:    testDate,
		Start:   timeofday.MustParse(start),
		Label:   label,
		IsBreak: IsBreakLabel(label),
	}
	if end != "" {
		s.End = timeofday.Ptr(timeofday.MustParse(end))
	}
	return s
}

func span(s storage.Segment) string {
	end := "open"
	if s.Closed() {
		end = s.End.String()
	}
	return fmt.Sprintf("%s-%s %s", s.Start, end, s.Label)
}

func spans(segments []storage.Segment) []string {
	out := make([]string, len(segments))
	for i, s := range segments {
		out[i] = span(s)
	}
	return out
}

func changeLog(changes []Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Kind.String() + " " + span(c.Segment)
	}
	return out
}

func blockSpans(blocks []storage.Block) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = fmt.Sprintf("%s-%s %s (%d)", b.Start, b.End, b.Label, b.DurationMinutes)
	}
	return out
}

// assertConsistent checks contiguity, the cap and the open-segment rule.
func assertConsistent(t *testing.T, segments []storage.Segment) {
	t.Helper()
	for i, s := range segments {
		if s.Closed() {
			assert.GreaterOrEqual(t, s.Duration(), 0, "negative duration at %d", i)
			assert.LessOrEqual(t, s.Duration(), MaxBlockMinutes, "segment %d exceeds cap", i)
		} else {
			assert.Equal(t, len(segments)-1, i, "open segment must be last")
		}
		if i > 0 && segments[i-1].Closed() {
			assert.Equal(t, *segments[i-1].End, s.Start, "gap or overlap before segment %d", i)
		}
	}
}

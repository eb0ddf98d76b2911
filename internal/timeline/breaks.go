package timeline

import (
	"strings"
	"unicode"

	"github.com/goodtune/daybook/internal/storage"
)

// MaxBlockMinutes is the longest a closed segment or a consolidated block
// may be.
const MaxBlockMinutes = 120

const (
	// GapBreakLabel labels breaks inserted to close a gap.
	GapBreakLabel = "Pause (automatisch eingefügt)"
	// SplitBreakLabel labels breaks inserted behind a truncated segment.
	SplitBreakLabel = "Pause (automatisch)"
)

// IsBreakLabel reports whether a user label denotes non-work time. Any
// label containing "pause" (Pause, Mittagspause, Kaffeepause) matches, as
// does the word "break" on its own.
func IsBreakLabel(label string) bool {
	key := storage.LabelKey(label)
	if strings.Contains(key, "pause") {
		return true
	}
	words := strings.FieldsFunc(key, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		if w == "break" {
			return true
		}
	}
	return false
}

// DayTotals sums closed segments into work and break minutes.
func DayTotals(segments []storage.Segment) (work, breaks int) {
	for _, seg := range segments {
		if !seg.Closed() {
			continue
		}
		if seg.IsBreak {
			breaks += seg.Duration()
		} else {
			work += seg.Duration()
		}
	}
	return work, breaks
}

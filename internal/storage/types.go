package storage

import (
	"sort"
	"strings"
	"time"

	"github.com/goodtune/daybook/internal/timeofday"
)

// DateLayout is the layout of Segment.Date and Block.Date.
const DateLayout = "2006-01-02"

// Segment is one recorded interval of activity. A nil End marks the
// segment as still running.
type Segment struct {
	ID      string          `json:"id"`
	Date    string          `json:"date"`
	Start   timeofday.Time  `json:"start"`
	End     *timeofday.Time `json:"end"`
	Label   string          `json:"label"`
	IsBreak bool            `json:"is_break"`
}

// Closed reports whether the segment has an end time.
func (s Segment) Closed() bool {
	return s.End != nil
}

// Duration returns the length in minutes, or 0 for an open segment.
func (s Segment) Duration() int {
	if s.End == nil {
		return 0
	}
	return timeofday.Between(s.Start, *s.End)
}

// Block is a consolidated reporting interval produced at day's end.
type Block struct {
	ID              string         `json:"id"`
	Date            string         `json:"date"`
	Start           timeofday.Time `json:"start"`
	End             timeofday.Time `json:"end"`
	Label           string         `json:"label"`
	DurationMinutes int            `json:"duration_minutes"`
}

// LabelUsage is one entry of the label-usage index.
type LabelUsage struct {
	Label      string    `json:"label"`
	UsageCount int64     `json:"usage_count"`
	LastUsed   time.Time `json:"last_used"`
}

// LabelKey normalizes a label for case-insensitive identity.
func LabelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// WriteOp is the kind of a SegmentWrite.
type WriteOp int

const (
	WriteInsert WriteOp = iota + 1
	WriteUpdate
	WriteDelete
)

func (op WriteOp) String() string {
	switch op {
	case WriteInsert:
		return "insert"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// SegmentWrite is one step of SegmentStore.Apply. A delete only needs
// Segment.ID.
type SegmentWrite struct {
	Op      WriteOp
	Segment Segment
}

// SortSegments orders segments by start; at equal starts closed segments
// come before an open one so that a running segment stays last.
func SortSegments(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		a, b := segments[i], segments[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Closed() != b.Closed() {
			return a.Closed()
		}
		if a.Closed() && *a.End != *b.End {
			return *a.End < *b.End
		}
		return a.ID < b.ID
	})
}

// SortLabelUsage orders usage entries by count, then most recent use.
func SortLabelUsage(usage []LabelUsage) {
	sort.SliceStable(usage, func(i, j int) bool {
		if usage[i].UsageCount != usage[j].UsageCount {
			return usage[i].UsageCount > usage[j].UsageCount
		}
		if !usage[i].LastUsed.Equal(usage[j].LastUsed) {
			return usage[i].LastUsed.After(usage[j].LastUsed)
		}
		return LabelKey(usage[i].Label) < LabelKey(usage[j].Label)
	})
}

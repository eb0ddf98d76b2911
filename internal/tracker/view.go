package tracker

import (
	"context"
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/timeofday"
)

// DayView is one day as presented by the CLI and the HTTP API.
type DayView struct {
	Date         string          `json:"date"`
	Closed       bool            `json:"closed"`
	Segments     []SegmentView   `json:"segments"`
	Blocks       []storage.Block `json:"blocks"`
	WorkMinutes  int             `json:"work_minutes"`
	BreakMinutes int             `json:"break_minutes"`
	Work         string          `json:"work"`
	Breaks       string          `json:"breaks"`
	WorkText     string          `json:"work_text"`
	BreaksText   string          `json:"breaks_text"`
}

// SegmentView is a segment with its display fields.
type SegmentView struct {
	storage.Segment

	// Row is the 1-based position within the day.
	Row             int              `json:"row"`
	Duration        string           `json:"duration"`
	DurationMinutes int              `json:"duration_minutes"`
	Running         bool             `json:"running"`
	Editable        []timeline.Field `json:"editable"`
	Deletable       bool             `json:"deletable"`
}

// view assembles the stored state of date without changing it.
func (t *Tracker) view(ctx context.Context, date string) (*DayView, error) {
	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}
	blocks, err := t.store.Blocks().ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load blocks for %s: %w", date, err)
	}

	closed := len(blocks) > 0
	now := t.clock.Now()

	view := &DayView{
		Date:     date,
		Closed:   closed,
		Segments: make([]SegmentView, len(segments)),
		Blocks:   blocks,
	}

	for i, seg := range segments {
		sv := SegmentView{
			Segment:   seg,
			Row:       i + 1,
			Running:   !seg.Closed(),
			Editable:  []timeline.Field{},
			Deletable: timeline.Deletable(seg, closed),
		}
		if seg.Closed() {
			sv.DurationMinutes = seg.Duration()
		} else {
			sv.DurationMinutes = max(elapsedMinutes(seg, now), 0)
		}
		sv.Duration = timeofday.FormatDuration(sv.DurationMinutes)
		for _, f := range timeline.Fields {
			if timeline.Editable(seg, f, closed) {
				sv.Editable = append(sv.Editable, f)
			}
		}
		view.Segments[i] = sv
	}

	view.WorkMinutes, view.BreakMinutes = timeline.DayTotals(segments)
	view.Work = timeofday.FormatDuration(view.WorkMinutes)
	view.Breaks = timeofday.FormatDuration(view.BreakMinutes)
	view.WorkText = timeofday.FormatDurationText(view.WorkMinutes)
	view.BreaksText = timeofday.FormatDurationText(view.BreakMinutes)

	return view, nil
}

package timeline

import (
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
)

// Edit sets one field of the segment with the given ID and reconciles the
// day. Start and end edits move the following segments along; an edit that
// makes the segment longer than MaxBlockMinutes splits it.
func Edit(segments []storage.Segment, id string, field Field, value string) (*Result, error) {
	p := newPlan(segments)
	i := p.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}

	seg := p.rows[i].seg
	if !Editable(seg, field, false) {
		err := ErrFieldLocked
		if field == FieldDuration {
			err = ErrReadOnlyField
		}
		return nil, &ValidationError{Field: field.String(), Value: value, Err: err}
	}

	switch field {
	case FieldLabel:
		seg.Label = value
		seg.IsBreak = IsBreakLabel(value)
		p.update(i, seg)

	case FieldStart, FieldEnd:
		t, err := timeofday.Parse(value)
		if err != nil {
			return nil, &ValidationError{Field: field.String(), Value: value, Err: err}
		}
		start, end := seg.Start, *seg.End
		if field == FieldStart {
			start = t
		} else {
			end = t
		}
		if timeofday.Between(start, end) <= 0 {
			return nil, &ValidationError{Field: field.String(), Value: value, Err: ErrEndNotAfterStart}
		}

		seg.Start, seg.End = start, timeofday.Ptr(end)
		p.update(i, seg)
		if seg.Duration() > MaxBlockMinutes {
			_, err = p.split(i)
		} else {
			_, err = p.reanchor(i + 1)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// Delete removes a closed segment and reconciles the day, which fills the
// hole it leaves with a break.
func Delete(segments []storage.Segment, id string) (*Result, error) {
	p := newPlan(segments)
	i := p.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	if !p.rows[i].seg.Closed() {
		return nil, &ValidationError{Field: "segment", Value: id, Err: ErrDeleteOpen}
	}

	p.remove(i)
	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// Add places a closed segment into the day by its start time and
// reconciles. Later segments are pushed back if the new one overlaps them.
func Add(segments []storage.Segment, date string, start, end timeofday.Time, label string) (*Result, error) {
	if timeofday.Between(start, end) <= 0 {
		return nil, &ValidationError{Field: "end", Value: end.String(), Err: ErrEndNotAfterStart}
	}

	p := newPlan(segments)
	if open := p.openIndex(); open >= 0 && !start.Before(p.rows[open].seg.Start) {
		return nil, &ValidationError{Field: "start", Value: start.String(), Err: ErrStartsAfterActive}
	}

	at := len(p.rows)
	for i, r := range p.rows {
		if r.seg.Start > start {
			at = i
			break
		}
	}
	p.insert(at, storage.Segment{
		Date:    date,
		Start:   start,
		End:     timeofday.Ptr(end),
		Label:   label,
		IsBreak: IsBreakLabel(label),
	})

	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// StartActivity opens a new segment. It continues seamlessly from the end
// of the day's last segment, or starts at now on an empty day.
func StartActivity(segments []storage.Segment, date, label string, now timeofday.Time) (*Result, error) {
	p := newPlan(segments)
	if p.openIndex() >= 0 {
		return nil, ErrActivityRunning
	}

	start := now
	if n := len(p.rows); n > 0 {
		start = *p.rows[n-1].seg.End
	}
	p.insert(len(p.rows), storage.Segment{
		Date:    date,
		Start:   start,
		Label:   label,
		IsBreak: IsBreakLabel(label),
	})

	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// StopActivity closes the running segment at now. A segment stopped in
// the minute it started has no length and is deleted instead.
func StopActivity(segments []storage.Segment, now timeofday.Time) (*Result, error) {
	p := newPlan(segments)
	i := p.openIndex()
	if i < 0 {
		return nil, ErrNoActivity
	}

	seg := p.rows[i].seg
	if now.Before(seg.Start) {
		return nil, &ValidationError{Field: "end", Value: now.String(), Err: ErrEndNotAfterStart}
	}
	if now == seg.Start {
		p.remove(i)
	} else {
		seg.End = timeofday.Ptr(now)
		p.update(i, seg)
	}

	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p.result(), nil
}

// CapActivity closes the running segment at exactly MaxBlockMinutes once
// it has run that long. The boolean reports whether it was closed.
func CapActivity(segments []storage.Segment, now timeofday.Time) (*Result, bool, error) {
	p := newPlan(segments)
	i := p.openIndex()
	if i < 0 {
		return p.result(), false, nil
	}

	seg := p.rows[i].seg
	if timeofday.Between(seg.Start, now) < MaxBlockMinutes {
		return p.result(), false, nil
	}
	seg.End = timeofday.Ptr(seg.Start.Add(MaxBlockMinutes))
	p.update(i, seg)

	if err := p.reconcile(); err != nil {
		return nil, false, err
	}
	return p.result(), true, nil
}

// RunningMinutes returns how long the open segment has been running at now,
// and false when nothing is running.
func RunningMinutes(segments []storage.Segment, now timeofday.Time) (int, bool) {
	for _, seg := range segments {
		if !seg.Closed() {
			return timeofday.Between(seg.Start, now), true
		}
	}
	return 0, false
}

// ValidateForClose checks that a day may be consolidated: nothing is
// running and every segment is labeled.
func ValidateForClose(segments []storage.Segment) error {
	sorted := newPlan(segments)
	if sorted.openIndex() >= 0 {
		return ErrActivityRunning
	}

	var rows []int
	for i, r := range sorted.rows {
		if storage.LabelKey(r.seg.Label) == "" {
			rows = append(rows, i+1)
		}
	}
	if len(rows) > 0 {
		return &ValidationError{Field: "label", Rows: rows, Err: ErrEmptyLabel}
	}
	return nil
}

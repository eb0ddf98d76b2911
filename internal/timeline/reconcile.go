package timeline

import (
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
)

// reconcileSlack is added to the pass budget on top of two passes per
// segment: each original boundary is fixed at most once and each original
// segment is split at most once.
const reconcileSlack = 4

// Reconcile restores contiguity and the duration cap over one day's
// segments. Gaps are filled with breaks, overlaps are resolved by moving
// the later segment behind the earlier one, over-long segments are split.
// An already consistent day yields a Result without changes.
func Reconcile(segments []storage.Segment) (*Result, error) {
	p := newPlan(segments)
	if err := p.reconcile(); err != nil {
		return nil, err
	}
	return p.result(), nil
}

func (p *plan) reconcile() error {
	return p.reconcileWithin(2*len(p.rows) + reconcileSlack)
}

// reconcileWithin runs fix passes until one finds nothing to do.
func (p *plan) reconcileWithin(limit int) error {
	for pass := 0; pass < limit; pass++ {
		p.stats.Passes++
		fixed, err := p.fixFirst()
		if err != nil {
			return err
		}
		if !fixed {
			return nil
		}
	}
	return &InvariantError{
		Err:    ErrIterationCap,
		Detail: fmt.Sprintf("still changing after %d passes over %d segments", limit, len(p.rows)),
	}
}

// fixFirst corrects the first inconsistency found scanning from the
// start of the day and reports whether it changed anything.
func (p *plan) fixFirst() (bool, error) {
	last := len(p.rows) - 1
	for i := range p.rows {
		cur := p.rows[i].seg
		if !cur.Closed() && i != last {
			return false, &InvariantError{SegmentID: cur.ID, Err: ErrOpenNotLast}
		}
		if cur.Duration() < 0 {
			return false, &InvariantError{
				SegmentID: cur.ID,
				Err:       ErrNegativeDuration,
				Detail:    fmt.Sprintf("%s-%s", cur.Start, *cur.End),
			}
		}

		if i > 0 {
			// The previous row is closed, otherwise the check above failed
			// on the previous iteration.
			prevEnd := *p.rows[i-1].seg.End
			switch diff := timeofday.Between(prevEnd, cur.Start); {
			case diff > 0:
				p.fillGap(i, prevEnd, diff)
				return true, nil
			case diff < 0:
				if err := p.shiftTo(i, prevEnd); err != nil {
					return false, err
				}
				return true, nil
			}
		}

		if cur.Duration() > MaxBlockMinutes {
			if _, err := p.split(i); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

func (p *plan) fillGap(at int, from timeofday.Time, minutes int) {
	inserted := p.insertBreaks(at, from, minutes, GapBreakLabel)
	p.stats.GapsFilled++
	p.stats.GapBreaks += len(inserted)
}

// shiftTo moves row i to start at start, keeping its duration.
func (p *plan) shiftTo(i int, start timeofday.Time) error {
	if _, err := p.moveTo(i, start); err != nil {
		return err
	}
	p.stats.OverlapsCorrected++
	return nil
}

// moveTo sets the start of row i and keeps its duration. A closed segment
// that would then run past the end of the day is rejected.
func (p *plan) moveTo(i int, start timeofday.Time) (storage.Segment, error) {
	seg := p.rows[i].seg
	if seg.Closed() {
		duration := seg.Duration()
		if int(start)+duration >= timeofday.MinutesPerDay {
			return seg, &ValidationError{
				Field: "segment",
				Value: seg.Label,
				Rows:  []int{i + 1},
				Err:   ErrPastMidnight,
			}
		}
		seg.End = timeofday.Ptr(start.Add(duration))
	}
	seg.Start = start
	p.update(i, seg)
	return seg, nil
}

// insertBreaks inserts break segments covering minutes from "from" at
// position at, none longer than MaxBlockMinutes.
func (p *plan) insertBreaks(at int, from timeofday.Time, minutes int, label string) []storage.Segment {
	var inserted []storage.Segment
	date := p.date()
	cursor := from
	for minutes > 0 {
		chunk := min(minutes, MaxBlockMinutes)
		end := cursor.Add(chunk)
		seg := storage.Segment{
			Date:    date,
			Start:   cursor,
			End:     timeofday.Ptr(end),
			Label:   label,
			IsBreak: true,
		}
		p.insert(at, seg)
		inserted = append(inserted, seg)
		at++
		cursor = end
		minutes -= chunk
	}
	return inserted
}

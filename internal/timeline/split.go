package timeline

import (
	"fmt"

	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeofday"
)

// SplitResult describes what splitting an over-long segment did.
type SplitResult struct {
	Result

	// Head is the segment after truncation.
	Head storage.Segment
	// OriginalMinutes is the duration before truncation.
	OriginalMinutes int
	// RemainingMinutes is the part cut off the head.
	RemainingMinutes int
	// Breaks covers RemainingMinutes when the next segment was already full.
	Breaks []storage.Segment
	// Reanchored lists following segments that moved.
	Reanchored []storage.Segment
}

type splitOutcome struct {
	head       storage.Segment
	original   int
	remaining  int
	breaks     []storage.Segment
	reanchored []storage.Segment
}

// Split caps the segment with the given ID at MaxBlockMinutes. Splitting a
// segment that is open or within the cap changes nothing.
func Split(segments []storage.Segment, id string) (*SplitResult, error) {
	p := newPlan(segments)
	i := p.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSegmentNotFound, id)
	}
	if d := p.rows[i].seg.Duration(); d < 0 {
		return nil, &InvariantError{SegmentID: id, Err: ErrNegativeDuration}
	}

	out, err := p.split(i)
	if err != nil {
		return nil, err
	}
	return &SplitResult{
		Result:           *p.result(),
		Head:             out.head,
		OriginalMinutes:  out.original,
		RemainingMinutes: out.remaining,
		Breaks:           out.breaks,
		Reanchored:       out.reanchored,
	}, nil
}

func (p *plan) split(i int) (splitOutcome, error) {
	seg := p.rows[i].seg
	out := splitOutcome{head: seg, original: seg.Duration()}
	if !seg.Closed() || out.original <= MaxBlockMinutes {
		return out, nil
	}

	out.remaining = out.original - MaxBlockMinutes
	headEnd := seg.Start.Add(MaxBlockMinutes)
	seg.End = timeofday.Ptr(headEnd)
	p.update(i, seg)
	out.head = seg
	p.stats.Splits++

	next := i + 1
	if next < len(p.rows) {
		neighbour := p.rows[next].seg
		if neighbour.Closed() && neighbour.Duration() >= MaxBlockMinutes {
			out.breaks = p.insertBreaks(next, headEnd, out.remaining, SplitBreakLabel)
			p.stats.SplitBreaks += len(out.breaks)
			next += len(out.breaks)
		}
	}
	reanchored, err := p.reanchor(next)
	if err != nil {
		return out, err
	}
	out.reanchored = reanchored
	return out, nil
}

// reanchor makes every closed segment from index "from" onwards start at
// its predecessor's end while keeping its own duration.
func (p *plan) reanchor(from int) ([]storage.Segment, error) {
	var moved []storage.Segment
	for j := max(from, 1); j < len(p.rows); j++ {
		prev, cur := p.rows[j-1].seg, p.rows[j].seg
		if !prev.Closed() || !cur.Closed() || cur.Start == *prev.End {
			continue
		}
		seg, err := p.moveTo(j, *prev.End)
		if err != nil {
			return nil, err
		}
		moved = append(moved, seg)
	}
	p.stats.Reanchored += len(moved)
	return moved, nil
}

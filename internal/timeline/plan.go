package timeline

import (
	"slices"

	"github.com/goodtune/daybook/internal/storage"
)

// ChangeKind identifies a persistence step.
type ChangeKind int

const (
	changeDropped ChangeKind = iota
	ChangeInsert
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeInsert:
		return "insert"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "dropped"
	}
}

// Change is one write the caller must apply to the segment store. Changes
// are independent of each other but must be applied in order so that a
// failure leaves a prefix of the plan persisted.
type Change struct {
	Kind    ChangeKind
	Segment storage.Segment
}

// Stats counts the corrections made while producing a Result.
type Stats struct {
	Passes            int
	GapsFilled        int
	GapBreaks         int
	SplitBreaks       int
	OverlapsCorrected int
	Splits            int
	Reanchored        int
}

// Result is the outcome of an engine operation: the new day snapshot and
// the writes needed to bring storage in line with it. Segments created by
// the operation have an empty ID until the caller persists them.
type Result struct {
	Segments []storage.Segment
	Changes  []Change
	Stats    Stats
}

// Changed reports whether the operation requires any store writes.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

type row struct {
	seg storage.Segment
	ref int
}

// plan is the working copy of a day. Every mutation goes through insert,
// update or remove so that the change list mirrors the rows exactly.
// Repeated writes to one segment collapse into a single change.
type plan struct {
	rows    []row
	changes []Change
	pending map[int]int
	nextRef int
	stats   Stats
}

func newPlan(segments []storage.Segment) *plan {
	sorted := slices.Clone(segments)
	storage.SortSegments(sorted)

	p := &plan{
		rows:    make([]row, 0, len(sorted)),
		pending: make(map[int]int),
	}
	for _, seg := range sorted {
		p.nextRef++
		p.rows = append(p.rows, row{seg: seg, ref: p.nextRef})
	}
	return p
}

func (p *plan) index(id string) int {
	for i, r := range p.rows {
		if r.seg.ID == id {
			return i
		}
	}
	return -1
}

func (p *plan) openIndex() int {
	for i, r := range p.rows {
		if !r.seg.Closed() {
			return i
		}
	}
	return -1
}

func (p *plan) date() string {
	for _, r := range p.rows {
		if r.seg.Date != "" {
			return r.seg.Date
		}
	}
	return ""
}

func (p *plan) insert(at int, seg storage.Segment) {
	p.nextRef++
	r := row{seg: seg, ref: p.nextRef}
	p.rows = slices.Insert(p.rows, at, r)
	p.record(r, ChangeInsert)
}

func (p *plan) update(i int, seg storage.Segment) {
	if sameSegment(p.rows[i].seg, seg) {
		return
	}
	p.rows[i].seg = seg
	p.record(p.rows[i], ChangeUpdate)
}

func (p *plan) remove(i int) {
	r := p.rows[i]
	p.rows = slices.Delete(p.rows, i, i+1)
	p.record(r, ChangeDelete)
}

func (p *plan) record(r row, kind ChangeKind) {
	if idx, ok := p.pending[r.ref]; ok {
		c := &p.changes[idx]
		switch {
		case kind == ChangeDelete && c.Kind == ChangeInsert:
			c.Kind = changeDropped
		case kind == ChangeDelete:
			c.Kind = ChangeDelete
		}
		c.Segment = r.seg
		return
	}

	if r.seg.ID == "" {
		if kind == ChangeDelete {
			return
		}
		kind = ChangeInsert
	}
	p.pending[r.ref] = len(p.changes)
	p.changes = append(p.changes, Change{Kind: kind, Segment: r.seg})
}

func (p *plan) result() *Result {
	segments := make([]storage.Segment, len(p.rows))
	for i, r := range p.rows {
		segments[i] = r.seg
	}
	changes := make([]Change, 0, len(p.changes))
	for _, c := range p.changes {
		if c.Kind != changeDropped {
			changes = append(changes, c)
		}
	}
	return &Result{Segments: segments, Changes: changes, Stats: p.stats}
}

func sameSegment(a, b storage.Segment) bool {
	if a.ID != b.ID || a.Date != b.Date || a.Start != b.Start ||
		a.Label != b.Label || a.IsBreak != b.IsBreak || a.Closed() != b.Closed() {
		return false
	}
	return !a.Closed() || *a.End == *b.End
}

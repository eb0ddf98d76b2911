// Package tracker drives the timeline engine against a store: it loads a
// day, runs one engine operation, persists the resulting change-set and
// keeps the label-usage index current.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goodtune/daybook/internal/labels"
	"github.com/goodtune/daybook/internal/metrics"
	"github.com/goodtune/daybook/internal/storage"
	"github.com/goodtune/daybook/internal/timeline"
	"github.com/goodtune/daybook/internal/timeofday"
	"github.com/rs/zerolog"
)

const (
	// DefaultWarnBefore is how long before the cap a running activity is
	// reported as about to be split.
	DefaultWarnBefore = 10 * time.Minute

	lastMinute = timeofday.Time(timeofday.MinutesPerDay - 1)
)

// ErrEmptyDay is returned when closing a day without any work to report.
var ErrEmptyDay = errors.New("day has no work to consolidate")

// Config holds tracker configuration
type Config struct {
	WarnBefore   time.Duration
	AutoContinue bool
}

// Tracker serializes all mutations of the activity log. It keeps no copy
// of the data: every operation reads the day from the store, so a failed
// write never leaves memory ahead of storage.
type Tracker struct {
	store        storage.Store
	labels       *labels.Index
	clock        Clock
	warnBefore   time.Duration
	autoContinue bool
	logger       zerolog.Logger
	mu           sync.Mutex
}

// New creates a tracker. labels may be nil to disable usage recording.
func New(store storage.Store, labels *labels.Index, clock Clock, config Config, logger zerolog.Logger) *Tracker {
	if clock == nil {
		clock = RealClock{}
	}
	if config.WarnBefore == 0 {
		config.WarnBefore = DefaultWarnBefore
	}

	return &Tracker{
		store:        store,
		labels:       labels,
		clock:        clock,
		warnBefore:   config.WarnBefore,
		autoContinue: config.AutoContinue,
		logger:       logger.With().Str("component", "tracker").Logger(),
	}
}

// Today returns the current date in storage.DateLayout.
func (t *Tracker) Today() string {
	return t.clock.Now().Format(storage.DateLayout)
}

// Active returns the running segment, or ErrNoActivity.
func (t *Tracker) Active(ctx context.Context) (*storage.Segment, error) {
	return t.activeSegment(ctx)
}

// Start opens a new activity today. It continues from the end of today's
// last segment, or starts now on an empty day.
func (t *Tracker) Start(ctx context.Context, label string) (*storage.Segment, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, &timeline.ValidationError{Field: "label", Err: timeline.ErrEmptyLabel}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return t.start(ctx, t.clock.Now(), label)
}

func (t *Tracker) start(ctx context.Context, now time.Time, label string) (*storage.Segment, error) {
	date := now.Format(storage.DateLayout)
	if err := t.ensureOpen(ctx, date); err != nil {
		return nil, err
	}

	if _, err := t.activeSegment(ctx); err == nil {
		return nil, ErrActivityRunning
	} else if !errors.Is(err, ErrNoActivity) {
		return nil, err
	}

	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}

	res, err := timeline.StartActivity(segments, date, label, timeofday.FromClock(now))
	if err != nil {
		return nil, t.engineError(date, err)
	}
	if err := t.apply(ctx, "start", date, res); err != nil {
		return nil, err
	}
	t.recordLabel(ctx, label, now)

	active, err := t.activeSegment(ctx)
	if err != nil {
		return nil, err
	}

	t.logger.Info().
		Str("date", date).
		Str("segment_id", active.ID).
		Str("label", label).
		Str("start", active.Start.String()).
		Msg("Activity started")

	return active, nil
}

// Stop closes the running activity now. An activity left running on an
// earlier day is closed at the last minute of that day.
func (t *Tracker) Stop(ctx context.Context) (*storage.Segment, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	active, err := t.activeSegment(ctx)
	if err != nil {
		return nil, err
	}

	end := lastMinute
	if active.Date == now.Format(storage.DateLayout) {
		end = timeofday.FromClock(now)
	}

	segments, err := t.load(ctx, active.Date)
	if err != nil {
		return nil, err
	}

	res, err := timeline.StopActivity(segments, end)
	if err != nil {
		return nil, t.engineError(active.Date, err)
	}
	if err := t.apply(ctx, "stop", active.Date, res); err != nil {
		return nil, err
	}
	metrics.ActiveSegmentMinutes.Set(0)

	stopped, err := t.store.Segments().Get(ctx, active.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Stopped in the minute it started, so nothing was kept
		discarded := *active
		discarded.End = timeofday.Ptr(active.Start)
		t.logger.Info().
			Str("date", discarded.Date).
			Str("segment_id", discarded.ID).
			Str("label", discarded.Label).
			Msg("Activity discarded")
		return &discarded, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reload stopped segment: %w", err)
	}

	t.logger.Info().
		Str("date", stopped.Date).
		Str("segment_id", stopped.ID).
		Str("label", stopped.Label).
		Int("minutes", stopped.Duration()).
		Msg("Activity stopped")

	return stopped, nil
}

// CapStatus reports what EnforceCap found and did.
type CapStatus struct {
	Active         *storage.Segment `json:"active,omitempty"`
	RunningMinutes int              `json:"running_minutes"`
	Warning        bool             `json:"warning"`
	Capped         bool             `json:"capped"`
	Continued      *storage.Segment `json:"continued,omitempty"`
}

// EnforceCap closes the running activity once it reaches the block cap and
// warns shortly before. With auto-continue a new activity with the same
// label starts where the capped one ended.
func (t *Tracker) EnforceCap(ctx context.Context) (*CapStatus, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	active, err := t.activeSegment(ctx)
	if errors.Is(err, ErrNoActivity) {
		metrics.ActiveSegmentMinutes.Set(0)
		return &CapStatus{}, nil
	}
	if err != nil {
		return nil, err
	}

	elapsed := elapsedMinutes(*active, now)
	metrics.ActiveSegmentMinutes.Set(float64(elapsed))
	status := &CapStatus{Active: active, RunningMinutes: elapsed}

	if elapsed < timeline.MaxBlockMinutes {
		remaining := time.Duration(timeline.MaxBlockMinutes-elapsed) * time.Minute
		if remaining <= t.warnBefore {
			status.Warning = true
			t.logger.Warn().
				Str("segment_id", active.ID).
				Str("label", active.Label).
				Dur("remaining", remaining).
				Msg("Running activity approaches the block limit")
		}
		return status, nil
	}

	segments, err := t.load(ctx, active.Date)
	if err != nil {
		return nil, err
	}

	var res *timeline.Result
	if capEnd := active.Start.Add(timeline.MaxBlockMinutes); capEnd.After(active.Start) {
		res, _, err = timeline.CapActivity(segments, capEnd)
	} else {
		res, err = timeline.StopActivity(segments, lastMinute)
	}
	if err != nil {
		return nil, t.engineError(active.Date, err)
	}
	if err := t.apply(ctx, "cap", active.Date, res); err != nil {
		return nil, err
	}
	status.Capped = true
	metrics.ActiveSegmentMinutes.Set(0)

	t.logger.Info().
		Str("date", active.Date).
		Str("segment_id", active.ID).
		Str("label", active.Label).
		Msg("Running activity reached the block limit and was closed")

	if t.autoContinue && active.Date == now.Format(storage.DateLayout) {
		continued, err := t.start(ctx, now, active.Label)
		if err != nil {
			return status, fmt.Errorf("continue activity: %w", err)
		}
		status.Continued = continued
	}

	return status, nil
}

// Add records a closed activity on date.
func (t *Tracker) Add(ctx context.Context, date string, start, end timeofday.Time, label string) (*DayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	label = strings.TrimSpace(label)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureOpen(ctx, date); err != nil {
		return nil, err
	}
	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}

	res, err := timeline.Add(segments, date, start, end, label)
	if err != nil {
		return nil, t.engineError(date, err)
	}
	if err := t.apply(ctx, "add", date, res); err != nil {
		return nil, err
	}
	t.recordLabel(ctx, label, t.clock.Now())

	return t.view(ctx, date)
}

// Edit changes one field of a segment on date.
func (t *Tracker) Edit(ctx context.Context, date, id string, field timeline.Field, value string) (*DayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if field == timeline.FieldLabel {
		value = strings.TrimSpace(value)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureOpen(ctx, date); err != nil {
		return nil, err
	}
	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}

	res, err := timeline.Edit(segments, id, field, value)
	if err != nil {
		return nil, t.engineError(date, err)
	}
	if err := t.apply(ctx, "edit", date, res); err != nil {
		return nil, err
	}
	if field == timeline.FieldLabel {
		t.recordLabel(ctx, value, t.clock.Now())
	}

	return t.view(ctx, date)
}

// Delete removes a closed segment on date; the hole becomes a break.
func (t *Tracker) Delete(ctx context.Context, date, id string) (*DayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureOpen(ctx, date); err != nil {
		return nil, err
	}
	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}

	res, err := timeline.Delete(segments, id)
	if err != nil {
		return nil, t.engineError(date, err)
	}
	if err := t.apply(ctx, "delete", date, res); err != nil {
		return nil, err
	}

	return t.view(ctx, date)
}

// Reconcile repairs the segments of date and persists the corrections.
func (t *Tracker) Reconcile(ctx context.Context, date string) (*timeline.Stats, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureOpen(ctx, date); err != nil {
		return nil, err
	}
	return t.reconcile(ctx, date)
}

func (t *Tracker) reconcile(ctx context.Context, date string) (*timeline.Stats, error) {
	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}

	res, err := timeline.Reconcile(segments)
	if err != nil {
		return nil, t.engineError(date, err)
	}
	if err := t.apply(ctx, "reconcile", date, res); err != nil {
		return nil, err
	}
	return &res.Stats, nil
}

// Day returns the view of date. An open day is reconciled first.
func (t *Tracker) Day(ctx context.Context, date string) (*DayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	closed, err := t.isClosed(ctx, date)
	if err != nil {
		return nil, err
	}
	if !closed {
		if _, err := t.reconcile(ctx, date); err != nil {
			return nil, err
		}
	}

	return t.view(ctx, date)
}

// Close consolidates date into blocks, replacing any earlier blocks.
func (t *Tracker) Close(ctx context.Context, date string) (*DayView, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	segments, err := t.load(ctx, date)
	if err != nil {
		return nil, err
	}
	if err := timeline.ValidateForClose(segments); err != nil {
		return nil, err
	}

	if _, err := t.reconcile(ctx, date); err != nil {
		return nil, err
	}
	segments, err = t.load(ctx, date)
	if err != nil {
		return nil, err
	}

	blocks := timeline.Consolidate(segments)
	if len(blocks) == 0 {
		return nil, ErrEmptyDay
	}

	if _, err := t.store.Blocks().Replace(ctx, date, blocks); err != nil {
		return nil, &PersistenceError{Op: "close", Writes: len(blocks), Err: err}
	}

	metrics.ConsolidationsTotal.Inc()
	metrics.BlocksEmitted.Add(float64(len(blocks)))

	t.logger.Info().
		Str("date", date).
		Int("segments", len(segments)).
		Int("blocks", len(blocks)).
		Msg("Day closed")

	return t.view(ctx, date)
}

// Reopen deletes the blocks of date so that its segments can change again.
func (t *Tracker) Reopen(ctx context.Context, date string) (int, error) {
	if err := validateDate(date); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	deleted, err := t.store.Blocks().DeleteByDate(ctx, date)
	if err != nil {
		return 0, &PersistenceError{Op: "reopen", Err: err}
	}

	t.logger.Info().Str("date", date).Int("blocks", deleted).Msg("Day reopened")
	return deleted, nil
}

func (t *Tracker) load(ctx context.Context, date string) ([]storage.Segment, error) {
	segments, err := t.store.Segments().ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("load segments for %s: %w", date, err)
	}
	return segments, nil
}

func (t *Tracker) isClosed(ctx context.Context, date string) (bool, error) {
	blocks, err := t.store.Blocks().ListByDate(ctx, date)
	if err != nil {
		return false, fmt.Errorf("load blocks for %s: %w", date, err)
	}
	return len(blocks) > 0, nil
}

func (t *Tracker) ensureOpen(ctx context.Context, date string) error {
	closed, err := t.isClosed(ctx, date)
	if err != nil {
		return err
	}
	if closed {
		return ErrDayClosed
	}
	return nil
}

func (t *Tracker) activeSegment(ctx context.Context) (*storage.Segment, error) {
	active, err := t.store.Segments().Active(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoActivity
	}
	if err != nil {
		return nil, fmt.Errorf("load active segment: %w", err)
	}
	return active, nil
}

func (t *Tracker) recordLabel(ctx context.Context, label string, at time.Time) {
	if t.labels == nil {
		return
	}
	if err := t.labels.Record(ctx, label, at); err != nil {
		t.logger.Warn().Err(err).Str("label", label).Msg("Failed to record label use")
	}
}

// engineError counts invariant violations before handing err back.
func (t *Tracker) engineError(date string, err error) error {
	if timeline.IsInvariant(err) {
		metrics.InvariantViolations.Inc()
		t.logger.Error().Err(err).Str("date", date).Msg("Day violates segment invariants")
	}
	return err
}

func validateDate(date string) error {
	if _, err := time.Parse(storage.DateLayout, date); err != nil {
		return &timeline.ValidationError{Field: "date", Value: date, Err: err}
	}
	return nil
}

// elapsedMinutes measures a running segment against the wall clock, so an
// activity left open overnight counts the full time.
func elapsedMinutes(seg storage.Segment, now time.Time) int {
	day, err := time.ParseInLocation(storage.DateLayout, seg.Date, now.Location())
	if err != nil {
		return 0
	}
	return int(now.Sub(seg.Start.On(day)) / time.Minute)
}

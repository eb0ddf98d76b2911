package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goodtune/daybook/internal/timeofday"
)

// Validation failures. They are reported before any change is planned.
var (
	ErrInvalidTime       = timeofday.ErrInvalid
	ErrEndNotAfterStart  = errors.New("end must be after start")
	ErrReadOnlyField     = errors.New("field is read-only")
	ErrFieldLocked       = errors.New("field cannot be edited for this segment")
	ErrDeleteOpen        = errors.New("running segment cannot be deleted, stop it first")
	ErrEmptyLabel        = errors.New("label must not be empty")
	ErrStartsAfterActive = errors.New("segment would start after the running activity")
	ErrActivityRunning   = errors.New("an activity is already running")
	ErrNoActivity        = errors.New("no activity is running")
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrPastMidnight      = errors.New("segment would end after midnight")
)

// Invariant violations. Hitting one aborts the operation.
var (
	ErrIterationCap     = errors.New("reconciliation did not reach a fixed point")
	ErrNegativeDuration = errors.New("segment has a negative duration")
	ErrOpenNotLast      = errors.New("running segment is not the last segment of the day")
)

// ValidationError reports user input that was rejected.
type ValidationError struct {
	Field string
	Value string
	// Rows lists 1-based positions of offending segments, if any.
	Rows []int
	Err  error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid ")
	b.WriteString(e.Field)
	if e.Value != "" {
		fmt.Fprintf(&b, " %q", e.Value)
	}
	if len(e.Rows) > 0 {
		rows := make([]string, len(e.Rows))
		for i, r := range e.Rows {
			rows[i] = fmt.Sprint(r)
		}
		fmt.Fprintf(&b, " in rows %s", strings.Join(rows, ", "))
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvariantError reports a day that cannot be brought into a consistent
// state. It is never the result of ordinary user input.
type InvariantError struct {
	SegmentID string
	Detail    string
	Err       error
}

func (e *InvariantError) Error() string {
	msg := "invariant violation: " + e.Err.Error()
	if e.SegmentID != "" {
		msg += " (segment " + e.SegmentID + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *InvariantError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInvariant reports whether err is or wraps an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

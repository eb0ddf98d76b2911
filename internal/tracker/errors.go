package tracker

import (
	"errors"
	"fmt"

	"github.com/goodtune/daybook/internal/timeline"
)

var (
	// ErrDayClosed is returned for changes to a consolidated day.
	ErrDayClosed = errors.New("day is closed, reopen it first")

	ErrActivityRunning = timeline.ErrActivityRunning
	ErrNoActivity      = timeline.ErrNoActivity
)

// PersistenceError reports a change-set the store refused. The store
// applies change-sets atomically, so none of its Writes were persisted.
type PersistenceError struct {
	Op     string
	Writes int
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s (%d writes discarded): %v", e.Op, e.Writes, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistence reports whether err is or wraps a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

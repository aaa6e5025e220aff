// Package taxlock implements the cascading tax-year lock as a single
// watermark year. Locking year Y locks every year at or below Y, so the
// "implicitly locked" check is one integer comparison.
package taxlock

import (
	"sync"
	"time"
)

// Watermark is a tax-year lock. The zero value locks nothing. Safe for
// concurrent use; commit and undo re-check it immediately before writing.
type Watermark struct {
	mu      sync.RWMutex
	maxYear int // 0 = no year locked
}

// New creates a watermark locking all years at or below maxYear.
// maxYear <= 0 yields an open lock.
func New(maxYear int) *Watermark {
	w := &Watermark{}
	if maxYear > 0 {
		w.maxYear = maxYear
	}
	return w
}

// IsDateLocked reports whether the date falls in a locked year.
func (w *Watermark) IsDateLocked(date time.Time) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.maxYear > 0 && date.Year() <= w.maxYear
}

// MaxLockedYear returns the current watermark, 0 when nothing is locked.
func (w *Watermark) MaxLockedYear() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.maxYear
}

// SetMaxLockedYear moves the watermark. The watermark is the only mutable
// state: there is no per-year unlock below it, raising or lowering the
// watermark is the whole API.
func (w *Watermark) SetMaxLockedYear(year int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if year < 0 {
		year = 0
	}
	w.maxYear = year
}

// Open is a lock that never locks any date. Useful as a default
// collaborator when no tax-year policy is configured.
var Open = open{}

type open struct{}

// IsDateLocked always reports false.
func (open) IsDateLocked(time.Time) bool { return false }

// Package interval provides the single temporal overlap predicate used by the
// scheduling core. Windows are half-open [start, end); a nil end means the
// window extends forward without bound until explicitly closed.
package interval

import "time"

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   *time.Time
}

// Closed builds a bounded window.
func Closed(start, end time.Time) Window {
	return Window{Start: start, End: &end}
}

// Open builds an open-ended window.
func Open(start time.Time) Window {
	return Window{Start: start}
}

// Overlaps reports whether two windows intersect. A window whose end equals
// the other's start does not overlap it.
func Overlaps(a, b Window) bool {
	if a.End != nil && !b.Start.Before(*a.End) {
		return false
	}
	if b.End != nil && !a.Start.Before(*b.End) {
		return false
	}
	return true
}

// Overlaps reports whether w intersects other.
func (w Window) Overlaps(other Window) bool {
	return Overlaps(w, other)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	if w.End != nil && !t.Before(*w.End) {
		return false
	}
	return true
}

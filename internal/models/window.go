package models

import "time"

// TimeWindow is a contiguous span of time produced by analytics queries,
// for example the cheapest hour of the day. Windows are ephemeral and
// recomputed on demand; they are never persisted.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the window.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls within the window (start inclusive,
// end exclusive).
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Overlaps reports whether two windows share any instant, treating
// touching edges as overlapping so adjacent windows merge into one band.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return !other.Start.After(w.End) && !w.Start.After(other.End)
}

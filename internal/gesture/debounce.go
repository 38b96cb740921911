package gesture

import "time"

// Debouncer filters contact bounce out of a raw button level. The
// debounced level only changes after the raw level has held its new
// value for the full debounce interval.
type Debouncer struct {
	interval  time.Duration
	stable    bool
	candidate bool
	since     time.Time
	primed    bool
}

// NewDebouncer returns a Debouncer with the given interval. A zero or
// negative interval passes every level change through unfiltered.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Update feeds one raw level sample. It returns the debounced level
// and whether that level changed on this sample.
func (d *Debouncer) Update(raw bool, now time.Time) (level, changed bool) {
	if !d.primed || raw != d.candidate {
		d.candidate = raw
		d.since = now
		d.primed = true
	}
	if d.candidate != d.stable && now.Sub(d.since) >= d.interval {
		d.stable = d.candidate
		return d.stable, true
	}
	return d.stable, false
}

// Level returns the current debounced level without feeding a sample.
func (d *Debouncer) Level() bool { return d.stable }

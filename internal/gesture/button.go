package gesture

import "time"

// Button composes a debounce filter with the multi-press recognizer,
// turning raw level samples straight into gestures.
type Button struct {
	deb *Debouncer
	rec *Recognizer
}

// NewButton returns a Button with the given debounce interval, double
// window and hold threshold.
func NewButton(debounce, window, hold time.Duration) *Button {
	return &Button{
		deb: NewDebouncer(debounce),
		rec: NewRecognizer(window, hold),
	}
}

// Update feeds one raw level sample and advances the timeout check.
func (b *Button) Update(raw bool, now time.Time) Press {
	if level, changed := b.deb.Update(raw, now); changed {
		if p := b.rec.Edge(level, now); p != PressNone {
			return p
		}
	}
	return b.rec.Tick(now)
}

// HoldButton composes a debounce filter with the hold-only detector.
type HoldButton struct {
	deb  *Debouncer
	hold *Hold
}

// NewHoldButton returns a HoldButton with the given debounce interval
// and hold threshold.
func NewHoldButton(debounce, threshold time.Duration) *HoldButton {
	return &HoldButton{
		deb:  NewDebouncer(debounce),
		hold: NewHold(threshold),
	}
}

// Update feeds one raw level sample. True means the hold threshold was
// crossed on this sample.
func (b *HoldButton) Update(raw bool, now time.Time) bool {
	if level, changed := b.deb.Update(raw, now); changed {
		b.hold.Edge(level, now)
	}
	return b.hold.Tick(now)
}

package logic

// Throttle gates publication to once every skip+1 valid frames. The
// countdown starts at zero so the very first valid frame publishes.
type Throttle struct {
	skip      int
	remaining int
}

// NewThrottle creates a throttle that skips the given number of valid
// frames between publications.
func NewThrottle(skip int) *Throttle {
	if skip < 0 {
		skip = 0
	}
	return &Throttle{skip: skip}
}

// Tick consumes one eligible cycle and reports whether it publishes.
// The countdown resets to the skip count immediately after a
// publishing cycle.
func (t *Throttle) Tick() bool {
	if t.remaining == 0 {
		t.remaining = t.skip
		return true
	}
	t.remaining--
	return false
}

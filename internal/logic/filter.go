package logic

// ewmaSamples is the time constant of the falling-edge average, in
// samples. At the meter's 1 Hz frame rate this is about one minute.
const ewmaSamples = 60

// PowerFilter smooths the noisy apparent power reading into a
// debounced over-threshold state. An overshoot snaps the estimate up
// immediately so the rising edge has no lag; recovery decays through a
// single-pole exponential average so transient dips do not flap the
// output.
//
// The filter owns its smoothed estimate exclusively. It is initialized
// at process start and never reset.
type PowerFilter struct {
	threshold float64
	smoothed  float64
}

// NewPowerFilter creates a filter with the given threshold in volt-amps.
func NewPowerFilter(threshold int64) *PowerFilter {
	return &PowerFilter{threshold: float64(threshold)}
}

// Update feeds one power reading and returns the over-threshold state.
func (p *PowerFilter) Update(va int64) bool {
	v := float64(va)
	if v > p.smoothed && v > p.threshold {
		// Overshoot overrides the estimate outright.
		p.smoothed = v
	} else {
		p.smoothed -= (p.smoothed - v) / ewmaSamples
	}
	return p.smoothed > p.threshold
}

// Smoothed returns the current estimate, for status reporting.
func (p *PowerFilter) Smoothed() float64 {
	return p.smoothed
}

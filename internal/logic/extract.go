package logic

import (
	"github.com/ebriand/teleinfod/internal/frame"
)

// redPeakIndex is the reserved tariff-period index announcing the
// contractual red-peak tier. It forces shedding regardless of the
// measured power.
const redPeakIndex = 6

// Bit offsets of the 2-bit Tempo color sub-fields inside the STGE
// status register.
const (
	todayColorShift    = 24
	tomorrowColorShift = 26
)

// Codes names the meter fields the extractor reads. Labels differ
// between TIC versions (mono v1 uses PAPP for power, v2 uses SINSTS),
// so they are configured at startup and fixed for the process
// lifetime.
type Codes struct {
	Power   string // instantaneous apparent power, VA
	Message string // short free-text message
	Tariff  string // current tariff-period index
	Relay   string // relay state bitmask
	Status  string // 32-bit status register
}

// DefaultCodes returns the field labels of a single-phase TIC v2 meter.
func DefaultCodes() Codes {
	return Codes{
		Power:   "SINSTS",
		Message: "MSG1",
		Tariff:  "NTARF",
		Relay:   "RELAIS",
		Status:  "STGE",
	}
}

// Extractor derives the per-frame signal bundle. It owns the power
// filter's smoothed estimate and the last seen meter message; both
// persist for the process lifetime and are only touched from the
// single ingestion path.
type Extractor struct {
	codes       Codes
	filter      *PowerFilter
	lastMessage string
}

// NewExtractor creates an extractor with the given field labels and
// load-shed power threshold in volt-amps.
func NewExtractor(codes Codes, threshold int64) *Extractor {
	return &Extractor{
		codes:  codes,
		filter: NewPowerFilter(threshold),
	}
}

// Process derives the signals for one valid frame, updating the
// filter estimate and message state as a side effect. It must run on
// every valid frame, in arrival order, even on cycles that will not
// publish, so the estimate stays current.
func (e *Extractor) Process(f frame.Frame) Signals {
	var s Signals

	override := false
	if idx, ok := f.Int(e.codes.Tariff); ok {
		if idx%2 == 1 {
			s.Period = PeriodOffPeak
		} else {
			s.Period = PeriodPeak
		}
		override = idx == redPeakIndex
	}

	overPower := StateUnknown
	if va, ok := f.Int(e.codes.Power); ok {
		s.Power = va
		s.HasPower = true
		overPower = StateOff
		if e.filter.Update(va) {
			overPower = StateOn
		}
	}

	// The red-peak override is authoritative; without it, an unknown
	// filter output stays unknown rather than clearing the flag.
	switch {
	case override:
		s.LoadShed = StateOn
	default:
		s.LoadShed = overPower
	}

	// Fail closed: no relay bitmask means hot water stays off.
	s.HotWater = StateOff
	if r, ok := f.Int(e.codes.Relay); ok && r&1 != 0 {
		s.HotWater = StateOn
	}

	if reg, ok := f.Int(e.codes.Status); ok {
		s.Today = colorFromBits(reg >> todayColorShift)
		s.Tomorrow = colorFromBits(reg >> tomorrowColorShift)
	}

	if m, ok := f.Str(e.codes.Message); ok && m != e.lastMessage {
		e.lastMessage = m
		s.Message = m
	}

	return s
}

// SmoothedPower exposes the filter estimate for status reporting.
func (e *Extractor) SmoothedPower() float64 {
	return e.filter.Smoothed()
}

func colorFromBits(v int64) Color {
	switch v & 0x03 {
	case 1:
		return ColorBlue
	case 2:
		return ColorWhite
	case 3:
		return ColorRed
	}
	return ColorNone
}

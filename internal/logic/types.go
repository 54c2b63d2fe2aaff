// Package logic contains pure signal-derivation logic for meter frames.
// This package has NO side effects (no network, OS, or time.Sleep).
// All state it keeps is owned by the single ingestion path.
package logic

// State is the tri-valued state of a published switch signal.
// The zero value means the signal could not be derived this cycle and
// must not be published.
type State string

const (
	StateUnknown State = ""
	StateOn      State = "ON"
	StateOff     State = "OFF"
)

// Period identifies the active pricing period.
type Period string

const (
	PeriodUnknown Period = ""
	PeriodPeak    Period = "HP"
	PeriodOffPeak Period = "HC"
)

// Color is a Tempo daily tariff color. The zero value covers both
// "no announcement yet" from the meter and an unavailable fallback.
type Color string

const (
	ColorNone  Color = ""
	ColorBlue  Color = "BLUE"
	ColorWhite Color = "WHITE"
	ColorRed   Color = "RED"
)

// Signals is the derived output of one valid frame. Consumed
// immediately by the publish path; never retained.
type Signals struct {
	// LoadShed is the over-power / shedding flag. Unknown when the
	// power field was absent and no tariff override applies.
	LoadShed State

	// HotWater is the domestic-hot-water-allow flag. Fails closed:
	// never Unknown, an absent relay bitmask reads as OFF.
	HotWater State

	Period Period

	// Today and Tomorrow are the Tempo colors announced by the meter's
	// status register. Tomorrow is commonly ColorNone until the meter
	// updates near midnight.
	Today    Color
	Tomorrow Color

	// Power is the raw apparent power reading in volt-amps.
	Power    int64
	HasPower bool

	// Message carries the meter's short free-text message, but only on
	// the cycle where it changed. Empty otherwise.
	Message string
}

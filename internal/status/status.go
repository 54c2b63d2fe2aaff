// Package status provides a thread-safe status tracker for the
// teleinfod daemon. It is read by the HTTP status handlers while the
// ingestion loop updates it.
package status

import (
	"sync"
	"time"

	"github.com/ebriand/teleinfod/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker      string
	UDPAddr     string
	TopicPrefix string
	SkipCount   int
	ThresholdVA int64
	HTTPAddr    string
	TempoFetch  bool // whether the calendar fallback is configured
}

// Counts tracks pipeline totals since startup.
type Counts struct {
	Frames        int
	Invalid       int
	Batches       int
	PublishErrors int
	RelayErrors   int
	Messages      int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	// Signals is the last published batch. Zero until the first
	// publishing cycle.
	Signals       logic.Signals
	LastPublish   time.Time
	LastMessage   string
	SmoothedPower float64
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// RecordFrame counts one input line; valid=false covers both
// undecodable lines and bad validity markers.
func (t *Tracker) RecordFrame(valid bool) {
	t.mu.Lock()
	t.snap.Counts.Frames++
	if !valid {
		t.snap.Counts.Invalid++
	}
	t.mu.Unlock()
}

// RecordBatch records one publishing cycle's outcome.
func (t *Tracker) RecordBatch(signals logic.Signals, at time.Time, err error) {
	t.mu.Lock()
	t.snap.Signals = signals
	t.snap.LastPublish = at
	t.snap.Counts.Batches++
	if err != nil {
		t.snap.Counts.PublishErrors++
	}
	t.mu.Unlock()
}

// RecordRelayError counts one failed UDP forward.
func (t *Tracker) RecordRelayError() {
	t.mu.Lock()
	t.snap.Counts.RelayErrors++
	t.mu.Unlock()
}

// RecordMessage stores the latest meter free-text message.
func (t *Tracker) RecordMessage(msg string) {
	t.mu.Lock()
	t.snap.LastMessage = msg
	t.snap.Counts.Messages++
	t.mu.Unlock()
}

// SetSmoothedPower updates the displayed filter estimate.
func (t *Tracker) SetSmoothedPower(va float64) {
	t.mu.Lock()
	t.snap.SmoothedPower = va
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

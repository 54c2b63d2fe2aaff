package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ebriand/teleinfod/internal/frame"
	"github.com/ebriand/teleinfod/internal/logic"
	"github.com/ebriand/teleinfod/internal/mqtt"
	"github.com/ebriand/teleinfod/internal/relay"
	"github.com/ebriand/teleinfod/internal/tempo"
)

// driver replays stdin lines through the full fake-backed pipeline:
// relay, decode, validity, extraction, throttle, publish.
type driver struct {
	relay     *relay.FakeRelay
	publisher *mqtt.FakePublisher
	extractor *logic.Extractor
	throttle  *logic.Throttle
	sched     *tempo.Scheduler
	now       time.Time
}

func newDriver(skip int, threshold int64) *driver {
	return &driver{
		relay:     relay.NewFakeRelay(),
		publisher: mqtt.NewFakePublisher(),
		extractor: logic.NewExtractor(logic.DefaultCodes(), threshold),
		throttle:  logic.NewThrottle(skip),
		now:       time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC),
	}
}

// feed processes one line the way the daemon's main loop does.
func (d *driver) feed(t *testing.T, line string) {
	t.Helper()
	d.now = d.now.Add(time.Second)

	if err := d.relay.Send([]byte(line + "\n")); err != nil {
		t.Fatalf("relay: %v", err)
	}

	f, err := frame.Decode([]byte(line))
	if err != nil || !f.Valid() {
		return
	}

	signals := d.extractor.Process(f)
	if !d.throttle.Tick() {
		return
	}
	if d.sched != nil && signals.Tomorrow == logic.ColorNone {
		if c := d.sched.Tomorrow(d.now); c != logic.ColorNone {
			signals.Tomorrow = c
		} else {
			d.sched.MaybeFetch(d.now)
		}
	}
	if err := d.publisher.PublishBatch(mqtt.Batch{Timestamp: d.now, Signals: signals}); err != nil {
		t.Logf("publish: %v", err)
	}
}

// fullFrame builds one tic2json dictionary line carrying all the fields
// the daemon interprets.
func fullFrame(power, tariff, relayMask, statusReg int64) string {
	return fmt.Sprintf(
		`{"SINSTS": {"data": %d}, "NTARF": {"data": %d}, "RELAIS": {"data": %d}, "STGE": {"data": %d}, "_tvalide": 1}`,
		power, tariff, relayMask, statusReg)
}

// TestIntegrationFullFlow walks a realistic session: steady off-peak
// consumption, an overload crossing the threshold, then recovery.
func TestIntegrationFullFlow(t *testing.T) {
	d := newDriver(0, 9000)
	reg := int64(1)<<24 | int64(2)<<26 // today blue, tomorrow white

	// Steady state well under the threshold, off-peak (odd index),
	// hot water enabled.
	for i := 0; i < 5; i++ {
		d.feed(t, fullFrame(600, 1, 1, reg))
	}
	// Overload.
	d.feed(t, fullFrame(12000, 1, 1, reg))
	// Back to normal; the smoothed estimate stays above threshold for a
	// while so shedding holds.
	d.feed(t, fullFrame(600, 1, 1, reg))

	if len(d.publisher.Batches) != 7 {
		t.Fatalf("expected 7 batches, got %d", len(d.publisher.Batches))
	}

	first := d.publisher.Batches[0].Signals
	if first.LoadShed != logic.StateOff {
		t.Errorf("steady state: expected load-shed OFF, got %q", first.LoadShed)
	}
	if first.HotWater != logic.StateOn {
		t.Errorf("steady state: expected hot water ON, got %q", first.HotWater)
	}
	if first.Period != logic.PeriodOffPeak {
		t.Errorf("steady state: expected HC, got %q", first.Period)
	}
	if first.Today != logic.ColorBlue || first.Tomorrow != logic.ColorWhite {
		t.Errorf("steady state: colors today=%q tomorrow=%q", first.Today, first.Tomorrow)
	}

	overload := d.publisher.Batches[5].Signals
	if overload.LoadShed != logic.StateOn {
		t.Errorf("overload: expected load-shed ON, got %q", overload.LoadShed)
	}
	if overload.Power != 12000 {
		t.Errorf("overload: expected raw power 12000, got %d", overload.Power)
	}

	// One frame of recovery is not enough to decay below threshold.
	after := d.publisher.Batches[6].Signals
	if after.LoadShed != logic.StateOn {
		t.Errorf("recovery: expected load-shed still ON, got %q", after.LoadShed)
	}

	if len(d.relay.Lines) != 7 {
		t.Errorf("expected all 7 lines relayed, got %d", len(d.relay.Lines))
	}
}

// TestIntegrationThrottleAndRelay verifies the relay sees every line
// while publication follows the skip cadence, invalid lines included.
func TestIntegrationThrottleAndRelay(t *testing.T) {
	d := newDriver(2, 9000)

	lines := []string{
		fullFrame(500, 2, 1, 0), // valid #1 -> publish
		"not json at all",
		fullFrame(501, 2, 1, 0), // valid #2 -> skipped
		`{"SINSTS": {"data": 502}, "_tvalide": 0}`,
		fullFrame(503, 2, 1, 0), // valid #3 -> skipped
		fullFrame(504, 2, 1, 0), // valid #4 -> publish
	}
	for _, l := range lines {
		d.feed(t, l)
	}

	if len(d.relay.Lines) != len(lines) {
		t.Errorf("expected %d relayed lines, got %d", len(lines), len(d.relay.Lines))
	}
	if len(d.publisher.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(d.publisher.Batches))
	}
	if d.publisher.Batches[0].Signals.Power != 500 {
		t.Errorf("batch 0 power: got %d", d.publisher.Batches[0].Signals.Power)
	}
	if d.publisher.Batches[1].Signals.Power != 504 {
		t.Errorf("batch 1 power: got %d", d.publisher.Batches[1].Signals.Power)
	}
}

// TestIntegrationSparseFrameTopics verifies that a frame carrying only
// the relay bitmask produces only the topics that could be derived.
func TestIntegrationSparseFrameTopics(t *testing.T) {
	d := newDriver(0, 9000)
	d.feed(t, `{"RELAIS": {"data": 0}, "_tvalide": 1}`)

	if len(d.publisher.Batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(d.publisher.Batches))
	}

	// Hot water only: power, tariff and register were absent.
	if len(d.publisher.Messages) != 1 {
		t.Fatalf("expected 1 message, got %+v", d.publisher.Messages)
	}
	msg := d.publisher.Messages[0]
	if msg.Topic != "sensors/meter/ecs" || msg.Payload != "OFF" {
		t.Errorf("unexpected message %+v", msg)
	}
}

// TestIntegrationTempoFallback drives the calendar fallback end to end:
// the meter never announces tomorrow's color, the daily window opens,
// and the fetched color appears in subsequent batches until rollover.
func TestIntegrationTempoFallback(t *testing.T) {
	d := newDriver(0, 9000)
	d.now = time.Date(2026, 2, 11, 10, 39, 55, 0, time.UTC)

	tomorrow := time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC)
	client := &tempo.FakeClient{Result: tempo.Result{
		Color:       logic.ColorRed,
		StartDate:   tomorrow,
		UpdatedDate: time.Date(2026, 2, 11, 6, 0, 0, 0, time.UTC),
	}}
	d.sched = tempo.NewScheduler(client, tempo.Options{
		Clock: func() time.Time { return d.now },
	})

	// Before the window: no fetch, no color.
	d.feed(t, fullFrame(700, 1, 1, 0))
	if client.Calls != 0 {
		t.Fatalf("expected no fetch before window, got %d", client.Calls)
	}

	// Inside the window the eligible cycle starts the fetch; it is
	// asynchronous so this cycle still publishes without a color. The
	// clock stays untouched until the fetch lands.
	d.now = time.Date(2026, 2, 11, 10, 40, 30, 0, time.UTC)
	d.feed(t, fullFrame(700, 1, 1, 0))

	// Wait for the background fetch to land.
	deadline := time.Now().Add(2 * time.Second)
	for d.sched.Tomorrow(d.now) != logic.ColorRed {
		if time.Now().After(deadline) {
			t.Fatal("fetch never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	d.feed(t, fullFrame(700, 1, 1, 0))
	last := d.publisher.Batches[len(d.publisher.Batches)-1].Signals
	if last.Tomorrow != logic.ColorRed {
		t.Errorf("expected fetched RED in batch, got %q", last.Tomorrow)
	}

	// Midnight rollover: tomorrow's color is stale, back to unknown.
	d.now = time.Date(2026, 2, 12, 0, 0, 5, 0, time.UTC)
	d.feed(t, fullFrame(700, 1, 1, 0))
	last = d.publisher.Batches[len(d.publisher.Batches)-1].Signals
	if last.Tomorrow != logic.ColorNone {
		t.Errorf("expected no color after rollover, got %q", last.Tomorrow)
	}
}

// TestIntegrationPublishFailureDoesNotStopIngestion verifies a broker
// outage never interrupts relay or signal derivation.
func TestIntegrationPublishFailureDoesNotStopIngestion(t *testing.T) {
	d := newDriver(0, 9000)
	d.publisher.PublishError = errors.New("connection lost")

	d.feed(t, fullFrame(800, 2, 1, 0))
	d.feed(t, fullFrame(800, 2, 1, 0))
	d.publisher.PublishError = nil
	d.feed(t, fullFrame(800, 2, 1, 0))

	if len(d.relay.Lines) != 3 {
		t.Errorf("expected 3 relayed lines, got %d", len(d.relay.Lines))
	}
	if len(d.publisher.Batches) != 1 {
		t.Fatalf("expected 1 recorded batch after recovery, got %d", len(d.publisher.Batches))
	}
	if d.publisher.Batches[0].Signals.Power != 800 {
		t.Errorf("recovered batch power: got %d", d.publisher.Batches[0].Signals.Power)
	}
}

// TestIntegrationSystemLifecycle verifies startup and shutdown events
// bracket the signal traffic with well-formed payloads.
func TestIntegrationSystemLifecycle(t *testing.T) {
	d := newDriver(0, 9000)

	startup := mqtt.SystemEvent{
		Timestamp: time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC),
		Event:     "STARTUP",
		Retained:  true,
	}
	if err := d.publisher.PublishSystem(startup); err != nil {
		t.Fatalf("startup publish: %v", err)
	}

	d.feed(t, fullFrame(600, 1, 1, 0))

	shutdown := mqtt.SystemEvent{
		Timestamp: time.Date(2026, 2, 11, 12, 5, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
		Retained:  true,
	}
	if err := d.publisher.PublishSystem(shutdown); err != nil {
		t.Fatalf("shutdown publish: %v", err)
	}

	if len(d.publisher.SystemEvents) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(d.publisher.SystemEvents))
	}
	if d.publisher.SystemEvents[0].Event != "STARTUP" {
		t.Errorf("first system event: got %s", d.publisher.SystemEvents[0].Event)
	}
	if d.publisher.SystemEvents[1].Reason != "SIGTERM" {
		t.Errorf("shutdown reason: got %s", d.publisher.SystemEvents[1].Reason)
	}

	payload, err := mqtt.FormatSystemPayload(shutdown)
	if err != nil {
		t.Fatalf("format payload: %v", err)
	}
	expected := `{"system":{"timestamp":"2026-02-11T12:05:00Z","event":"SHUTDOWN","reason":"SIGTERM"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}

	var parsed mqtt.SystemPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.System.Event != "SHUTDOWN" || parsed.System.Reason != "SIGTERM" {
		t.Errorf("parsed payload: %+v", parsed.System)
	}
}

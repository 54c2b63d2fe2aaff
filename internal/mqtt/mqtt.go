// Package mqtt publishes derived meter signals with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/ebriand/teleinfod/internal/logic"
)

// DefaultTopicPrefix is the topic namespace of the reference deployment.
const DefaultTopicPrefix = "sensors/meter"

// Topics names the broker topics for one deployment. Fixed at startup.
type Topics struct {
	LoadShed      string
	HotWater      string
	Period        string
	TodayColor    string
	TomorrowColor string
	Power         string
	System        string
}

// DefaultTopics derives the per-signal topics from a common prefix.
func DefaultTopics(prefix string) Topics {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{
		LoadShed:      prefix + "/delest",
		HotWater:      prefix + "/ecs",
		Period:        prefix + "/period",
		TodayColor:    prefix + "/tempo/jour",
		TomorrowColor: prefix + "/tempo/demain",
		Power:         prefix + "/power",
		System:        prefix + "/system",
	}
}

// Batch is one publishing cycle's signal set. All topics of a batch
// are sent together so subscribers never see a partially-updated
// sampling instant.
type Batch struct {
	Timestamp time.Time
	Signals   logic.Signals
}

// Message is one topic emission within a batch.
type Message struct {
	Topic   string
	Payload string
}

// Messages expands a batch into per-topic emissions. Signals that
// could not be derived this cycle are skipped rather than published
// with a fabricated value.
func (t Topics) Messages(b Batch) []Message {
	var msgs []Message
	s := b.Signals

	if s.LoadShed != logic.StateUnknown {
		msgs = append(msgs, Message{t.LoadShed, string(s.LoadShed)})
	}
	// Hot water fails closed upstream and is always ON or OFF.
	msgs = append(msgs, Message{t.HotWater, string(s.HotWater)})
	if s.Period != logic.PeriodUnknown {
		msgs = append(msgs, Message{t.Period, string(s.Period)})
	}
	if s.Today != logic.ColorNone {
		msgs = append(msgs, Message{t.TodayColor, string(s.Today)})
	}
	if s.Tomorrow != logic.ColorNone {
		msgs = append(msgs, Message{t.TomorrowColor, string(s.Tomorrow)})
	}
	if s.HasPower {
		msgs = append(msgs, Message{t.Power, strconv.FormatInt(s.Power, 10)})
	}
	return msgs
}

// Publisher publishes signal batches to the broker.
type Publisher interface {
	// PublishBatch sends one cycle's signal set. Returns an error if
	// any topic emission fails; the caller logs and moves on, the next
	// eligible cycle publishes then-current signals (no queued retry).
	PublishBatch(b Batch) error

	// PublishSystem sends a daemon lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a daemon lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp time.Time
	Event     string // e.g., "STARTUP", "SHUTDOWN"
	Reason    string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Retained  bool
}

// SystemPayload is the JSON envelope for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

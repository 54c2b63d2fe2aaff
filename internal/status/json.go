package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Signals       SignalsJSON `json:"signals"`
	LastPublish   string      `json:"last_publish,omitempty"`
	LastMessage   string      `json:"last_message,omitempty"`
	SmoothedPower float64     `json:"smoothed_power_va"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"counts"`
	Config        ConfigJSON  `json:"config"`
}

// SignalsJSON is the JSON representation of the last published batch.
// Underivable signals render as empty strings.
type SignalsJSON struct {
	LoadShed string `json:"load_shed"`
	HotWater string `json:"hot_water"`
	Period   string `json:"period"`
	Today    string `json:"tempo_today"`
	Tomorrow string `json:"tempo_tomorrow"`
	PowerVA  *int64 `json:"power_va,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of pipeline totals.
type CountsJSON struct {
	Frames        int `json:"frames"`
	Invalid       int `json:"invalid"`
	Batches       int `json:"batches"`
	PublishErrors int `json:"publish_errors"`
	RelayErrors   int `json:"relay_errors"`
	Messages      int `json:"messages"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker      string `json:"broker"`
	UDPAddr     string `json:"udp_addr"`
	TopicPrefix string `json:"topic_prefix"`
	SkipCount   int    `json:"skip_count"`
	ThresholdVA int64  `json:"threshold_va"`
	HTTPAddr    string `json:"http_addr"`
	TempoFetch  bool   `json:"tempo_fetch"`
}

// FormatJSON renders a snapshot as the status JSON document.
func FormatJSON(s Snapshot) []byte {
	inner := StatusInner{
		Signals: SignalsJSON{
			LoadShed: string(s.Signals.LoadShed),
			HotWater: string(s.Signals.HotWater),
			Period:   string(s.Signals.Period),
			Today:    string(s.Signals.Today),
			Tomorrow: string(s.Signals.Tomorrow),
		},
		LastMessage:   s.LastMessage,
		SmoothedPower: s.SmoothedPower,
		UptimeSeconds: int64(s.Uptime().Seconds()),
		StartTime:     s.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     s.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: s.MQTTConnected,
			Broker:    s.Config.Broker,
		},
		Counts: CountsJSON{
			Frames:        s.Counts.Frames,
			Invalid:       s.Counts.Invalid,
			Batches:       s.Counts.Batches,
			PublishErrors: s.Counts.PublishErrors,
			RelayErrors:   s.Counts.RelayErrors,
			Messages:      s.Counts.Messages,
		},
		Config: ConfigJSON{
			Broker:      s.Config.Broker,
			UDPAddr:     s.Config.UDPAddr,
			TopicPrefix: s.Config.TopicPrefix,
			SkipCount:   s.Config.SkipCount,
			ThresholdVA: s.Config.ThresholdVA,
			HTTPAddr:    s.Config.HTTPAddr,
			TempoFetch:  s.Config.TempoFetch,
		},
	}
	if s.Signals.HasPower {
		va := s.Signals.Power
		inner.Signals.PowerVA = &va
	}
	if !s.LastPublish.IsZero() {
		inner.LastPublish = s.LastPublish.UTC().Format(time.RFC3339)
	}

	out, err := json.Marshal(StatusJSON{Status: inner})
	if err != nil {
		// Snapshot contains only plain values; this cannot happen.
		return []byte(`{"status":{}}`)
	}
	return out
}

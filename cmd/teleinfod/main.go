// Command teleinfod interprets decoded meter telemetry frames and
// publishes derived control signals to MQTT. It reads one tic2json
// dictionary frame per stdin line, relays each line verbatim over UDP,
// and derives load-shedding, hot-water, tariff-period and Tempo-color
// signals at a fixed publish cadence.
//
// Example: stdbuf -oL tic2json -d | teleinfod -broker tcp://broker:1883
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ebriand/teleinfod/internal/frame"
	"github.com/ebriand/teleinfod/internal/logging"
	"github.com/ebriand/teleinfod/internal/logic"
	"github.com/ebriand/teleinfod/internal/metrics"
	"github.com/ebriand/teleinfod/internal/mqtt"
	"github.com/ebriand/teleinfod/internal/relay"
	"github.com/ebriand/teleinfod/internal/source"
	"github.com/ebriand/teleinfod/internal/status"
	"github.com/ebriand/teleinfod/internal/tempo"
	"github.com/ebriand/teleinfod/internal/web"
)

// RTE API credentials come from the environment, not flags, so they
// stay out of process listings.
const (
	envRTEClientID     = "RTE_CLIENT_ID"
	envRTEClientSecret = "RTE_CLIENT_SECRET"
)

func main() {
	broker := flag.String("broker", "tcp://localhost:1883", "MQTT broker address")
	clientID := flag.String("client-id", "teleinfod", "MQTT client ID")
	topicPrefix := flag.String("topic-prefix", mqtt.DefaultTopicPrefix, "MQTT topic prefix for signal topics")
	udpAddr := flag.String("udp-addr", "", "UDP relay destination host:port (empty to disable)")
	skip := flag.Int("skip", 8, "valid frames to skip between publications")
	threshold := flag.Int64("threshold", 9000, "load-shed apparent power threshold (VA)")
	fieldPower := flag.String("field-power", "SINSTS", `apparent power field (TICv1 mono: "PAPP")`)
	fieldMessage := flag.String("field-message", "MSG1", `short message field ("MSG2" for ultra-short)`)
	fieldTariff := flag.String("field-tariff", "NTARF", "tariff-period index field")
	fieldRelay := flag.String("field-relay", "RELAIS", "relay bitmask field")
	fieldStatus := flag.String("field-status", "STGE", "status register field")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable)")
	tempoURL := flag.String("tempo-url", "", "tempo calendar API base URL (default production RTE)")
	tempoWindow := flag.String("tempo-window", "10:40", "local time of day when calendar fetches become eligible")
	tempoWindowLen := flag.Duration("tempo-window-len", 10*time.Minute, "length of the daily fetch window")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logJSON := flag.Bool("log-json", false, "log JSON instead of human-readable output")

	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(level, *logJSON))

	windowStart, err := parseWindow(*tempoWindow)
	if err != nil {
		slog.Error("invalid -tempo-window", "value", *tempoWindow, "error", err)
		os.Exit(1)
	}

	codes := logic.Codes{
		Power:   *fieldPower,
		Message: *fieldMessage,
		Tariff:  *fieldTariff,
		Relay:   *fieldRelay,
		Status:  *fieldStatus,
	}

	err = run(config{
		broker:         *broker,
		clientID:       *clientID,
		topicPrefix:    *topicPrefix,
		udpAddr:        *udpAddr,
		skip:           *skip,
		threshold:      *threshold,
		codes:          codes,
		httpAddr:       *httpAddr,
		tempoURL:       *tempoURL,
		tempoWindow:    windowStart,
		tempoWindowLen: *tempoWindowLen,
	})
	if err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

type config struct {
	broker         string
	clientID       string
	topicPrefix    string
	udpAddr        string
	skip           int
	threshold      int64
	codes          logic.Codes
	httpAddr       string
	tempoURL       string
	tempoWindow    time.Duration
	tempoWindowLen time.Duration
}

func run(cfg config) error {
	topics := mqtt.DefaultTopics(cfg.topicPrefix)

	// Relay is optional; without a destination the pipeline just
	// derives and publishes.
	var rel relay.Relay
	if cfg.udpAddr != "" {
		udp, err := relay.NewUDPRelay(cfg.udpAddr)
		if err != nil {
			return fmt.Errorf("init relay: %w", err)
		}
		defer udp.Close()
		rel = udp
	}

	publisher, err := mqtt.NewRealPublisher(cfg.broker, cfg.clientID, topics, slog.Default())
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Calendar fallback only runs with credentials configured.
	var sched *tempo.Scheduler
	id, secret := os.Getenv(envRTEClientID), os.Getenv(envRTEClientSecret)
	if id != "" && secret != "" {
		client := tempo.NewAPIClient(cfg.tempoURL, id, secret)
		sched = tempo.NewScheduler(client, tempo.Options{
			WindowStart: cfg.tempoWindow,
			WindowLen:   cfg.tempoWindowLen,
		})
		slog.Info("tempo calendar fallback enabled")
	} else {
		slog.Info("tempo calendar fallback disabled (no credentials)")
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:      cfg.broker,
		UDPAddr:     cfg.udpAddr,
		TopicPrefix: cfg.topicPrefix,
		SkipCount:   cfg.skip,
		ThresholdVA: cfg.threshold,
		HTTPAddr:    cfg.httpAddr,
		TempoFetch:  sched != nil,
	})

	if cfg.httpAddr != "" {
		srv := web.New(cfg.httpAddr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		slog.Info("http status server listening", "addr", cfg.httpAddr)
	}

	startup := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
	}
	if err := publisher.PublishSystem(startup); err != nil {
		slog.Warn("failed to publish startup event", "error", err)
	}

	slog.Info("started",
		"broker", cfg.broker,
		"udp", cfg.udpAddr,
		"skip", cfg.skip,
		"threshold_va", cfg.threshold,
	)

	// Feed stdin lines into the loop; closing the channel signals EOF.
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := source.NewScanner(os.Stdin)
		for {
			line, err := sc.ReadLine()
			if err != nil {
				return
			}
			lines <- line
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	p := pipeline{
		relay:      rel,
		publisher:  publisher,
		mqttStatus: publisher,
		extractor:  logic.NewExtractor(cfg.codes, cfg.threshold),
		throttle:   logic.NewThrottle(cfg.skip),
		sched:      sched,
		tracker:    tracker,
		metrics:    m,
		now:        time.Now,
	}
	return runLoop(p, lines, sigCh)
}

// pipeline bundles the per-record collaborators. Optional members
// (relay, scheduler, connection status) may be nil.
type pipeline struct {
	relay      relay.Relay
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	extractor  *logic.Extractor
	throttle   *logic.Throttle
	sched      *tempo.Scheduler
	tracker    *status.Tracker
	metrics    *metrics.Metrics
	now        func() time.Time
}

// runLoop processes frames one at a time, in arrival order, until the
// input ends or a shutdown signal arrives.
func runLoop(p pipeline, lines <-chan string, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			slog.Info("received signal, shutting down", "signal", s)
			publishShutdown(p, signalName(s))
			return nil

		case line, ok := <-lines:
			if !ok {
				slog.Info("input stream ended, shutting down")
				publishShutdown(p, "EOF")
				return nil
			}
			p.handleLine(line)
		}
	}
}

// handleLine runs the per-record state machine: relay → validate →
// extract/filter → throttle → (maybe) fallback fetch → publish.
func (p pipeline) handleLine(line string) {
	// Relay is unconditional and upstream of validation.
	if p.relay != nil {
		if err := p.relay.Send([]byte(line + "\n")); err != nil {
			slog.Warn("relay failed", "error", err)
			p.metrics.RelayErrors.Inc()
			p.tracker.RecordRelayError()
		}
	}

	p.metrics.FramesTotal.Inc()

	f, err := frame.Decode([]byte(line))
	if err != nil {
		slog.Debug("rejected line", "error", err)
		p.metrics.FramesInvalid.Inc()
		p.tracker.RecordFrame(false)
		return
	}
	if !f.Valid() {
		slog.Debug("dropped frame with bad validity marker")
		p.metrics.FramesInvalid.Inc()
		p.tracker.RecordFrame(false)
		return
	}
	p.tracker.RecordFrame(true)

	// Filter and extraction run on every valid frame so the smoothed
	// estimate stays current across skipped cycles.
	signals := p.extractor.Process(f)
	p.metrics.SmoothedPower.Set(p.extractor.SmoothedPower())
	p.tracker.SetSmoothedPower(p.extractor.SmoothedPower())

	if signals.Message != "" {
		slog.Info("meter message", "message", signals.Message)
		p.tracker.RecordMessage(signals.Message)
	}

	if !p.throttle.Tick() {
		return
	}

	now := p.now()

	// Local register first; the calendar fallback only fills Unknown.
	if p.sched != nil && signals.Tomorrow == logic.ColorNone {
		if c := p.sched.Tomorrow(now); c != logic.ColorNone {
			signals.Tomorrow = c
		} else {
			p.sched.MaybeFetch(now)
		}
	}

	batch := mqtt.Batch{Timestamp: now, Signals: signals}
	err = p.publisher.PublishBatch(batch)
	if err != nil {
		// Not retried: the next eligible cycle publishes then-current
		// signals instead.
		slog.Warn("publish failed", "error", err)
		p.metrics.PublishErrors.Inc()
	}
	p.metrics.BatchesTotal.Inc()
	p.tracker.RecordBatch(signals, now, err)

	if p.mqttStatus != nil {
		p.tracker.SetMQTTConnected(p.mqttStatus.IsConnected())
	}
}

func publishShutdown(p pipeline, reason string) {
	event := mqtt.SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    reason,
		Retained:  true,
	}
	if err := p.publisher.PublishSystem(event); err != nil {
		slog.Warn("failed to publish shutdown event", "error", err)
	} else {
		slog.Info("published shutdown event")
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// parseWindow converts an "HH:MM" flag value into an offset from local
// midnight.
func parseWindow(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("expected HH:MM")
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour %q", hh)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute %q", mm)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

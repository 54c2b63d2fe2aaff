// Package tempo provides the daily fallback fetch of tomorrow's tariff
// color from the RTE calendar service, for meters that have not yet
// announced it.
package tempo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ebriand/teleinfod/internal/logic"
)

// Result is one calendar entry as returned by a Client.
type Result struct {
	Color       logic.Color
	StartDate   time.Time
	UpdatedDate time.Time
}

// Client fetches the calendar entry covering tomorrow. Implementations
// must honor the context deadline.
type Client interface {
	TomorrowColor(ctx context.Context) (Result, error)
}

// Options configures a Scheduler. Zero values pick the reference
// deployment's defaults.
type Options struct {
	// WindowStart is the time-of-day offset from local midnight at
	// which fetch attempts become eligible. Default 10h40m.
	WindowStart time.Duration

	// WindowLen is how long past WindowStart attempts stay eligible.
	// Default 10m.
	WindowLen time.Duration

	// FetchTimeout bounds one external call. Default 10s.
	FetchTimeout time.Duration

	// Clock is the current-time source used when an attempt completes.
	// Default time.Now; tests inject a deterministic one.
	Clock func() time.Time

	Logger *slog.Logger
}

// Scheduler runs a per-day Idle→Cached state machine around the
// external calendar fetch. Fetches happen on their own goroutine and
// never block frame ingestion; an in-flight fetch counts as a miss for
// the current cycle.
type Scheduler struct {
	client      Client
	windowStart time.Duration
	windowLen   time.Duration
	timeout     time.Duration
	clock       func() time.Time
	logger      *slog.Logger

	mu             sync.Mutex
	lastSeenDay    int // day-of-month last observed, for rollover detection
	lastSuccessDay int // day-of-month of the last accepted fetch, 0 = never
	cached         logic.Color
	inflight       bool
}

// NewScheduler creates a scheduler in the Idle state.
func NewScheduler(client Client, opts Options) *Scheduler {
	if opts.WindowStart == 0 {
		opts.WindowStart = 10*time.Hour + 40*time.Minute
	}
	if opts.WindowLen == 0 {
		opts.WindowLen = 10 * time.Minute
	}
	if opts.FetchTimeout == 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		client:      client,
		windowStart: opts.WindowStart,
		windowLen:   opts.WindowLen,
		timeout:     opts.FetchTimeout,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
}

// Tomorrow returns the cached color for tomorrow, or ColorNone when no
// accepted fetch has happened today. Callers give the local register
// precedence and only fill in an unknown value with this.
func (s *Scheduler) Tomorrow(now time.Time) logic.Color {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)
	return s.cached
}

// MaybeFetch starts one asynchronous fetch attempt if the current
// cycle is eligible: inside the daily time window, nothing cached for
// today, and no attempt already in flight. The caller gates this on
// publishing cycles so the request rate is bounded by the publish
// cadence.
func (s *Scheduler) MaybeFetch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollover(now)

	if s.cached != logic.ColorNone || s.inflight || !s.inWindow(now) {
		return
	}
	s.inflight = true
	go s.doFetch()
}

// doFetch runs one bounded fetch attempt and applies the result. The
// freshness checks read the clock when the response lands, so an
// attempt straddling midnight cannot cache yesterday's answer. Any
// error or stale response is a non-fatal miss; a later eligible cycle
// retries.
func (s *Scheduler) doFetch() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.client.TomorrowColor(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false
	now := s.clock()
	s.rollover(now)

	if err != nil {
		s.logger.Warn("tempo calendar fetch failed", "error", err)
		return
	}
	if !sameDay(res.UpdatedDate, now) {
		s.logger.Warn("tempo calendar not updated today, ignoring",
			"updated", res.UpdatedDate, "color", res.Color)
		return
	}
	if !res.StartDate.After(now) {
		s.logger.Warn("tempo calendar entry already started, ignoring",
			"start", res.StartDate, "color", res.Color)
		return
	}
	if res.Color == logic.ColorNone {
		s.logger.Warn("tempo calendar returned no color")
		return
	}

	s.cached = res.Color
	s.lastSuccessDay = now.Day()
	s.logger.Info("tempo color for tomorrow cached", "color", res.Color)
}

// rollover resets to Idle when the calendar day changes. Caller holds
// the lock.
func (s *Scheduler) rollover(now time.Time) {
	if now.Day() != s.lastSeenDay {
		s.lastSeenDay = now.Day()
		s.cached = logic.ColorNone
	}
}

// inWindow reports whether now falls inside today's fetch window.
func (s *Scheduler) inWindow(now time.Time) bool {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := now.Sub(midnight)
	return offset >= s.windowStart && offset < s.windowStart+s.windowLen
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}

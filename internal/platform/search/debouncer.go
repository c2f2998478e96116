// Package search turns keystrokes into suggestion lookups. Input is
// debounced, at most one lookup is in flight, and only the newest lookup's
// result is ever delivered.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrHarsh002/AyurSutra-sub003/internal/platform/telemetry"
)

// DefaultDelay is how long input must be idle before a lookup is issued.
const DefaultDelay = 300 * time.Millisecond

type Kind string

const (
	KindDoctor  Kind = "doctor"
	KindPatient Kind = "patient"
)

type Suggestion struct {
	Kind   Kind   `json:"kind"`
	ID     string `json:"id"`
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
}

// Fetcher performs one lookup. It must honour ctx cancellation.
type Fetcher func(ctx context.Context, query string) ([]Suggestion, error)

// Result is one delivered lookup. Seq increases with every lookup issued.
type Result struct {
	Seq         uint64       `json:"seq"`
	Query       string       `json:"query"`
	Suggestions []Suggestion `json:"suggestions"`
	Err         error        `json:"-"`
}

type Option func(*Debouncer)

func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.delay = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(db *Debouncer) { db.logger = l }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(db *Debouncer) { db.metrics = m }
}

type Debouncer struct {
	ctx     context.Context
	fetch   Fetcher
	delay   time.Duration
	logger  zerolog.Logger
	metrics *telemetry.Metrics

	mu      sync.Mutex
	gen     uint64
	seq     uint64
	pending string
	timer   *time.Timer
	cancel  context.CancelFunc
	closed  bool
	results chan Result
	wg      sync.WaitGroup
}

// New returns a debouncer whose lookups run under ctx.
func New(ctx context.Context, fetch Fetcher, opts ...Option) *Debouncer {
	d := &Debouncer{
		ctx:     ctx,
		fetch:   fetch,
		delay:   DefaultDelay,
		logger:  zerolog.Nop(),
		results: make(chan Result, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Results delivers the latest lookup result. An undrained result is replaced
// by a newer one. The channel is closed by Close.
func (d *Debouncer) Results() <-chan Result {
	return d.results
}

// Input records the current text of the search box and restarts the idle
// timer. An empty query supersedes any pending or in-flight lookup and
// delivers an empty result at once.
func (d *Debouncer) Input(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	q := strings.TrimSpace(query)
	if q == "" {
		d.seq++
		d.cancelInFlight()
		d.deliver(Result{Seq: d.seq})
		return
	}

	gen := d.gen
	d.pending = q
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.seq++
	seq, query := d.seq, d.pending
	d.cancelInFlight()
	ctx, cancel := context.WithCancel(d.ctx)
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	defer cancel()

	suggestions, err := d.fetch(ctx, query)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || seq != d.seq {
		d.metrics.ObserveSearch("stale")
		d.logger.Debug().Uint64("seq", seq).Str("query", query).Msg("discarding stale suggestions")
		return
	}
	if err != nil {
		d.metrics.ObserveSearch("error")
		d.logger.Warn().Err(err).Str("query", query).Msg("suggestion lookup failed")
	} else {
		d.metrics.ObserveSearch("delivered")
	}
	d.deliver(Result{Seq: seq, Query: query, Suggestions: suggestions, Err: err})
}

// cancelInFlight must be called with mu held.
func (d *Debouncer) cancelInFlight() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// deliver must be called with mu held; all sends happen under mu.
func (d *Debouncer) deliver(r Result) {
	select {
	case <-d.results:
	default:
	}
	d.results <- r
}

// Close stops the timer, cancels any in-flight lookup, waits for it to
// return and closes the results channel. It is safe to call more than once.
func (d *Debouncer) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.cancelInFlight()
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	close(d.results)
	d.mu.Unlock()
}

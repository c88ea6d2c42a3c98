// Package reporter wraps a caller-supplied progress sink with the
// thread-safety and throttling every workload runner can rely on without
// perturbing its own measurement loop.
package reporter

import (
	"sync"
	"time"

	"github.com/coredrift/diskmark/pkg/stats"
)

// DefaultInterval is the minimum spacing between progress events the
// Reporter will forward to its sink.
const DefaultInterval = 100 * time.Millisecond

// Sink is the three-event contract a caller implements to observe a
// benchmark run. Implementations must be safe to call from any goroutine;
// Reporter itself only ever calls a sink's methods one at a time, but a
// caller sharing one sink across multiple Reporters is responsible for its
// own internal locking beyond that.
type Sink interface {
	OnTestStart(workload string)
	OnProgress(workload string, currentMBps float64)
	OnTestComplete(workload string, result stats.Result)
}

// NoOpSink implements Sink by doing nothing; it is always a valid sink.
type NoOpSink struct{}

func (NoOpSink) OnTestStart(string)                  {}
func (NoOpSink) OnProgress(string, float64)          {}
func (NoOpSink) OnTestComplete(string, stats.Result) {}

// Reporter dispatches to a Sink under a single mutex, throttling progress
// events to interval while always forwarding start and complete events.
type Reporter struct {
	mu               sync.Mutex
	sink             Sink
	interval         time.Duration
	lastProgressTime time.Time
}

// New returns a Reporter wrapping sink at DefaultInterval. A nil sink is
// replaced with NoOpSink so callers never need to nil-check.
func New(sink Sink) *Reporter {
	return NewWithInterval(sink, DefaultInterval)
}

// NewWithInterval returns a Reporter wrapping sink with a custom throttle
// interval.
func NewWithInterval(sink Sink, interval time.Duration) *Reporter {
	if sink == nil {
		sink = NoOpSink{}
	}
	return &Reporter{
		sink:             sink,
		interval:         interval,
		lastProgressTime: time.Now(),
	}
}

// OnTestStart forwards a start event. Never throttled.
func (r *Reporter) OnTestStart(workload string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.OnTestStart(workload)
}

// OnProgress forwards a progress event if interval has elapsed since the
// last one it let through, reporting whether it forwarded this call.
func (r *Reporter) OnProgress(workload string, currentMBps float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if now.Sub(r.lastProgressTime) < r.interval {
		return false
	}
	r.sink.OnProgress(workload, currentMBps)
	r.lastProgressTime = now
	return true
}

// ForceProgress forwards a progress event regardless of throttling,
// resetting the throttle clock.
func (r *Reporter) ForceProgress(workload string, currentMBps float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.OnProgress(workload, currentMBps)
	r.lastProgressTime = time.Now()
}

// OnTestComplete forwards a completion event. Never throttled.
func (r *Reporter) OnTestComplete(workload string, result stats.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink.OnTestComplete(workload, result)
}

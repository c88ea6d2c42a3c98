// Package stats collects the throughput samples a workload runner produces
// while it runs and reduces them to the min/avg/max figures reported back
// to the caller.
package stats

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/coredrift/diskmark/pkg/platform"
)

// DefaultSampleInterval is the cadence at which RecordBlock reports a
// progress sample back to its caller.
const DefaultSampleInterval = 100 * time.Millisecond

// Result is what a completed workload run reduces its samples to.
type Result struct {
	MinSpeedMBps float64
	MaxSpeedMBps float64
	AvgSpeedMBps float64
	TestDuration time.Duration
	SampleCount  int

	// OpLatencyP50 and OpLatencyP99 are populated only when the caller fed
	// per-operation durations through RecordLatency; a runner that never
	// calls it leaves both at zero, which callers must treat as "not
	// measured" rather than "zero latency".
	OpLatencyP50 time.Duration
	OpLatencyP99 time.Duration
}

// Tracker accumulates throughput samples for one workload run and,
// optionally, a side channel of per-operation latencies. It is safe for
// concurrent use, though in practice a single runner goroutine owns it and
// a reporter goroutine only reads finalized results.
type Tracker struct {
	mu sync.Mutex

	samples          []float64
	startTime        time.Time
	bytesTransferred uint64
	sampleInterval   time.Duration

	// lastEmitTime gates RecordBlock's progress-emission decision,
	// advanced only when a sample is actually emitted, not on every
	// recorded block — a clock reset on every block would always see a ~0
	// delta and never report progress. Mirrors RealTimeStatsTracker keeping its own
	// last_sample_time distinct from the wrapped StatisticsCollector's.
	lastEmitTime time.Time

	latency *hdrhistogram.Histogram
}

// NewTracker returns a Tracker sampling at the given interval.
func NewTracker(sampleInterval time.Duration) *Tracker {
	now := time.Now()
	return &Tracker{
		startTime:      now,
		lastEmitTime:   now,
		sampleInterval: sampleInterval,
		// 1us to 60s range covers everything from an NVMe op to a stalled
		// spinning disk seek; 3 significant figures matches the teacher's
		// histogram precision.
		latency: hdrhistogram.New(1, 60*1000*1000, 3),
	}
}

// NewDefaultTracker returns a Tracker sampling at DefaultSampleInterval.
func NewDefaultTracker() *Tracker {
	return NewTracker(DefaultSampleInterval)
}

// BytesTransferred returns the running total of bytes moved so far.
func (t *Tracker) BytesTransferred() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bytesTransferred
}

// ForceSample takes a sample regardless of the interval.
func (t *Tracker) ForceSample() {
	t.mu.Lock()
	defer t.mu.Unlock()
	speed := calculateSpeedMBps(t.bytesTransferred, time.Since(t.startTime))
	t.addSampleLocked(speed)
}

// AddSample records a precomputed speed sample, in MB/s.
func (t *Tracker) AddSample(speedMBps float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addSampleLocked(speedMBps)
}

func (t *Tracker) addSampleLocked(speedMBps float64) {
	t.samples = append(t.samples, speedMBps)
}

// SampleCount returns the number of samples recorded so far.
func (t *Tracker) SampleCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.samples)
}

// RecordBlock records one completed block operation of the given size and
// duration as a throughput sample. It returns the block's own speed and
// whether the sample interval has also elapsed since the last emitted
// progress report, matching the semantics a runner needs to decide
// whether to also push a progress update this iteration.
//
// The elapsed check is gated on lastEmitTime, a clock distinct from
// sample collection, so that recording a sample on every block does not
// itself reset the gate and suppress every progress report.
func (t *Tracker) RecordBlock(bytes int, duration time.Duration) (speedMBps float64, intervalElapsed bool) {
	if duration <= 0 || bytes <= 0 {
		return 0, false
	}
	speed := calculateSpeedMBps(uint64(bytes), duration)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bytesTransferred += uint64(bytes)
	t.addSampleLocked(speed)
	if time.Since(t.lastEmitTime) >= t.sampleInterval {
		t.lastEmitTime = time.Now()
		return speed, true
	}
	return speed, false
}

// RecordLatency feeds one operation's duration into the latency side
// channel. Callers that don't care about latency percentiles can skip
// this entirely; Finalize then reports zero for both percentiles.
func (t *Tracker) RecordLatency(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d <= 0 {
		return
	}
	// Sub-microsecond operations are recorded as 1us, the histogram's
	// lowest trackable value, instead of being truncated to zero.
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	_ = t.latency.RecordValue(us)
}

// Finalize reduces the recorded samples to a Result. It does not force an
// extra synthetic sample beyond whatever the runner already recorded —
// every block passed to RecordBlock contributed one sample, whether or not
// a full sample interval elapsed.
func (t *Tracker) Finalize() Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.samples) == 0 {
		return Result{TestDuration: time.Since(t.startTime)}
	}

	// P5 and P95 stand in for absolute min/max to damp outlier sensitivity.
	minSpeed := percentileNearestRank(t.samples, 5)
	maxSpeed := percentileNearestRank(t.samples, 95)

	result := Result{
		MinSpeedMBps: minSpeed,
		MaxSpeedMBps: maxSpeed,
		AvgSpeedMBps: mean(t.samples),
		TestDuration: time.Since(t.startTime),
		SampleCount:  len(t.samples),
	}

	if t.latency.TotalCount() > 0 {
		result.OpLatencyP50 = time.Duration(t.latency.ValueAtQuantile(50)) * time.Microsecond
		result.OpLatencyP99 = time.Duration(t.latency.ValueAtQuantile(99)) * time.Microsecond
	}

	return result
}

// percentileNearestRank computes the p-th percentile (0..100) of samples
// using the nearest-rank method: rank = ceil(p/100 * n), index = max(rank,
// 1) - 1. samples is left unmodified; the function sorts its own copy.
func percentileNearestRank(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	clamped := p
	if clamped < 0 || math.IsNaN(clamped) {
		clamped = 0
	} else if clamped > 100 {
		clamped = 100
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	if clamped == 0 {
		return sorted[0]
	}
	if clamped == 100 {
		return sorted[len(sorted)-1]
	}

	n := len(sorted)
	rank := int(math.Ceil(clamped / 100 * float64(n)))
	idx := rank - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}

// calculateSpeedMBps converts a byte count and duration into MB/s, using
// the repo-wide definition of a megabyte as 2^20 bytes.
func calculateSpeedMBps(bytes uint64, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	seconds := duration.Seconds()
	megabytes := float64(bytes) / float64(platform.MegabyteBytes)
	return megabytes / seconds
}

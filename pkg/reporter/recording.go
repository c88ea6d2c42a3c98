package reporter

import (
	"sync"

	"github.com/coredrift/diskmark/pkg/stats"
)

// Event is one captured sink call, used by RecordingSink.
type Event struct {
	Kind     string // "start", "progress", or "complete"
	Workload string
	MBps     float64
	Result   stats.Result
}

// RecordingSink captures every event it receives, for tests that need to
// assert on the start -> progress* -> complete ordering a workload run
// produces.
type RecordingSink struct {
	mu     sync.Mutex
	events []Event
}

// NewRecordingSink returns an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) OnTestStart(workload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: "start", Workload: workload})
}

func (s *RecordingSink) OnProgress(workload string, mbps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: "progress", Workload: workload, MBps: mbps})
}

func (s *RecordingSink) OnTestComplete(workload string, result stats.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, Event{Kind: "complete", Workload: workload, Result: result})
}

// Events returns a copy of every event captured so far, in order.
func (s *RecordingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Clear discards all captured events.
func (s *RecordingSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

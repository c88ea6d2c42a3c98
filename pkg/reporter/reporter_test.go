package reporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/diskmark/pkg/stats"
)

func TestOnTestStartNeverThrottled(t *testing.T) {
	assert := require.New(t)

	sink := NewRecordingSink()
	rep := New(sink)
	rep.OnTestStart("sequential_write")
	rep.OnTestStart("sequential_write")

	events := sink.Events()
	assert.Len(events, 2)
	assert.Equal("start", events[0].Kind)
}

func TestOnProgressThrottled(t *testing.T) {
	assert := require.New(t)

	sink := NewRecordingSink()
	rep := NewWithInterval(sink, 50*time.Millisecond)

	forwarded := rep.OnProgress("random_read", 10)
	assert.False(forwarded, "construction sets the throttle clock, so an immediate call is within the window")

	forwarded = rep.OnProgress("random_read", 20)
	assert.False(forwarded)

	time.Sleep(60 * time.Millisecond)
	forwarded = rep.OnProgress("random_read", 30)
	assert.True(forwarded)

	assert.Len(sink.Events(), 1)
}

func TestOnTestCompleteNeverThrottled(t *testing.T) {
	assert := require.New(t)

	sink := NewRecordingSink()
	rep := NewWithInterval(sink, time.Hour)

	rep.OnTestComplete("memory_copy", stats.Result{SampleCount: 3})
	rep.OnTestComplete("memory_copy", stats.Result{SampleCount: 4})

	events := sink.Events()
	assert.Len(events, 2)
	assert.Equal(3, events[0].Result.SampleCount)
	assert.Equal(4, events[1].Result.SampleCount)
}

func TestNilSinkBecomesNoOp(t *testing.T) {
	assert := require.New(t)

	rep := New(nil)
	assert.NotPanics(func() {
		rep.OnTestStart("sequential_read")
		rep.OnProgress("sequential_read", 1)
		rep.OnTestComplete("sequential_read", stats.Result{})
	})
}

func TestForceProgressBypassesThrottle(t *testing.T) {
	assert := require.New(t)

	sink := NewRecordingSink()
	rep := NewWithInterval(sink, time.Hour)

	forwarded := rep.OnProgress("random_write", 1)
	assert.False(forwarded, "first call is within the throttle window right after construction")

	rep.ForceProgress("random_write", 2)

	events := sink.Events()
	assert.Len(events, 1)
	assert.Equal(2.0, events[0].MBps)
}

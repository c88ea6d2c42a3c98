package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPercentileNearestRank(t *testing.T) {
	assert := require.New(t)

	var samples []float64
	for i := 1; i <= 20; i++ {
		samples = append(samples, float64(i*10))
	}

	assert.Equal(10.0, percentileNearestRank(samples, 5))
	assert.Equal(190.0, percentileNearestRank(samples, 95))
	assert.Equal(10.0, percentileNearestRank(samples, 0))
	assert.Equal(200.0, percentileNearestRank(samples, 100))
}

func TestTrackerFinalizeMatchesWorkedExample(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	for i := 1; i <= 20; i++ {
		tr.AddSample(float64(i * 10))
	}

	result := tr.Finalize()
	assert.Equal(20, result.SampleCount)
	assert.Equal(105.0, result.AvgSpeedMBps)
	assert.Equal(10.0, result.MinSpeedMBps)
	assert.Equal(190.0, result.MaxSpeedMBps)
}

func TestTrackerFinalizeEmptyDoesNotForceASample(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	result := tr.Finalize()
	assert.Equal(0, result.SampleCount)
	assert.Equal(0.0, result.AvgSpeedMBps)
}

func TestTrackerMinAvgMaxInvariant(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	tr.AddSample(50)
	tr.AddSample(10)
	tr.AddSample(200)
	tr.AddSample(75)

	result := tr.Finalize()
	assert.LessOrEqual(result.MinSpeedMBps, result.AvgSpeedMBps)
	assert.LessOrEqual(result.AvgSpeedMBps, result.MaxSpeedMBps)
}

func TestTrackerRecordBlockAccumulatesBytesAndSamples(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	speed, _ := tr.RecordBlock(1<<20, 100*time.Millisecond)
	assert.InDelta(10.0, speed, 0.001)
	assert.Equal(uint64(1<<20), tr.BytesTransferred())
	assert.Equal(1, tr.SampleCount())
}

func TestTrackerRecordBlockIgnoresZeroDuration(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	speed, sampled := tr.RecordBlock(1024, 0)
	assert.Equal(0.0, speed)
	assert.False(sampled)
	assert.Equal(0, tr.SampleCount())
}

func TestTrackerLatencyOnlyPopulatedWhenRecorded(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	tr.AddSample(100)
	result := tr.Finalize()
	assert.Equal(time.Duration(0), result.OpLatencyP50)
	assert.Equal(time.Duration(0), result.OpLatencyP99)

	tr2 := NewDefaultTracker()
	tr2.AddSample(100)
	tr2.RecordLatency(5 * time.Millisecond)
	tr2.RecordLatency(10 * time.Millisecond)
	result2 := tr2.Finalize()
	assert.Greater(result2.OpLatencyP50, time.Duration(0))
}

func TestRecordBlockReportsIntervalElapsedOnlyAfterSampleInterval(t *testing.T) {
	assert := require.New(t)

	tr := NewTracker(20 * time.Millisecond)

	_, sampled := tr.RecordBlock(1024, time.Millisecond)
	assert.False(sampled, "the first block must not itself satisfy a freshly started interval")

	_, sampled = tr.RecordBlock(1024, time.Millisecond)
	assert.False(sampled, "a second block recorded immediately after the first must still be within the interval")

	time.Sleep(25 * time.Millisecond)

	_, sampled = tr.RecordBlock(1024, time.Millisecond)
	assert.True(sampled, "a block recorded after the interval has elapsed must report it")

	_, sampled = tr.RecordBlock(1024, time.Millisecond)
	assert.False(sampled, "the interval resets once a sample is reported")
}

func TestForceSampleTakesExactlyOneSampleWhenEmpty(t *testing.T) {
	assert := require.New(t)

	tr := NewDefaultTracker()
	assert.Equal(0, tr.SampleCount())
	tr.ForceSample()
	assert.Equal(1, tr.SampleCount())
}

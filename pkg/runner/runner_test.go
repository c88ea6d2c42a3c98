package runner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coredrift/diskmark/pkg/platform"
	"github.com/coredrift/diskmark/pkg/reporter"
)

func paramsFor(path string) Params {
	return Params{
		Path:                path,
		SequentialBlockSize: 64 * 1024,
		RandomBlockSize:     4 * 1024,
		FileSizeBytes:       1024 * 1024,
		Duration:            200 * time.Millisecond,
		DisableOSCache:      false,
	}
}

func TestSequentialWriteThenReadProducesSamples(t *testing.T) {
	assert := require.New(t)

	plat := platform.NewFake()
	path := filepath.Join(t.TempDir(), "dst.bin")
	params := paramsFor(path)
	rep := reporter.New(nil)

	writeResult, err := SequentialWrite(context.Background(), plat, params, rep)
	assert.NoError(err)
	assert.GreaterOrEqual(writeResult.SampleCount, 1)
	assert.LessOrEqual(writeResult.MinSpeedMBps, writeResult.AvgSpeedMBps)
	assert.LessOrEqual(writeResult.AvgSpeedMBps, writeResult.MaxSpeedMBps)

	readResult, err := SequentialRead(context.Background(), plat, params, rep)
	assert.NoError(err)
	assert.GreaterOrEqual(readResult.SampleCount, 1)
}

func TestRandomWriteAndReadRoundTrip(t *testing.T) {
	assert := require.New(t)

	plat := platform.NewFake()
	path := filepath.Join(t.TempDir(), "dst.bin")
	params := paramsFor(path)
	rep := reporter.New(nil)

	_, err := SequentialWrite(context.Background(), plat, params, rep)
	assert.NoError(err)

	writeResult, err := RandomWrite(context.Background(), plat, params, rep)
	assert.NoError(err)
	assert.GreaterOrEqual(writeResult.SampleCount, 1)

	readResult, err := RandomRead(context.Background(), plat, params, rep)
	assert.NoError(err)
	assert.GreaterOrEqual(readResult.SampleCount, 1)
}

func TestSequentialReadRejectsFileSmallerThanOneBlock(t *testing.T) {
	assert := require.New(t)

	plat := platform.NewFake()
	params := paramsFor(filepath.Join(t.TempDir(), "dst.bin"))
	params.FileSizeBytes = int64(params.SequentialBlockSize) - 1

	_, err := SequentialRead(context.Background(), plat, params, reporter.New(nil))
	assert.Error(err)
}

func TestRandomWriteRejectsBlockLargerThanFile(t *testing.T) {
	assert := require.New(t)

	plat := platform.NewFake()
	params := paramsFor(filepath.Join(t.TempDir(), "dst.bin"))
	params.FileSizeBytes = int64(params.RandomBlockSize) - 1

	_, err := RandomWrite(context.Background(), plat, params, reporter.New(nil))
	assert.Error(err)
}

func TestMemoryCopyNeedsNoFile(t *testing.T) {
	assert := require.New(t)

	params := Params{
		SequentialBlockSize: 64 * 1024,
		FileSizeBytes:       1 << 20,
		Duration:            100 * time.Millisecond,
	}

	result, err := MemoryCopy(context.Background(), params, reporter.New(nil))
	assert.NoError(err)
	assert.GreaterOrEqual(result.SampleCount, 1)
}

func TestMemoryCopyRejectsZeroFileSize(t *testing.T) {
	assert := require.New(t)

	params := Params{SequentialBlockSize: 4096, FileSizeBytes: 0, Duration: time.Second}
	_, err := MemoryCopy(context.Background(), params, reporter.New(nil))
	assert.Error(err)
}

func TestRunLoopHonorsCancelledContext(t *testing.T) {
	assert := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	params := Params{SequentialBlockSize: 4096, FileSizeBytes: 1 << 20, Duration: time.Second}
	_, err := MemoryCopy(ctx, params, reporter.New(nil))
	assert.Error(err)
}

func TestMemoryCopyEmitsProgressAndLatency(t *testing.T) {
	assert := require.New(t)

	sink := reporter.NewRecordingSink()
	rep := reporter.New(sink)

	params := Params{
		SequentialBlockSize: 4096,
		FileSizeBytes:       1 << 20,
		Duration:            350 * time.Millisecond,
	}

	result, err := MemoryCopy(context.Background(), params, rep)
	assert.NoError(err)
	assert.Greater(result.OpLatencyP50, time.Duration(0))
	assert.Greater(result.OpLatencyP99, time.Duration(0))

	progressCount := 0
	for _, ev := range sink.Events() {
		if ev.Kind == "progress" {
			progressCount++
		}
	}
	assert.Greater(progressCount, 0, "a 350ms run at the default 100ms sample interval must emit at least one progress event")
}

func TestSequentialWriteSurfacesPermissionDenied(t *testing.T) {
	assert := require.New(t)

	plat := platform.NewFake()
	path := filepath.Join(t.TempDir(), "dst.bin")
	plat.SetFileOutcome(path, platform.FileOutcome{Err: &platform.Error{Kind: platform.ErrPermissionDenied, Op: "create_direct_io_file"}})

	params := paramsFor(path)
	_, err := SequentialWrite(context.Background(), plat, params, reporter.New(nil))
	assert.Error(err)
}

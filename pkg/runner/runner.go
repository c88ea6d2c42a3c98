package runner

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/coredrift/diskmark/internal/bmerrors"
	"github.com/coredrift/diskmark/pkg/platform"
	"github.com/coredrift/diskmark/pkg/reporter"
	"github.com/coredrift/diskmark/pkg/stats"
)

// fillPattern writes a deterministic non-zero byte sequence into buf, to
// defeat filesystems that special-case all-zero writes (sparse-file
// detection, dedup, compression).
func fillPattern(buf []byte) {
	for i := range buf {
		buf[i] = byte(i%251 + 1)
	}
}

// runLoop drives the shared runner structure: start event, a deadline-bound
// loop of caller-supplied work units, per-block sampling, and a completion
// event carrying the finalized result. work returns the number of bytes
// moved by one unit and any error encountered performing it.
func runLoop(ctx context.Context, name Name, rep *reporter.Reporter, duration time.Duration, work func() (int, error)) (stats.Result, error) {
	rep.OnTestStart(string(name))

	tracker := stats.NewDefaultTracker()
	deadline := time.Now().Add(duration)

	var loopErr error
	for time.Now().Before(deadline) {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				loopErr = bmerrors.Interrupted(err.Error())
				break
			}
		}

		opStart := time.Now()
		n, err := work()
		opDur := time.Since(opStart)
		tracker.RecordLatency(opDur)

		if n > 0 {
			speed, sampled := tracker.RecordBlock(n, opDur)
			if sampled {
				rep.OnProgress(string(name), speed)
			}
		}
		if err != nil {
			loopErr = bmerrors.IO(err)
			break
		}
	}

	// Edge case: the deadline elapsed before any block completed. Report a
	// single sample for whatever (possibly zero) bytes were transferred
	// rather than an empty sample set.
	if tracker.SampleCount() == 0 {
		tracker.ForceSample()
	}

	result := tracker.Finalize()
	rep.OnTestComplete(string(name), result)
	return result, loopErr
}

// alignedBufferFor returns a buffer sized for size bytes, aligned to the
// file's sector size when it was opened with cache-bypass flags, or a
// plain buffer otherwise.
func alignedBufferFor(f *platform.File, size int) []byte {
	if f.DirectIO {
		return platform.AlignedBuffer(size, f.SectorSize)
	}
	return make([]byte, size)
}

// SequentialWrite fills the backing file with repeated sequential writes
// of a patterned block, wrapping back to offset 0 at the end of the file.
func SequentialWrite(ctx context.Context, plat platform.Platform, params Params, rep *reporter.Reporter) (stats.Result, error) {
	f, err := plat.CreateDirectIOFile(params.Path, params.FileSizeBytes)
	if err != nil {
		rep.OnTestStart(string(NameSequentialWrite))
		rep.OnTestComplete(string(NameSequentialWrite), stats.Result{})
		return stats.Result{}, mapPlatformErr(params.Path, err)
	}
	defer f.Close()

	buf := alignedBufferFor(f, params.SequentialBlockSize)
	fillPattern(buf)

	var offset int64
	work := func() (int, error) {
		if offset+int64(len(buf)) > params.FileSizeBytes {
			offset = 0
		}
		n, err := f.WriteAt(buf, offset)
		offset += int64(n)
		return n, err
	}

	result, loopErr := runLoop(ctx, NameSequentialWrite, rep, params.Duration, work)

	_ = f.Sync()
	if params.DisableOSCache {
		_ = plat.SyncFileSystem(params.Path)
	}

	return result, loopErr
}

// SequentialRead reads the backing file sequentially, wrapping back to
// offset 0 on EOF. The file must already hold at least one block's worth
// of data; a smaller file is a configuration error raised before any I/O.
func SequentialRead(ctx context.Context, plat platform.Platform, params Params, rep *reporter.Reporter) (stats.Result, error) {
	if params.FileSizeBytes < int64(params.SequentialBlockSize) {
		return stats.Result{}, bmerrors.Configuration("file is smaller than one sequential block")
	}

	f, err := plat.OpenDirectIOFile(params.Path, false)
	if err != nil {
		rep.OnTestStart(string(NameSequentialRead))
		rep.OnTestComplete(string(NameSequentialRead), stats.Result{})
		return stats.Result{}, mapPlatformErr(params.Path, err)
	}
	defer f.Close()

	buf := alignedBufferFor(f, params.SequentialBlockSize)

	var offset int64
	work := func() (int, error) {
		n, err := f.ReadAt(buf, offset)
		if err == io.EOF {
			offset = 0
			if n == 0 {
				return 0, nil
			}
			return n, nil
		}
		if err != nil {
			return n, err
		}
		offset += int64(n)
		if offset >= params.FileSizeBytes {
			offset = 0
		}
		return n, nil
	}

	return runLoop(ctx, NameSequentialRead, rep, params.Duration, work)
}

// RandomWrite issues writes of random_block_size at uniformly random
// block-aligned offsets within the file.
func RandomWrite(ctx context.Context, plat platform.Platform, params Params, rep *reporter.Reporter) (stats.Result, error) {
	if int64(params.RandomBlockSize) > params.FileSizeBytes {
		return stats.Result{}, bmerrors.Configuration("random block size exceeds file size")
	}

	f, err := plat.OpenDirectIOFile(params.Path, true)
	if err != nil {
		rep.OnTestStart(string(NameRandomWrite))
		rep.OnTestComplete(string(NameRandomWrite), stats.Result{})
		return stats.Result{}, mapPlatformErr(params.Path, err)
	}
	defer f.Close()

	buf := alignedBufferFor(f, params.RandomBlockSize)
	fillPattern(buf)

	rng := newRNG(params.RandomSeed)
	maxBlocks := params.FileSizeBytes / int64(params.RandomBlockSize)

	work := func() (int, error) {
		offset := rng.Int63n(maxBlocks) * int64(params.RandomBlockSize)
		n, err := f.WriteAt(buf, offset)
		return n, err
	}

	return runLoop(ctx, NameRandomWrite, rep, params.Duration, work)
}

// RandomRead issues reads of random_block_size at uniformly random
// block-aligned offsets within the file.
func RandomRead(ctx context.Context, plat platform.Platform, params Params, rep *reporter.Reporter) (stats.Result, error) {
	if int64(params.RandomBlockSize) > params.FileSizeBytes {
		return stats.Result{}, bmerrors.Configuration("random block size exceeds file size")
	}

	f, err := plat.OpenDirectIOFile(params.Path, false)
	if err != nil {
		rep.OnTestStart(string(NameRandomRead))
		rep.OnTestComplete(string(NameRandomRead), stats.Result{})
		return stats.Result{}, mapPlatformErr(params.Path, err)
	}
	defer f.Close()

	buf := alignedBufferFor(f, params.RandomBlockSize)

	rng := newRNG(params.RandomSeed)
	maxBlocks := params.FileSizeBytes / int64(params.RandomBlockSize)

	work := func() (int, error) {
		offset := rng.Int63n(maxBlocks) * int64(params.RandomBlockSize)
		n, err := f.ReadAt(buf, offset)
		if err == io.EOF {
			return n, nil
		}
		return n, err
	}

	return runLoop(ctx, NameRandomRead, rep, params.Duration, work)
}

// MemoryCopy repeatedly copies a source buffer into a destination buffer in
// sequential_block_size chunks, with no filesystem interaction. It serves
// as a memory-bandwidth ceiling the disk workloads are judged against.
func MemoryCopy(ctx context.Context, params Params, rep *reporter.Reporter) (stats.Result, error) {
	size := params.FileSizeBytes
	if size <= 0 {
		return stats.Result{}, bmerrors.Configuration("file size must be greater than 0")
	}

	src := make([]byte, size)
	dst := make([]byte, size)
	fillPattern(src)

	chunk := int64(params.SequentialBlockSize)
	if chunk <= 0 || chunk > size {
		chunk = size
	}

	var offset int64
	work := func() (int, error) {
		if offset+chunk > size {
			offset = 0
		}
		n := copy(dst[offset:offset+chunk], src[offset:offset+chunk])
		offset += int64(n)
		return n, nil
	}

	return runLoop(ctx, NameMemoryCopy, rep, params.Duration, work)
}

// mapPlatformErr narrows a platform-layer error into the benchmark error
// taxonomy, surfacing permission problems as PermissionDenied rather than
// a generic platform error. The orchestrator still logs and zeroes such a
// workload like any other failed workload.
func mapPlatformErr(path string, err error) error {
	if perr, ok := err.(*platform.Error); ok && perr.Kind == platform.ErrPermissionDenied {
		return bmerrors.PermissionDenied(path)
	}
	return bmerrors.Platform(err)
}

func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

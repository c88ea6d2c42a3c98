// Package benchmark wires the platform layer, the five workload runners,
// and the progress reporter into the single entry point presentation
// layers call: RunBenchmark.
package benchmark

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/coredrift/diskmark/internal/bmerrors"
	"github.com/coredrift/diskmark/pkg/config"
	"github.com/coredrift/diskmark/pkg/platform"
	"github.com/coredrift/diskmark/pkg/reporter"
	"github.com/coredrift/diskmark/pkg/runner"
	"github.com/coredrift/diskmark/pkg/stats"
)

// Results is the five TestResults keyed by workload, always returned even
// when some workloads failed.
type Results struct {
	SequentialWrite stats.Result
	SequentialRead  stats.Result
	RandomWrite     stats.Result
	RandomRead      stats.Result
	MemoryCopy      stats.Result
}

// Get returns the result for a workload by name, for callers iterating
// generically (e.g. a table/JSON renderer) instead of by field.
func (r Results) Get(name runner.Name) stats.Result {
	switch name {
	case runner.NameSequentialWrite:
		return r.SequentialWrite
	case runner.NameSequentialRead:
		return r.SequentialRead
	case runner.NameRandomWrite:
		return r.RandomWrite
	case runner.NameRandomRead:
		return r.RandomRead
	case runner.NameMemoryCopy:
		return r.MemoryCopy
	default:
		return stats.Result{}
	}
}

// Orchestrator runs the fixed five-workload sequence against one
// Platform implementation. Production code uses platform.New(); tests
// substitute platform.NewFake() to inject faults; Fake still creates a real
// backing file in the target directory.
type Orchestrator struct {
	Platform platform.Platform
	Logger   *slog.Logger
}

// New returns an Orchestrator backed by the real, compile-time-selected
// platform and the default slog logger.
func New() *Orchestrator {
	return &Orchestrator{Platform: platform.New(), Logger: slog.Default()}
}

// NewWithPlatform returns an Orchestrator backed by a caller-supplied
// Platform, for tests and for embedding in a larger process that already
// owns a logger.
func NewWithPlatform(plat platform.Platform, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{Platform: plat, Logger: logger}
}

// RunBenchmark validates cfg, prepares a uniquely named backing file inside
// cfg.TargetPath, runs the five workloads in order, and unlinks the file
// before returning. sink may be nil.
func (o *Orchestrator) RunBenchmark(ctx context.Context, cfg config.BenchmarkConfig, sink reporter.Sink) (Results, error) {
	if err := cfg.Validate(); err != nil {
		return Results{}, err
	}

	if err := o.checkAvailableSpace(cfg); err != nil {
		return Results{}, err
	}

	path := filepath.Join(cfg.TargetPath, uniqueFileName())
	if err := probeWritable(path); err != nil {
		return Results{}, err
	}

	rep := reporter.New(sink)

	var results Results
	params := runner.Params{
		Path:                path,
		SequentialBlockSize: cfg.SequentialBlockSize,
		RandomBlockSize:     cfg.RandomBlockSize,
		FileSizeBytes:       cfg.FileSizeBytes(),
		Duration:            cfg.Duration(),
		DisableOSCache:      cfg.DisableOSCache,
	}

	writeResult, err := o.runDiskWorkload(ctx, runner.NameSequentialWrite, params, rep, func() (stats.Result, error) {
		return runner.SequentialWrite(ctx, o.Platform, params, rep)
	})
	results.SequentialWrite = writeResult
	fileReady := err == nil

	if fileReady {
		readResult, err := o.runDiskWorkload(ctx, runner.NameSequentialRead, params, rep, func() (stats.Result, error) {
			return runner.SequentialRead(ctx, o.Platform, params, rep)
		})
		results.SequentialRead = readResult
		_ = err
	} else {
		o.Logger.Warn("skipping sequential read, backing file not ready", "error", err)
	}

	rwResult, rwErr := o.runDiskWorkload(ctx, runner.NameRandomWrite, params, rep, func() (stats.Result, error) {
		return runner.RandomWrite(ctx, o.Platform, params, rep)
	})
	results.RandomWrite = rwResult
	_ = rwErr

	rrResult, rrErr := o.runDiskWorkload(ctx, runner.NameRandomRead, params, rep, func() (stats.Result, error) {
		return runner.RandomRead(ctx, o.Platform, params, rep)
	})
	results.RandomRead = rrResult
	_ = rrErr

	// Memory copy has no file dependency and always runs.
	mcResult, mcErr := runner.MemoryCopy(ctx, params, rep)
	if mcErr != nil {
		o.Logger.Error("memory_copy workload failed", "error", mcErr)
		mcResult = stats.Result{}
	}
	results.MemoryCopy = mcResult

	if cfg.DisableOSCache {
		if err := o.Platform.SyncFileSystem(path); err != nil {
			o.Logger.Warn("final sync_file_system failed", "path", path, "error", err)
		}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		o.Logger.Warn("failed to remove backing file", "path", path, "error", err)
	}

	return results, nil
}

// runDiskWorkload runs one disk-backed workload, logging and zeroing its
// result on failure while letting the orchestrator proceed to the next
// workload, per the error-recovery policy: individual workload failures
// never abort the run.
func (o *Orchestrator) runDiskWorkload(_ context.Context, name runner.Name, _ runner.Params, _ *reporter.Reporter, run func() (stats.Result, error)) (stats.Result, error) {
	result, err := run()
	if err != nil {
		o.Logger.Error("workload failed", "workload", string(name), "error", err)
		return stats.Result{}, err
	}
	return result, nil
}

// checkAvailableSpace looks up the storage device backing cfg.TargetPath
// and fails fast with InsufficientSpace if the requested file size would
// not fit, before any file is created.
func (o *Orchestrator) checkAvailableSpace(cfg config.BenchmarkConfig) error {
	devices, err := o.Platform.ListStorageDevices()
	if err != nil {
		// Enumeration is informational; a platform that can't enumerate
		// devices still lets the workloads run and find out for real.
		return nil
	}

	required := cfg.FileSizeBytes()
	absTarget, err := filepath.Abs(cfg.TargetPath)
	if err != nil {
		absTarget = cfg.TargetPath
	}

	var best platform.StorageDevice
	bestLen := -1
	for _, d := range devices {
		if d.MountPoint == "" {
			continue
		}
		if strings.HasPrefix(absTarget, d.MountPoint) && len(d.MountPoint) > bestLen {
			best = d
			bestLen = len(d.MountPoint)
		}
	}
	if bestLen < 0 {
		return nil
	}
	if required > best.AvailableBytes {
		return bmerrors.InsufficientSpace(required, best.AvailableBytes)
	}
	return nil
}

// probeWritable confirms the orchestrator can create the backing file
// before any workload runs, so a read-only target directory fails the
// whole run with PermissionDenied instead of silently zeroing every disk
// workload's result one at a time.
func probeWritable(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsPermission(err) {
			return bmerrors.PermissionDenied(path)
		}
		return bmerrors.IO(err)
	}
	f.Close()
	return os.Remove(path)
}

// uniqueFileName returns a backing-file name matching dst-<pid>-<suffix>.bin
// so the testable "no leftover dst-*.bin files" property can scan for it.
func uniqueFileName() string {
	return fmt.Sprintf("dst-%d-%s.bin", os.Getpid(), uuid.NewString())
}

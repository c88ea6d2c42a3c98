// Package runner implements the five workload routines the orchestrator
// drives in sequence: sequential write, sequential read, random write,
// random read, and memory copy.
package runner

import "time"

// Name identifies one of the five workloads, matching the keys
// BenchmarkResults reports under.
type Name string

const (
	NameSequentialWrite Name = "sequential_write"
	NameSequentialRead  Name = "sequential_read"
	NameRandomWrite     Name = "random_write"
	NameRandomRead      Name = "random_read"
	NameMemoryCopy      Name = "memory_copy"
)

// Params carries everything a runner needs to drive one workload against
// an already-created backing file.
type Params struct {
	// Path is the backing file's location on disk. Unused by MemoryCopy.
	Path string

	// SequentialBlockSize is the block size used by the sequential and
	// memory-copy workloads.
	SequentialBlockSize int

	// RandomBlockSize is the block size used by the random workloads.
	RandomBlockSize int

	// FileSizeBytes is the backing file's size, and the size of each of
	// the memory-copy workload's source and destination buffers.
	FileSizeBytes int64

	// Duration bounds how long the workload's loop runs.
	Duration time.Duration

	// DisableOSCache requests a durability barrier (SyncFileSystem) after
	// sequential writes. It does not choose how files are opened: the
	// disk workloads always open the file through the platform's
	// direct-I/O calls, whatever its value.
	DisableOSCache bool

	// RandomSeed seeds the random workloads' offset generator. Tests that
	// don't care about reproducibility can leave it at zero, which is
	// re-seeded from the current time.
	RandomSeed int64
}

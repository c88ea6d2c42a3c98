// Package platform abstracts the OS-specific operations the benchmark core
// depends on: volume enumeration, the per-user app-data directory, and the
// cache-bypass file lifecycle used by the workload runners.
package platform

import (
	"fmt"
	"os"
)

// DeviceClass tags the kind of storage backing a StorageDevice.
type DeviceClass int

const (
	ClassUnknown DeviceClass = iota
	ClassFixed
	ClassRemovable
	ClassOptical
	ClassNetwork
	ClassRAMDisk
)

func (c DeviceClass) String() string {
	switch c {
	case ClassFixed:
		return "fixed"
	case ClassRemovable:
		return "removable"
	case ClassOptical:
		return "optical"
	case ClassNetwork:
		return "network"
	case ClassRAMDisk:
		return "ram-disk"
	default:
		return "unknown"
	}
}

// StorageDevice is one enumerated volume. Purely informational: the
// benchmark core never uses it to drive a test run.
type StorageDevice struct {
	Name           string
	MountPoint     string
	TotalBytes     int64
	AvailableBytes int64
	Class          DeviceClass
}

// ErrorKind classifies platform-layer failures.
type ErrorKind int

const (
	ErrIO ErrorKind = iota
	ErrUnsupportedPlatform
	ErrEnumerationFailed
	ErrDirectIONotSupported
	ErrPermissionDenied
)

// Error is returned by every platform operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("platform: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("platform: %s", e.Op)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// File is the handle returned by the direct-I/O file operations. It wraps
// *os.File together with the alignment the handle requires, since direct
// I/O buffers, lengths, and offsets must all be multiples of SectorSize
// when DirectIO is true.
type File struct {
	*os.File
	DirectIO   bool
	SectorSize int
}

// Platform is the capability set the benchmark core depends on. Each
// concrete OS implementation is selected at compile time via build tags;
// Fake (fake.go) implements it with configurable devices and injectable
// faults for tests; its file operations create and open real files.
type Platform interface {
	ListStorageDevices() ([]StorageDevice, error)
	GetAppDataDir() (string, error)
	CreateDirectIOFile(path string, size int64) (*File, error)
	OpenDirectIOFile(path string, write bool) (*File, error)
	SyncFileSystem(path string) error
}

// New returns the Platform implementation selected at compile time for the
// current OS.
func New() Platform {
	return newPlatform()
}

// DefaultSectorSize is the safe-default logical sector size used when the
// platform cannot query the real one (spec §9: "assume 4096 bytes as a
// safe default").
const DefaultSectorSize = 4096

// MegabyteBytes is 2^20 — this repo's one consistent definition of
// "megabyte", used everywhere a size suffix or an MB/s figure is computed
// (spec §9 Open Questions: pick one, document it).
const MegabyteBytes = 1 << 20

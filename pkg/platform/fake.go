package platform

import (
	"os"
	"sync"
)

// FileOutcome overrides what Fake does for a specific path on every
// matching call until replaced, mirroring MockFileResult from the reference mock platform:
// either let the call succeed against a real temp file, or fail with Err.
type FileOutcome struct {
	Err error
}

// Fake is an in-memory-configured Platform used by tests that need to
// assert on cache-bypass flags or exercise error paths (insufficient
// space, permission denied, sync failures) with a configured device list
// instead of the real OS queries. Its file operations still create and open
// real files.
// It is shipped as part of the package, not test-only, the same way the
// reference implementation keeps its MockPlatform alongside the real
// platform modules rather than behind a test build tag.
type Fake struct {
	mu sync.Mutex

	devices    []StorageDevice
	appDataDir string

	simulateErrors bool
	simulatedErr   *Error

	fileOutcomes map[string]FileOutcome

	// OpenedFiles records every path passed to CreateDirectIOFile or
	// OpenDirectIOFile, in call order, so tests can assert which paths the
	// benchmark core actually touched.
	OpenedFiles []string
	// DirectIORequested records, per opened path, whether cache-bypass was
	// requested. Fake always honors the request (SectorSize/DirectIO on the
	// returned *File both reflect it) since there is no real OS to refuse.
	DirectIORequested map[string]bool
	// SyncedPaths records every path passed to SyncFileSystem.
	SyncedPaths []string
}

// NewFake returns a Fake seeded with three representative devices, matching
// the reference mock platform's default fixture (a system SSD, a secondary
// HDD, and a removable USB drive).
func NewFake() *Fake {
	return &Fake{
		devices: []StorageDevice{
			{Name: "System Drive", MountPoint: "/", TotalBytes: 1 << 40, AvailableBytes: 512 << 30, Class: ClassFixed},
			{Name: "Data Drive", MountPoint: "/data", TotalBytes: 2 << 40, AvailableBytes: 1 << 40, Class: ClassFixed},
			{Name: "USB Drive", MountPoint: "/media/usb", TotalBytes: 32 << 30, AvailableBytes: 16 << 30, Class: ClassRemovable},
		},
		appDataDir:        os.TempDir(),
		fileOutcomes:      make(map[string]FileOutcome),
		DirectIORequested: make(map[string]bool),
	}
}

// AddDevice appends a device to the fake's enumeration list.
func (f *Fake) AddDevice(d StorageDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = append(f.devices, d)
}

// ClearDevices empties the fake's enumeration list.
func (f *Fake) ClearDevices() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.devices = nil
}

// SetAppDataDir overrides the path GetAppDataDir returns.
func (f *Fake) SetAppDataDir(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appDataDir = path
}

// SimulateError makes every subsequent call fail with err until
// DisableErrorSimulation is called.
func (f *Fake) SimulateError(err *Error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = true
	f.simulatedErr = err
}

// DisableErrorSimulation clears a prior SimulateError.
func (f *Fake) DisableErrorSimulation() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.simulateErrors = false
	f.simulatedErr = nil
}

// SetFileOutcome overrides the result of every later CreateDirectIOFile or
// OpenDirectIOFile call against path; the outcome is never cleared, only
// replaced by another SetFileOutcome call.
func (f *Fake) SetFileOutcome(path string, outcome FileOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fileOutcomes[path] = outcome
}

func (f *Fake) checkSimulated() *Error {
	if f.simulateErrors {
		return f.simulatedErr
	}
	return nil
}

func (f *Fake) ListStorageDevices() ([]StorageDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkSimulated(); err != nil {
		return nil, err
	}
	out := make([]StorageDevice, len(f.devices))
	copy(out, f.devices)
	return out, nil
}

func (f *Fake) GetAppDataDir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkSimulated(); err != nil {
		return "", err
	}
	if f.appDataDir == "" {
		return "", newErr(ErrUnsupportedPlatform, "get_app_data_dir", nil)
	}
	return f.appDataDir, nil
}

// CreateDirectIOFile creates a real file on the local filesystem (tests
// typically point path at a t.TempDir()) so the returned *File behaves like
// a genuine handle for the runners under test, while still recording the
// cache-bypass request for later assertion.
func (f *Fake) CreateDirectIOFile(path string, size int64) (*File, error) {
	f.mu.Lock()
	if err := f.checkSimulated(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if outcome, ok := f.fileOutcomes[path]; ok && outcome.Err != nil {
		f.mu.Unlock()
		return nil, outcome.Err
	}
	f.mu.Unlock()

	osFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newErr(ErrIO, "create_direct_io_file", err)
	}
	if err := osFile.Truncate(size); err != nil {
		osFile.Close()
		return nil, newErr(ErrIO, "create_direct_io_file", err)
	}

	f.mu.Lock()
	f.OpenedFiles = append(f.OpenedFiles, path)
	f.DirectIORequested[path] = true
	f.mu.Unlock()

	return &File{File: osFile, DirectIO: true, SectorSize: DefaultSectorSize}, nil
}

func (f *Fake) OpenDirectIOFile(path string, write bool) (*File, error) {
	f.mu.Lock()
	if err := f.checkSimulated(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if outcome, ok := f.fileOutcomes[path]; ok && outcome.Err != nil {
		f.mu.Unlock()
		return nil, outcome.Err
	}
	f.mu.Unlock()

	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR
	}
	osFile, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, newErr(ErrIO, "open_direct_io_file", err)
	}

	f.mu.Lock()
	f.OpenedFiles = append(f.OpenedFiles, path)
	f.DirectIORequested[path] = true
	f.mu.Unlock()

	return &File{File: osFile, DirectIO: true, SectorSize: DefaultSectorSize}, nil
}

var _ Platform = (*Fake)(nil)

func (f *Fake) SyncFileSystem(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkSimulated(); err != nil {
		return err
	}
	f.SyncedPaths = append(f.SyncedPaths, path)
	return nil
}

//go:build !linux && !darwin && !windows

package platform

import (
	"os"
	"path/filepath"
)

func newPlatform() Platform { return otherPlatform{} }

// otherPlatform backs any OS without a dedicated cache-bypass mechanism.
// Files are opened with ordinary buffered I/O; DirectIO is always false so
// callers and reporters can surface that the run is not a true cache-bypass
// measurement (spec §4.A: "platforms without a direct-I/O facility must
// report this rather than silently falling back").
type otherPlatform struct{}

func (otherPlatform) ListStorageDevices() ([]StorageDevice, error) {
	return nil, newErr(ErrUnsupportedPlatform, "list_storage_devices", nil)
}

func (otherPlatform) GetAppDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", newErr(ErrIO, "get_app_data_dir", err)
	}
	dir := filepath.Join(home, ".diskmark")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", newErr(ErrIO, "get_app_data_dir", err)
	}
	return dir, nil
}

func (p otherPlatform) CreateDirectIOFile(path string, size int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, newErr(ErrIO, "create_direct_io_file", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, newErr(ErrIO, "create_direct_io_file", err)
	}
	f.Close()
	return p.OpenDirectIOFile(path, true)
}

func (otherPlatform) OpenDirectIOFile(path string, write bool) (*File, error) {
	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, newErr(ErrIO, "open_direct_io_file", err)
	}
	return &File{File: f, DirectIO: false, SectorSize: DefaultSectorSize}, nil
}

func (otherPlatform) SyncFileSystem(path string) error {
	f, err := os.Open(filepath.Dir(path))
	if err != nil {
		return newErr(ErrIO, "sync_file_system", err)
	}
	defer f.Close()
	if err := f.Sync(); err != nil {
		return newErr(ErrIO, "sync_file_system", err)
	}
	return nil
}

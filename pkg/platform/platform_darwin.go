//go:build darwin

package platform

import (
	"bufio"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

func newPlatform() Platform { return darwinPlatform{} }

type darwinPlatform struct{}

// ListStorageDevices shells out to df -k (and to diskutil info per device
// for classification), following the
// sibling diskbench example's detect_darwin.go pattern of parsing diskutil
// output since macOS exposes no clean syscall-level enumeration the way
// /proc/mounts does on Linux.
func (darwinPlatform) ListStorageDevices() ([]StorageDevice, error) {
	out, err := exec.Command("df", "-k").Output()
	if err != nil {
		return nil, newErr(ErrEnumerationFailed, "list_storage_devices", err)
	}

	var devices []StorageDevice
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 9 {
			continue
		}
		source := fields[0]
		if !strings.HasPrefix(source, "/dev/") {
			continue
		}
		totalKB, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		availKB, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			continue
		}
		mount := strings.Join(fields[8:], " ")

		devices = append(devices, StorageDevice{
			Name:           filepath.Base(source),
			MountPoint:     mount,
			TotalBytes:     totalKB * 1024,
			AvailableBytes: availKB * 1024,
			Class:          classifyDarwinDevice(source),
		})
	}
	return devices, nil
}

func classifyDarwinDevice(source string) DeviceClass {
	out, err := exec.Command("diskutil", "info", source).Output()
	if err != nil {
		return ClassUnknown
	}
	text := strings.ToLower(string(out))
	switch {
	case strings.Contains(text, "removable media:     removable"):
		return ClassRemovable
	case strings.Contains(text, "solid state"):
		return ClassFixed
	case strings.Contains(text, "read-only") || strings.Contains(text, "dvd") || strings.Contains(text, "cd-rom"):
		return ClassOptical
	}
	return ClassFixed
}

// GetAppDataDir uses ~/Library/Application Support/diskmark, the standard
// macOS per-user data location, created on first use.
func (darwinPlatform) GetAppDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", newErr(ErrIO, "get_app_data_dir", err)
	}
	dir := filepath.Join(home, "Library", "Application Support", "diskmark")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", newErr(ErrIO, "get_app_data_dir", err)
	}
	return dir, nil
}

// CreateDirectIOFile creates and preallocates path, then hands off to
// OpenDirectIOFile to apply F_NOCACHE.
func (p darwinPlatform) CreateDirectIOFile(path string, size int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, classifyDarwinIOErr("create_direct_io_file", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, newErr(ErrIO, "create_direct_io_file", err)
	}
	f.Close()

	return p.OpenDirectIOFile(path, true)
}

// OpenDirectIOFile opens path and issues fcntl(F_NOCACHE, 1). Unlike Linux's
// O_DIRECT, F_NOCACHE carries no alignment requirement (spec §4.A.2);
// SectorSize is always reported as DefaultSectorSize, and the runners align
// their buffers to it whenever DirectIO is true.
func (darwinPlatform) OpenDirectIOFile(path string, write bool) (*File, error) {
	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, classifyDarwinIOErr("open_direct_io_file", err)
	}

	_, _, errno := unix.Syscall(unix.SYS_FCNTL, f.Fd(), unix.F_NOCACHE, 1)
	direct := errno == 0

	return &File{
		File:       f,
		DirectIO:   direct,
		SectorSize: DefaultSectorSize,
	}, nil
}

// SyncFileSystem calls fsync on the target file's directory; Darwin's
// fsync(2) (unlike Linux fsync) already forces the drive write cache for
// files opened with F_NOCACHE, so no global sync(2) equivalent is needed.
func (darwinPlatform) SyncFileSystem(path string) error {
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

func classifyDarwinIOErr(op string, err error) *Error {
	if os.IsPermission(err) {
		return newErr(ErrPermissionDenied, op, err)
	}
	return newErr(ErrIO, op, err)
}

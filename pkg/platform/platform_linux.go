//go:build linux

package platform

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

func newPlatform() Platform { return linuxPlatform{} }

type linuxPlatform struct{}

// ListStorageDevices walks /proc/mounts and classifies each entry using the
// removable sysfs attribute and cdrom device entry of its backing block device,
// following the teacher's use of golang.org/x/sys/unix for low-level OS
// queries and the pack's lsblk-based classification heuristics (grounded
// on the sibling diskbench example's detect_linux.go, adapted to the
// stdlib/unix stack instead of shelling out to lsblk).
func (linuxPlatform) ListStorageDevices() ([]StorageDevice, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, newErr(ErrEnumerationFailed, "list_storage_devices", err)
	}
	defer f.Close()

	seen := map[string]bool{}
	var devices []StorageDevice

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		source, mount, fstype := fields[0], fields[1], fields[2]
		if !strings.HasPrefix(source, "/dev/") && fstype != "tmpfs" {
			continue
		}
		if isPseudoFilesystem(fstype) {
			continue
		}
		if seen[mount] {
			continue
		}
		seen[mount] = true

		var stat unix.Statfs_t
		if err := unix.Statfs(mount, &stat); err != nil {
			continue
		}
		total := int64(stat.Blocks) * int64(stat.Bsize)
		avail := int64(stat.Bavail) * int64(stat.Bsize)

		devices = append(devices, StorageDevice{
			Name:           filepath.Base(source),
			MountPoint:     mount,
			TotalBytes:     total,
			AvailableBytes: avail,
			Class:          classifyLinuxDevice(source, fstype),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, newErr(ErrEnumerationFailed, "list_storage_devices", err)
	}
	return devices, nil
}

func isPseudoFilesystem(fstype string) bool {
	switch fstype {
	case "proc", "sysfs", "devtmpfs", "devpts", "tmpfs", "cgroup", "cgroup2",
		"overlay", "squashfs", "debugfs", "tracefs", "securityfs", "pstore",
		"bpf", "autofs", "mqueue", "hugetlbfs", "fusectl", "configfs":
		return fstype != "tmpfs" // tmpfs is reported as ram-disk below
	}
	return false
}

func classifyLinuxDevice(source, fstype string) DeviceClass {
	if fstype == "nfs" || fstype == "nfs4" || fstype == "cifs" {
		return ClassNetwork
	}
	if fstype == "tmpfs" {
		return ClassRAMDisk
	}
	base := filepath.Base(source)
	// Strip partition suffix (sda1 -> sda, nvme0n1p1 -> nvme0n1).
	disk := stripPartitionSuffix(base)

	if removable, err := readSysfsBool(disk, "removable"); err == nil && removable {
		return ClassRemovable
	}
	if _, err := os.Stat(filepath.Join("/sys/block", disk, "device", "cdrom")); err == nil {
		return ClassOptical
	}
	return ClassFixed
}

func stripPartitionSuffix(dev string) string {
	if strings.HasPrefix(dev, "nvme") {
		if idx := strings.Index(dev, "p"); idx > 0 {
			if _, err := strconv.Atoi(dev[idx+1:]); err == nil {
				return dev[:idx]
			}
		}
		return dev
	}
	i := len(dev)
	for i > 0 && dev[i-1] >= '0' && dev[i-1] <= '9' {
		i--
	}
	if i == len(dev) {
		return dev
	}
	return dev[:i]
}

func readSysfsBool(disk, attr string) (bool, error) {
	data, err := os.ReadFile(filepath.Join("/sys/block", disk, attr))
	if err != nil {
		return false, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// GetAppDataDir resolves $XDG_DATA_HOME or ~/.local/share, creating it if
// missing. No pack example wires a dedicated XDG-directory library (see
// DESIGN.md), so this follows os.UserHomeDir() + the XDG base-directory
// spec by hand, the same way the teacher resolves paths it needs with the
// stdlib os/path packages rather than a helper dependency.
func (linuxPlatform) GetAppDataDir() (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", newErr(ErrIO, "get_app_data_dir", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	dir = filepath.Join(dir, "diskmark")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", newErr(ErrIO, "get_app_data_dir", err)
	}
	return dir, nil
}

// CreateDirectIOFile creates/truncates path, preallocates size bytes, and
// opens it with O_DIRECT|O_SYNC. Per spec §4.A.3: on EINVAL (filesystem
// refuses O_DIRECT) it falls back to O_SYNC alone — not truly
// cache-bypassing, but not fatal either.
func (p linuxPlatform) CreateDirectIOFile(path string, size int64) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, classifyLinuxIOErr("create_direct_io_file", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, newErr(ErrIO, "create_direct_io_file", err)
	}
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err != nil {
		// Best-effort preallocation; sparse files still satisfy the size
		// contract via Truncate above.
		_ = err
	}
	f.Close()

	return p.OpenDirectIOFile(path, true)
}

// OpenDirectIOFile reopens path with the same flag discipline as
// CreateDirectIOFile, without truncation or preallocation.
func (linuxPlatform) OpenDirectIOFile(path string, write bool) (*File, error) {
	flags := os.O_RDONLY
	if write {
		flags = os.O_RDWR
	}

	directFlags := flags | unix.O_DIRECT | unix.O_SYNC
	fd, err := unix.Open(path, directFlags, 0o644)
	sectorSize := DefaultSectorSize
	direct := true
	if err == unix.EINVAL {
		// Filesystem refuses O_DIRECT; fall back to O_SYNC alone.
		direct = false
		sectorSize = 1
		fd, err = unix.Open(path, flags|unix.O_SYNC, 0o644)
	}
	if err != nil {
		return nil, classifyLinuxIOErr("open_direct_io_file", err)
	}

	return &File{
		File:       os.NewFile(uintptr(fd), path),
		DirectIO:   direct,
		SectorSize: sectorSize,
	}, nil
}

// SyncFileSystem issues fsync on the containing directory's file plus a
// global sync(2), the strongest durability barrier readily available on
// Linux. Best-effort: errors are returned but the caller only logs them.
func (linuxPlatform) SyncFileSystem(path string) error {
	unix.Sync()
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

func classifyLinuxIOErr(op string, err error) *Error {
	if errno, ok := err.(syscall.Errno); ok {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			return newErr(ErrPermissionDenied, op, err)
		}
	}
	if os.IsPermission(err) {
		return newErr(ErrPermissionDenied, op, err)
	}
	return newErr(ErrIO, op, err)
}

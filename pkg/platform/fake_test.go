package platform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeSeedsThreeDevices(t *testing.T) {
	assert := require.New(t)

	fake := NewFake()
	devices, err := fake.ListStorageDevices()
	assert.NoError(err)
	assert.Len(devices, 3)
}

func TestFakeCreateDirectIOFileRecordsCallMetadata(t *testing.T) {
	assert := require.New(t)

	fake := NewFake()
	path := filepath.Join(t.TempDir(), "dst.bin")

	f, err := fake.CreateDirectIOFile(path, 4096)
	assert.NoError(err)
	defer f.Close()

	assert.True(f.DirectIO)
	assert.Contains(fake.OpenedFiles, path)
	assert.True(fake.DirectIORequested[path])
}

func TestFakeSimulateErrorAffectsEveryCall(t *testing.T) {
	assert := require.New(t)

	fake := NewFake()
	fake.SimulateError(newErr(ErrPermissionDenied, "open_direct_io_file", nil))

	_, err := fake.ListStorageDevices()
	assert.Error(err)

	perr, ok := err.(*Error)
	assert.True(ok)
	assert.Equal(ErrPermissionDenied, perr.Kind)

	fake.DisableErrorSimulation()
	_, err = fake.ListStorageDevices()
	assert.NoError(err)
}

func TestFakeSetFileOutcomeOverridesOnePath(t *testing.T) {
	assert := require.New(t)

	fake := NewFake()
	dir := t.TempDir()
	badPath := filepath.Join(dir, "bad.bin")
	goodPath := filepath.Join(dir, "good.bin")

	fake.SetFileOutcome(badPath, FileOutcome{Err: newErr(ErrIO, "create_direct_io_file", nil)})

	_, err := fake.CreateDirectIOFile(badPath, 4096)
	assert.Error(err)

	f, err := fake.CreateDirectIOFile(goodPath, 4096)
	assert.NoError(err)
	f.Close()
}

func TestFakeSyncFileSystemRecordsPath(t *testing.T) {
	assert := require.New(t)

	fake := NewFake()
	assert.NoError(fake.SyncFileSystem("/some/path"))
	assert.Equal([]string{"/some/path"}, fake.SyncedPaths)
}

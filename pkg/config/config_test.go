package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigMatchesDocumentedDefaults(t *testing.T) {
	assert := require.New(t)

	cfg := DefaultConfig()
	assert.Equal(4*1024*1024, cfg.SequentialBlockSize)
	assert.Equal(4*1024, cfg.RandomBlockSize)
	assert.Equal(uint64(10), cfg.TestDurationSeconds)
	assert.True(cfg.DisableOSCache)
	assert.False(cfg.DisableDirectIO)
	assert.Equal(1024, cfg.FileSizeMB)
}

func TestFileSizeBytesUsesMegabyteConstant(t *testing.T) {
	assert := require.New(t)

	cfg := DefaultConfig()
	cfg.FileSizeMB = 4
	assert.Equal(int64(4*1024*1024), cfg.FileSizeBytes())
}

func TestDurationConvertsSeconds(t *testing.T) {
	assert := require.New(t)

	cfg := DefaultConfig()
	cfg.TestDurationSeconds = 30
	assert.Equal(30.0, cfg.Duration().Seconds())
}

func TestValidateRejectsZeroSequentialBlockSize(t *testing.T) {
	assert := require.New(t)

	cfg := DefaultConfig()
	cfg.TargetPath = t.TempDir()
	cfg.SequentialBlockSize = 0
	assert.Error(cfg.Validate())
}

func TestValidateRejectsMissingTargetPath(t *testing.T) {
	assert := require.New(t)

	cfg := DefaultConfig()
	cfg.TargetPath = filepath.Join(t.TempDir(), "does-not-exist")
	assert.Error(cfg.Validate())
}

func TestValidateAcceptsDefaultsWithRealTargetPath(t *testing.T) {
	assert := require.New(t)

	cfg := DefaultConfig()
	cfg.TargetPath = t.TempDir()
	assert.NoError(cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	assert := require.New(t)

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.TargetPath = dir
	cfg.RandomBlockSize = 8192

	path := filepath.Join(dir, "diskmark.yaml")
	assert.NoError(Save(path, cfg))

	loaded, err := Load(path)
	assert.NoError(err)
	assert.Equal(cfg.RandomBlockSize, loaded.RandomBlockSize)
	assert.Equal(cfg.TargetPath, loaded.TargetPath)
}

// Package config holds the benchmark's tunable parameters and the on-disk
// YAML form they can be loaded from and saved to.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coredrift/diskmark/internal/bmerrors"
	"github.com/coredrift/diskmark/pkg/platform"
)

// BenchmarkConfig parameterizes one run of the five workloads against a
// single target path.
type BenchmarkConfig struct {
	// TargetPath is the directory the benchmark creates its test file in.
	TargetPath string `yaml:"target_path"`

	// SequentialBlockSize is the block size used by the sequential
	// write/read workloads, in bytes. Default 4MiB.
	SequentialBlockSize int `yaml:"sequential_block_size"`

	// RandomBlockSize is the block size used by the random write/read
	// workloads, in bytes. Default 4KiB.
	RandomBlockSize int `yaml:"random_block_size"`

	// TestDurationSeconds bounds how long each workload runs. Default 10.
	TestDurationSeconds uint64 `yaml:"test_duration_seconds"`

	// DisableOSCache requests durability barriers (SyncFileSystem) after
	// the sequential write workload and at the end of the run. The disk
	// workloads open the test file through the platform's direct-I/O calls
	// whether it is true or false. Default true.
	DisableOSCache bool `yaml:"disable_os_cache"`

	// DisableDirectIO is carried through DefaultConfig, Load and Save, but
	// no runner reads it: the disk workloads open the test file through the
	// platform's direct-I/O calls whatever its value. Default false.
	DisableDirectIO bool `yaml:"disable_direct_io"`

	// FileSizeMB is the size of the test file, in MB (2^20 bytes).
	// Default 1024 (1GiB).
	FileSizeMB int `yaml:"file_size_mb"`
}

// DefaultConfig returns a BenchmarkConfig with every field set to its
// documented default, targeting the current directory.
func DefaultConfig() BenchmarkConfig {
	return BenchmarkConfig{
		TargetPath:          ".",
		SequentialBlockSize: 4 * 1024 * 1024,
		RandomBlockSize:     4 * 1024,
		TestDurationSeconds: 10,
		DisableOSCache:      true,
		DisableDirectIO:     false,
		FileSizeMB:          1024,
	}
}

// Validate checks that the configuration is internally consistent and that
// TargetPath exists, returning a *bmerrors.Error of kind Configuration on
// the first problem found.
func (c BenchmarkConfig) Validate() error {
	if c.SequentialBlockSize <= 0 {
		return bmerrors.Configuration("sequential block size must be greater than 0")
	}
	if c.RandomBlockSize <= 0 {
		return bmerrors.Configuration("random block size must be greater than 0")
	}
	if c.TestDurationSeconds == 0 {
		return bmerrors.Configuration("test duration must be greater than 0")
	}
	if c.FileSizeMB <= 0 {
		return bmerrors.Configuration("file size must be greater than 0")
	}
	if _, err := os.Stat(c.TargetPath); err != nil {
		return bmerrors.Configuration("target path does not exist: " + c.TargetPath)
	}
	return nil
}

// FileSizeBytes returns the configured test file size in bytes.
func (c BenchmarkConfig) FileSizeBytes() int64 {
	return int64(c.FileSizeMB) * platform.MegabyteBytes
}

// Duration returns the configured per-workload test duration.
func (c BenchmarkConfig) Duration() time.Duration {
	return time.Duration(c.TestDurationSeconds) * time.Second
}

// Load reads a BenchmarkConfig from a YAML file at path, starting from
// DefaultConfig's values so a config file only needs to specify the
// settings it wants to override; a field the file sets explicitly, even to
// zero or false, replaces the default.
func Load(path string) (BenchmarkConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BenchmarkConfig{}, bmerrors.IO(err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return BenchmarkConfig{}, bmerrors.Configuration(err.Error())
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating or truncating the file.
func Save(path string, cfg BenchmarkConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return bmerrors.Configuration(err.Error())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return bmerrors.IO(err)
	}
	return nil
}

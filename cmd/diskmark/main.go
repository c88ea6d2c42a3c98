package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/coredrift/diskmark/internal/bmerrors"
	"github.com/coredrift/diskmark/pkg/benchmark"
	"github.com/coredrift/diskmark/pkg/config"
	"github.com/coredrift/diskmark/pkg/platform"
	"github.com/coredrift/diskmark/pkg/runner"
	"github.com/coredrift/diskmark/pkg/stats"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list-devices":
		os.Exit(runListDevices())
	case "benchmark":
		os.Exit(runBenchmarkCmd(os.Args[2:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: diskmark <list-devices|benchmark> [options]")
}

func runListDevices() int {
	plat := platform.New()
	devices, err := plat.ListStorageDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}
	for _, d := range devices {
		fmt.Printf("%-20s %-30s %10s total %10s free  [%s]\n",
			d.Name, d.MountPoint, formatSize(d.TotalBytes), formatSize(d.AvailableBytes), d.Class)
	}
	return 0
}

// Flags holds every benchmark subcommand option.
type Flags struct {
	SequentialBlockSize *string
	RandomBlockSize     *string
	Duration            *int
	FileSize            *string
	EnableCache         *bool
	OutputFormat        *string
}

func setupFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	f.SequentialBlockSize = fs.String("sequential-block-size", "4MB", "Block size for sequential workloads")
	f.RandomBlockSize = fs.String("random-block-size", "4KB", "Block size for random workloads")
	f.Duration = fs.Int("duration", 10, "Seconds to run each workload")
	f.FileSize = fs.String("file-size", "1024MB", "Size of the backing test file")
	f.EnableCache = fs.Bool("enable-cache", false, "Skip the sync barriers after writes (files are still opened with cache-bypass flags)")
	f.OutputFormat = fs.String("output-format", "table", "Output format: table, json, or csv")
	return f
}

func runBenchmarkCmd(args []string) int {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	f := setupFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "benchmark requires a target path")
		return 1
	}
	targetPath := fs.Arg(0)

	cfg := config.DefaultConfig()
	cfg.TargetPath = targetPath
	cfg.DisableOSCache = !*f.EnableCache
	cfg.TestDurationSeconds = uint64(*f.Duration)

	seqBlock, err := parseSize(*f.SequentialBlockSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --sequential-block-size: %v\n", err)
		return 1
	}
	cfg.SequentialBlockSize = int(seqBlock)

	randBlock, err := parseSize(*f.RandomBlockSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --random-block-size: %v\n", err)
		return 1
	}
	cfg.RandomBlockSize = int(randBlock)

	fileSize, err := parseSize(*f.FileSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid --file-size: %v\n", err)
		return 1
	}
	cfg.FileSizeMB = int(fileSize / platform.MegabyteBytes)
	if cfg.FileSizeMB == 0 {
		cfg.FileSizeMB = 1
	}

	orch := benchmark.New()
	results, err := orch.RunBenchmark(context.Background(), cfg, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return exitCodeFor(err)
	}

	switch *f.OutputFormat {
	case "json":
		printJSON(results)
	case "csv":
		printCSV(results)
	default:
		printTable(results)
	}
	return 0
}

func exitCodeFor(err error) int {
	var be *bmerrors.Error
	if errors.As(err, &be) {
		switch be.Kind {
		case bmerrors.KindPlatform:
			return 2
		case bmerrors.KindPermissionDenied:
			return 3
		case bmerrors.KindInsufficientSpace:
			return 4
		case bmerrors.KindTestInterrupted:
			return 5
		default:
			return 1
		}
	}
	var pe *platform.Error
	if errors.As(err, &pe) {
		return 2
	}
	return 1
}

var workloadOrder = []runner.Name{
	runner.NameSequentialWrite,
	runner.NameSequentialRead,
	runner.NameRandomWrite,
	runner.NameRandomRead,
	runner.NameMemoryCopy,
}

func printTable(results benchmark.Results) {
	fmt.Printf("%-18s %10s %10s %10s %8s %10s\n", "workload", "min MB/s", "avg MB/s", "max MB/s", "samples", "duration")
	for _, name := range workloadOrder {
		r := results.Get(name)
		fmt.Printf("%-18s %10.2f %10.2f %10.2f %8d %10s\n",
			name, r.MinSpeedMBps, r.AvgSpeedMBps, r.MaxSpeedMBps, r.SampleCount, r.TestDuration.Round(time.Millisecond))
	}
}

type jsonEnvelope struct {
	Timestamp string                  `json:"timestamp"`
	Version   string                  `json:"version"`
	Results   map[string]stats.Result `json:"results"`
}

func printJSON(results benchmark.Results) {
	out := jsonEnvelope{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   version,
		Results:   make(map[string]stats.Result, len(workloadOrder)),
	}
	for _, name := range workloadOrder {
		out.Results[string(name)] = results.Get(name)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

func printCSV(results benchmark.Results) {
	fmt.Println("workload,min_mbps,avg_mbps,max_mbps,sample_count,duration_seconds")
	var sumMin, sumAvg, sumMax float64
	var sumSamples int
	for _, name := range workloadOrder {
		r := results.Get(name)
		fmt.Printf("%s,%.2f,%.2f,%.2f,%d,%.2f\n", name, r.MinSpeedMBps, r.AvgSpeedMBps, r.MaxSpeedMBps, r.SampleCount, r.TestDuration.Seconds())
		sumMin += r.MinSpeedMBps
		sumAvg += r.AvgSpeedMBps
		sumMax += r.MaxSpeedMBps
		sumSamples += r.SampleCount
	}
	n := float64(len(workloadOrder))
	fmt.Printf("summary,%.2f,%.2f,%.2f,%d,\n", sumMin/n, sumAvg/n, sumMax/n, sumSamples)
}

// version is overridden at build time via -ldflags.
var version = "dev"

// sizeSuffixes maps the accepted suffixes (largest first) to their
// multiplier in bytes, using 2^10 steps per the size-suffix contract.
var sizeSuffixes = []struct {
	suffix string
	mult   int64
}{
	{"GB", 1 << 30},
	{"G", 1 << 30},
	{"MB", 1 << 20},
	{"M", 1 << 20},
	{"KB", 1 << 10},
	{"K", 1 << 10},
	{"B", 1},
}

// parseSize parses a human size like "4MB", "512K", or "1024" (bytes) into
// a byte count.
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)
	for _, entry := range sizeSuffixes {
		if strings.HasSuffix(upper, entry.suffix) {
			numPart := strings.TrimSpace(s[:len(s)-len(entry.suffix)])
			if numPart == "" {
				continue
			}
			val, err := strconv.ParseInt(numPart, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid size %q: %w", s, err)
			}
			return val * entry.mult, nil
		}
	}
	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return val, nil
}

// formatSize renders bytes using the largest whole suffix that divides
// evenly, falling back to raw bytes. Used only for list-devices output;
// parseSize(formatSize(n)) == n holds for whole-unit values such as those
// main_test.go checks, not for arbitrary values.
func formatSize(bytes int64) string {
	type unit struct {
		suffix string
		size   int64
	}
	units := []unit{{"GB", 1 << 30}, {"MB", 1 << 20}, {"KB", 1 << 10}}
	sort.Slice(units, func(i, j int) bool { return units[i].size > units[j].size })
	for _, u := range units {
		if bytes >= u.size && bytes%u.size == 0 {
			return fmt.Sprintf("%d%s", bytes/u.size, u.suffix)
		}
	}
	for _, u := range units {
		if bytes >= u.size {
			return fmt.Sprintf("%.1f%s", float64(bytes)/float64(u.size), u.suffix)
		}
	}
	return fmt.Sprintf("%dB", bytes)
}

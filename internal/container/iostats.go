package container

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// IOStats is one snapshot of a container's cgroup v2 io.stat.
type IOStats struct {
	ReadBytes  uint64
	WriteBytes uint64
	ReadOps    uint64
	WriteOps   uint64
	Timestamp  time.Time
}

// IOMetrics are the I/O rates between two snapshots.
type IOMetrics struct {
	ReadIOPS          float64 `json:"readIops" yaml:"readIops"`
	WriteIOPS         float64 `json:"writeIops" yaml:"writeIops"`
	ReadThroughputMB  float64 `json:"readThroughputMb" yaml:"readThroughputMb"`
	WriteThroughputMB float64 `json:"writeThroughputMb" yaml:"writeThroughputMb"`
}

// CgroupRoot is where the cgroup v2 hierarchy is mounted.
var CgroupRoot = "/sys/fs/cgroup"

// GetContainerIOStats reads io.stat for the named container.
func GetContainerIOStats(ctx context.Context, containerName string) (*IOStats, error) {
	containerID, err := getContainerID(ctx, containerName)
	if err != nil {
		return nil, err
	}
	cgroupPath, err := findCgroupPath(containerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find container cgroup: %w", err)
	}

	file, err := os.Open(filepath.Join(cgroupPath, "io.stat"))
	if err != nil {
		return nil, fmt.Errorf("failed to open io.stat: %w", err)
	}
	defer file.Close()

	stats, err := parseIOStat(file)
	if err != nil {
		return nil, err
	}
	stats.Timestamp = time.Now()
	return stats, nil
}

// parseIOStat sums every device line of the form
// "259:0 rbytes=X wbytes=Y rios=Z wios=W ...".
func parseIOStat(r io.Reader) (*IOStats, error) {
	stats := &IOStats{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		for _, field := range fields[1:] {
			key, raw, found := strings.Cut(field, "=")
			if !found {
				continue
			}
			value, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				continue
			}

			switch key {
			case "rbytes":
				stats.ReadBytes += value
			case "wbytes":
				stats.WriteBytes += value
			case "rios":
				stats.ReadOps += value
			case "wios":
				stats.WriteOps += value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading io.stat: %w", err)
	}
	return stats, nil
}

const mib = 1 << 20

// CalculateIOMetrics turns the counter deltas between two snapshots into
// rates. A counter that went backwards (container restart) reads as zero.
func CalculateIOMetrics(start, end *IOStats) IOMetrics {
	secs := end.Timestamp.Sub(start.Timestamp).Seconds()
	if secs <= 0 {
		return IOMetrics{}
	}

	rate := func(from, to uint64) float64 {
		if to < from {
			return 0
		}
		return float64(to-from) / secs
	}

	return IOMetrics{
		ReadIOPS:          rate(start.ReadOps, end.ReadOps),
		WriteIOPS:         rate(start.WriteOps, end.WriteOps),
		ReadThroughputMB:  rate(start.ReadBytes, end.ReadBytes) / mib,
		WriteThroughputMB: rate(start.WriteBytes, end.WriteBytes) / mib,
	}
}

func findCgroupPath(containerID string) (string, error) {
	candidates := []string{
		filepath.Join(CgroupRoot, "system.slice", "docker-"+containerID+".scope"),
		filepath.Join(CgroupRoot, "docker", containerID),
	}
	for _, path := range candidates {
		if _, err := os.Stat(filepath.Join(path, "io.stat")); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("could not find cgroup path for container ID %s", containerID)
}

func getContainerID(ctx context.Context, containerName string) (string, error) {
	out, err := exec.CommandContext(ctx, "docker", "ps", "--filter", "name="+containerName, "--format", "{{.ID}}", "--no-trunc").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run docker ps: %w", err)
	}

	containerID := strings.TrimSpace(string(out))
	if containerID == "" {
		return "", fmt.Errorf("container not found: %s", containerName)
	}
	// a name filter can match several containers
	containerID, _, _ = strings.Cut(containerID, "\n")
	return containerID, nil
}

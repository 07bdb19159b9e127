package monitoring

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type ResourceUsage struct {
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryUsedMB  float64 `json:"memoryUsedMb"`
	MemoryTotalMB float64 `json:"memoryTotalMb"`
	MemoryPercent float64 `json:"memoryPercent"`
	NumGoroutines int     `json:"numGoroutines"`
}

type DiskUsage struct {
	Path        string  `json:"path"`
	TotalGB     float64 `json:"totalGb"`
	FreeGB      float64 `json:"freeGb"`
	UsedPercent float64 `json:"usedPercent"`
}

// SystemMonitor samples process and disk health for the recordings volume
type SystemMonitor struct {
	recordingsRoot string
	proc           *process.Process
}

func NewSystemMonitor(recordingsRoot string) (*SystemMonitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process handle: %v", err)
	}
	return &SystemMonitor{recordingsRoot: recordingsRoot, proc: proc}, nil
}

// StartLogging logs resource usage at the given interval until the process exits
func (m *SystemMonitor) StartLogging(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			usage, err := m.ResourceUsage()
			if err != nil {
				log.Printf("Error getting resource usage: %v", err)
				continue
			}

			log.Printf("Resource Usage - CPU: %.2f%%, Memory: %.2f/%.2f MB (%.2f%%), Goroutines: %d",
				usage.CPUPercent,
				usage.MemoryUsedMB,
				usage.MemoryTotalMB,
				usage.MemoryPercent,
				usage.NumGoroutines)
		}
	}()
}

func (m *SystemMonitor) ResourceUsage() (ResourceUsage, error) {
	var usage ResourceUsage

	cpuPercent, err := m.proc.CPUPercent()
	if err != nil {
		return usage, fmt.Errorf("error getting CPU usage: %v", err)
	}
	usage.CPUPercent = cpuPercent

	virtualMem, err := mem.VirtualMemory()
	if err != nil {
		return usage, fmt.Errorf("error getting memory info: %v", err)
	}

	procMem, err := m.proc.MemoryInfo()
	if err != nil {
		return usage, fmt.Errorf("error getting process memory: %v", err)
	}

	usage.MemoryUsedMB = float64(procMem.RSS) / 1024 / 1024
	usage.MemoryTotalMB = float64(virtualMem.Total) / 1024 / 1024
	usage.MemoryPercent = float64(procMem.RSS) / float64(virtualMem.Total) * 100
	usage.NumGoroutines = runtime.NumGoroutine()

	return usage, nil
}

// RecordingsDiskUsage reports capacity of the volume holding the recordings
func (m *SystemMonitor) RecordingsDiskUsage() (DiskUsage, error) {
	stat, err := disk.Usage(m.recordingsRoot)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("error getting disk usage for %s: %v", m.recordingsRoot, err)
	}
	return DiskUsage{
		Path:        m.recordingsRoot,
		TotalGB:     float64(stat.Total) / 1024 / 1024 / 1024,
		FreeGB:      float64(stat.Free) / 1024 / 1024 / 1024,
		UsedPercent: stat.UsedPercent,
	}, nil
}

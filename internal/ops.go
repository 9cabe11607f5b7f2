package internal

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// SelfStats carries the technical metrics of this process for the ops
// endpoint: memory, CPU, and OS status.
type SelfStats struct {
	Pid        int     `json:"pid"`
	RSSBytes   uint64  `json:"rss_bytes"`
	CPUPercent float64 `json:"cpu_percent"`
	Status     string  `json:"status"`
}

func CollectSelfStats() (SelfStats, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return SelfStats{}, err
	}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		return SelfStats{}, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return SelfStats{}, err
	}
	status, err := p.Status()
	if err != nil {
		return SelfStats{}, err
	}

	return SelfStats{
		Pid:        os.Getpid(),
		RSSBytes:   memInfo.RSS,
		CPUPercent: cpuPercent,
		Status:     status,
	}, nil
}

// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics samples process and system resource usage during a
// conversion.
package metrics

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/zap"
)

// Snapshot is one resource usage sample.
type Snapshot struct {
	CPUPercent        float64
	ProcessCPUPercent float64
	ProcessRSS        uint64
	MemoryUsed        uint64
	MemoryTotal       uint64
	MemoryPercent     float64
	HeapInUse         uint64
	Goroutines        int
	Timestamp         time.Time
}

// Collector periodically samples and logs resource usage.
type Collector struct {
	interval time.Duration
	logger   *zap.Logger
	proc     *process.Process

	mu   sync.RWMutex
	last *Snapshot

	rss prometheus.GaugeFunc
	cpu prometheus.GaugeFunc
}

// NewCollector creates a collector sampling every interval. Intervals below
// one second are raised to one second.
func NewCollector(interval time.Duration, logger *zap.Logger) *Collector {
	// a missing process handle only drops the process fields
	proc, _ := process.NewProcess(int32(os.Getpid()))

	c := &Collector{
		interval: max(interval, time.Second),
		logger:   logger,
		proc:     proc,
	}

	c.rss = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "osmpq",
		Name:      "process_rss_bytes",
		Help:      "Resident set size at the last sample.",
	}, func() float64 { return float64(c.Last().ProcessRSS) })

	c.cpu = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "osmpq",
		Name:      "process_cpu_percent",
		Help:      "Process CPU usage at the last sample.",
	}, func() float64 { return c.Last().ProcessCPUPercent })

	return c
}

// Register exposes the last sample as gauges of reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, g := range []prometheus.Collector{c.rss, c.cpu} {
		if err := reg.Register(g); err != nil {
			return err
		}
	}

	return nil
}

// Run samples until ctx is done.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log(c.Sample())

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.log(c.Sample())
		}
	}
}

// Last returns the last sample, or an empty one before the first.
func (c *Collector) Last() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.last == nil {
		return Snapshot{}
	}

	return *c.last
}

// Sample takes and stores a snapshot. Sources that fail leave their fields
// zero.
func (c *Collector) Sample() Snapshot {
	s := Snapshot{
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now(),
	}

	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}

	if c.proc != nil {
		if pct, err := c.proc.Percent(0); err == nil {
			s.ProcessCPUPercent = pct
		}

		if info, err := c.proc.MemoryInfo(); err == nil {
			s.ProcessRSS = info.RSS
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		s.MemoryUsed = vmem.Used
		s.MemoryTotal = vmem.Total
		s.MemoryPercent = vmem.UsedPercent
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapInUse = ms.HeapInuse

	c.mu.Lock()
	c.last = &s
	c.mu.Unlock()

	return s
}

func (c *Collector) log(s Snapshot) {
	c.logger.Info("system metrics",
		zap.Float64("sys_cpu", s.CPUPercent),
		zap.Float64("proc_cpu", s.ProcessCPUPercent),
		zap.String("rss", humanize.IBytes(s.ProcessRSS)),
		zap.String("heap", humanize.IBytes(s.HeapInUse)),
		zap.Float64("mem_pct", s.MemoryPercent),
		zap.String("mem_used", humanize.IBytes(s.MemoryUsed)),
		zap.Int("goroutines", s.Goroutines))
}

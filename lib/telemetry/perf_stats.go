package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/process"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("pathwise.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var liveObjectsGauge, _ = meter.Int64Gauge("live_objects")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// InstrumentPerfStats records process gauges every 30 seconds until ctx
// is done.
func InstrumentPerfStats(ctx context.Context) {
	go func() {
		var memStats runtime.MemStats
		ticker := time.NewTicker(time.Second * 30)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				runtime.ReadMemStats(&memStats)

				cpuUsage, err := cpu.PercentWithContext(ctx, time.Second*5, false)
				if err == nil && len(cpuUsage) > 0 {
					cpuGauge.Record(ctx, cpuUsage[0])
				} else if err != nil {
					slog.Debug("failed to read cpu usage", "err", err)
				}

				memoryGauge.Record(ctx, int64(memStats.Alloc/1_000_000))
				liveObjectsGauge.Record(ctx, int64(memStats.Mallocs)-int64(memStats.Frees))
				goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ProcessStats is a point in time snapshot used by health endpoints.
type ProcessStats struct {
	// bytes
	Rss        uint64
	HeapTotal  uint64
	HeapUsed   uint64
	External   uint64
	Goroutines int
	CpuPercent float64
	HostUptime time.Duration
	GoVersion  string
}

// ReadProcessStats reads runtime memory stats and, where the platform
// allows it, rss, cpu and host uptime through gopsutil. gopsutil failures
// leave the corresponding fields zero.
func ReadProcessStats(ctx context.Context) ProcessStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := ProcessStats{
		Rss:        mem.Sys,
		HeapTotal:  mem.HeapSys,
		HeapUsed:   mem.HeapAlloc,
		External:   mem.Sys - mem.HeapSys,
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err == nil {
		info, err := proc.MemoryInfoWithContext(ctx)
		if err == nil {
			stats.Rss = info.RSS
		}
		percent, err := proc.CPUPercentWithContext(ctx)
		if err == nil {
			stats.CpuPercent = percent
		}
	}

	uptime, err := host.UptimeWithContext(ctx)
	if err == nil {
		stats.HostUptime = time.Duration(uptime) * time.Second
	}
	return stats
}

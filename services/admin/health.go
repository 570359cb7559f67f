package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pathwise-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Probe is a dependent service shown on the health page. A probe without
// a url describes a component running in this process and is always
// online.
type Probe struct {
	Name string `json:"name"`
	Url  string `json:"url"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type ServiceHealth struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	LastCheck time.Time `json:"lastCheck"`
}

type probeRecord struct {
	checks    int
	successes int
}

// Monitor checks probes and remembers the share of successful checks.
type Monitor struct {
	client  *resty.Client
	probes  []Probe
	lock    sync.Mutex
	records map[string]*probeRecord
}

func NewMonitor(client *resty.Client, probes []Probe) *Monitor {
	if client == nil {
		client = resty.New().SetTimeout(5 * time.Second)
	}
	return &Monitor{
		client:  client,
		probes:  probes,
		records: map[string]*probeRecord{},
	}
}

func (m *Monitor) check(ctx context.Context, probe Probe) bool {
	if probe.Url == "" {
		return true
	}
	res, err := m.client.R().SetContext(ctx).Get(probe.Url)
	if err != nil {
		slog.DebugContext(ctx, "health probe failed", "name", probe.Name, "err", err)
		return false
	}
	return res.IsSuccess()
}

func (m *Monitor) record(name string, ok bool) float64 {
	m.lock.Lock()
	defer m.lock.Unlock()

	rec, exists := m.records[name]
	if !exists {
		rec = &probeRecord{}
		m.records[name] = rec
	}
	rec.checks++
	if ok {
		rec.successes++
	}
	return float64(rec.successes) / float64(rec.checks) * 100
}

// Check probes every service concurrently.
func (m *Monitor) Check(ctx context.Context, now time.Time) []ServiceHealth {
	out := make([]ServiceHealth, len(m.probes))

	var g errgroup.Group
	for i, probe := range m.probes {
		g.Go(func() error {
			ok := m.check(ctx, probe)
			status := StatusOnline
			if !ok {
				status = StatusOffline
			}
			out[i] = ServiceHealth{
				Name:      probe.Name,
				Status:    status,
				Uptime:    fmt.Sprintf("%.1f%%", m.record(probe.Name, ok)),
				LastCheck: now,
			}
			return nil
		})
	}
	g.Wait()
	return out
}

type DatabaseHealth struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

type MemoryUsage struct {
	Rss       uint64 `json:"rss"`
	HeapTotal uint64 `json:"heapTotal"`
	HeapUsed  uint64 `json:"heapUsed"`
	External  uint64 `json:"external"`
}

type ServerHealth struct {
	Status string `json:"status"`
	// seconds
	Uptime     float64     `json:"uptime"`
	Memory     MemoryUsage `json:"memory"`
	Version    string      `json:"version"`
	Goroutines int         `json:"goroutines"`
	CpuPercent float64     `json:"cpuPercent"`
	// seconds
	HostUptime float64 `json:"hostUptime"`
}

type Health struct {
	Database DatabaseHealth  `json:"database"`
	Server   ServerHealth    `json:"server"`
	Services []ServiceHealth `json:"services"`
}

func (s Service) Health(ctx context.Context) Health {
	ctx, span := tracer.Start(ctx, "Health")
	defer span.End()

	now := s.now()
	health := Health{
		Database: DatabaseHealth{Status: "connected", Name: s.options.DatabaseName},
	}

	var g errgroup.Group
	g.Go(func() error {
		err := s.db.PingContext(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "database ping failed")
			health.Database.Status = "disconnected"
		}
		return nil
	})
	g.Go(func() error {
		stats := telemetry.ReadProcessStats(ctx)
		health.Server = ServerHealth{
			Status: "running",
			Uptime: now.Sub(s.started).Seconds(),
			Memory: MemoryUsage{
				Rss:       stats.Rss,
				HeapTotal: stats.HeapTotal,
				HeapUsed:  stats.HeapUsed,
				External:  stats.External,
			},
			Version:    stats.GoVersion,
			Goroutines: stats.Goroutines,
			CpuPercent: stats.CpuPercent,
			HostUptime: stats.HostUptime.Seconds(),
		}
		return nil
	})
	g.Go(func() error {
		health.Services = s.monitor.Check(ctx, now)
		return nil
	})
	g.Wait()
	return health
}

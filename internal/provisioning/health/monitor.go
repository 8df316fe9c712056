package health

import (
	"context"
	"sync"
	"time"

	"github.com/minhvu-dev/provisioner/internal/infra/storage"
)

// CheckFunc probes one dependency (cache ping, database ping).
type CheckFunc func(ctx context.Context) error

// Monitor aggregates health status from the engine's dependencies.
type Monitor struct {
	checks  map[string]CheckFunc
	records storage.RecordRepository

	lastCheck  time.Time
	lastReport *Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. records may be nil.
func NewMonitor(checks map[string]CheckFunc, records storage.RecordRepository) *Monitor {
	return &Monitor{checks: checks, records: records}
}

// CheckHealth probes all registered dependencies. Results are cached for a
// short window to avoid hammering them on every request.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport != nil {
		return *m.lastReport
	}

	report := Report{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
	}

	for name, check := range m.checks {
		component := ComponentHealth{Name: name, Status: StatusHealthy}
		if err := check(ctx); err != nil {
			component.Status = StatusDegraded
			component.Error = err.Error()
			report.SystemStatus = StatusDegraded
		}
		report.Components[name] = component
	}

	if m.records != nil {
		if count, err := m.records.Count(ctx); err == nil {
			report.LiveRecords = count
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

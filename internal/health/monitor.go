package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/walletview/internal/session"
)

// SessionSource exposes the active session.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// TipReader is implemented by chain clients that can report the chain tip.
type TipReader interface {
	GetTipBlockNumber(ctx context.Context) (uint64, error)
}

// CheckFunc probes one dependency.
type CheckFunc func(ctx context.Context) error

// Monitor aggregates health status from the session and its dependencies.
type Monitor struct {
	sess     SessionSource
	checks   map[string]CheckFunc
	interval time.Duration

	mu         sync.Mutex
	lastCheck  time.Time
	lastReport *HealthReport
}

// NewMonitor creates a new health monitor.
func NewMonitor(sess SessionSource) *Monitor {
	return &Monitor{
		sess:     sess,
		checks:   make(map[string]CheckFunc),
		interval: 10 * time.Second,
	}
}

// AddCheck registers a dependency probe under name.
func (m *Monitor) AddCheck(name string, fn CheckFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = fn
	m.lastReport = nil
}

// CheckHealth probes the chain and every registered dependency.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Reports are cached so a polling load balancer does not hammer the node.
	if m.lastReport != nil && time.Since(m.lastCheck) < m.interval {
		return *m.lastReport
	}

	snap := m.sess.Snapshot()
	report := HealthReport{
		SystemStatus: StatusHealthy,
		Network: NetworkHealth{
			Network: string(snap.Network),
			Status:  StatusHealthy,
			Session: string(snap.State),
		},
		Components: make(map[string]ComponentHealth, len(m.checks)),
	}

	if tr, ok := snap.Client.(TipReader); ok {
		tip, err := tr.GetTipBlockNumber(ctx)
		if err != nil {
			report.Network.Status = StatusCritical
			report.Network.Error = err.Error()
		} else {
			report.Network.TipBlock = tip
		}
	} else if snap.Client == nil {
		report.Network.Status = StatusCritical
		report.Network.Error = "no chain client"
	}

	for name, check := range m.checks {
		c := ComponentHealth{Status: StatusHealthy}
		if err := check(ctx); err != nil {
			c.Status = StatusDegraded
			c.Error = err.Error()
		}
		report.Components[name] = c
	}

	// Worst case wins.
	report.SystemStatus = report.Network.Status
	if report.SystemStatus == StatusHealthy {
		for _, c := range report.Components {
			if c.Status != StatusHealthy {
				report.SystemStatus = StatusDegraded
				break
			}
		}
	}

	m.lastCheck = time.Now()
	m.lastReport = &report
	return report
}

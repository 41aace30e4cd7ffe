package provider

import (
	"net/http"
	"testing"
	"time"
)

func fixedClock(m *ProviderMonitor, at time.Time) *time.Time {
	now := at
	m.now = func() time.Time { return now }
	return &now
}

func TestMonitorAverageLatency(t *testing.T) {
	m := NewProviderMonitor()

	m.RecordRequest(100 * time.Millisecond)
	m.RecordRequest(300 * time.Millisecond)

	if got := m.GetAverageLatency(); got != 200*time.Millisecond {
		t.Errorf("Expected 200ms average, got %v", got)
	}
	if m.CheckProviderStatus() != StatusHealthy {
		t.Errorf("Expected healthy status")
	}
}

func TestMonitorLatencyWindow(t *testing.T) {
	m := NewProviderMonitor()

	for i := 0; i < 150; i++ {
		m.RecordRequest(5 * time.Second)
	}
	if m.samples != latencyWindow {
		t.Errorf("Expected window of %d, got %d", latencyWindow, m.samples)
	}
	if m.CheckProviderStatus() != StatusDegraded {
		t.Errorf("Expected degraded status for slow endpoint")
	}

	// Fast answers push the slow ones out of the window.
	for i := 0; i < latencyWindow; i++ {
		m.RecordRequest(10 * time.Millisecond)
	}
	if m.CheckProviderStatus() != StatusHealthy {
		t.Errorf("Expected healthy once the window refilled, got %v", m.CheckProviderStatus())
	}
}

func TestMonitorThrottle(t *testing.T) {
	m := NewProviderMonitor()
	now := fixedClock(m, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	m.RecordThrottle(http.StatusTooManyRequests, "30")
	if m.CheckProviderStatus() != StatusThrottled {
		t.Errorf("Expected throttled status after 429")
	}
	if d := m.GetRetryAfter(); d != 30*time.Second {
		t.Errorf("Expected retry-after of 30s, got %v", d)
	}

	*now = now.Add(31 * time.Second)
	if m.CheckProviderStatus() != StatusHealthy {
		t.Errorf("Expected healthy after the retry window")
	}

	m.RecordThrottle(http.StatusForbidden, "")
	if m.CheckProviderStatus() != StatusBlocked {
		t.Errorf("Expected blocked status after 403")
	}
	// A 429 does not shorten a block.
	m.RecordThrottle(http.StatusTooManyRequests, "1")
	if m.CheckProviderStatus() != StatusBlocked {
		t.Errorf("Expected block to hold, got %v", m.CheckProviderStatus())
	}
}

func TestMonitorRetryAfterDate(t *testing.T) {
	m := NewProviderMonitor()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fixedClock(m, start)

	m.RecordThrottle(http.StatusTooManyRequests, start.Add(2*time.Minute).Format(http.TimeFormat))
	if d := m.GetRetryAfter(); d != 2*time.Minute {
		t.Errorf("Expected retry-after of 2m, got %v", d)
	}

	m.RecordThrottle(http.StatusTooManyRequests, "soon")
	if d := m.GetRetryAfter(); d != defaultThrottle {
		t.Errorf("Expected default throttle window, got %v", d)
	}
}

func TestMonitorDetectThrottlePattern(t *testing.T) {
	m := NewProviderMonitor()
	for _, msg := range []string{"Too Many Requests", "API rate limit reached", "Request throttled"} {
		if !m.DetectThrottlePattern(msg) {
			t.Errorf("expected throttle pattern match for %q", msg)
		}
	}
	if m.DetectThrottlePattern("invalid params") {
		t.Error("unexpected throttle pattern match")
	}
}

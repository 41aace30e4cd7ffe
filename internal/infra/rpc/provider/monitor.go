package provider

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProviderStatus is how an endpoint has been behaving lately.
type ProviderStatus int

const (
	StatusHealthy ProviderStatus = iota
	StatusDegraded
	StatusThrottled
	StatusBlocked
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

const (
	latencyWindow     = 64
	slowResponse      = 3 * time.Second
	defaultThrottle   = time.Minute
	blockedCooldown   = 10 * time.Minute
	minSamplesForSlow = 10
)

// Public explorers and the BTC assets API phrase rate limits differently.
var throttlePhrases = []string{
	"rate limit",
	"too many requests",
	"request limit",
	"throttled",
}

// ProviderMonitor tracks latency and throttling for one endpoint.
type ProviderMonitor struct {
	mu sync.RWMutex

	latencies [latencyWindow]time.Duration
	next      int
	samples   int

	status ProviderStatus
	until  time.Time
	now    func() time.Time
}

// NewProviderMonitor creates a monitor for a fresh endpoint.
func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{now: time.Now}
}

// RecordRequest records a successful request with its latency.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.latencies[pm.next] = latency
	pm.next = (pm.next + 1) % latencyWindow
	if pm.samples < latencyWindow {
		pm.samples++
	}
}

// RecordThrottle records a 429 or 403 answer. retryAfter is the raw
// Retry-After header, either delta seconds or an HTTP date.
func (pm *ProviderMonitor) RecordThrottle(statusCode int, retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	now := pm.now()
	switch statusCode {
	case http.StatusTooManyRequests:
		if pm.status == StatusBlocked && now.Before(pm.until) {
			return
		}
		pm.status = StatusThrottled
		pm.until = now.Add(parseRetryAfter(retryAfter, now))
	case http.StatusForbidden:
		pm.status = StatusBlocked
		pm.until = now.Add(blockedCooldown)
	}
}

func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return defaultThrottle
}

// DetectThrottlePattern reports whether an error body reads like a rate limit.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	msg := strings.ToLower(message)
	for _, phrase := range throttlePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// CheckProviderStatus returns the current status of the endpoint.
func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if pm.status != StatusHealthy && pm.now().Before(pm.until) {
		return pm.status
	}
	if pm.samples >= minSamplesForSlow && pm.averageLatency() > slowResponse {
		return StatusDegraded
	}
	return StatusHealthy
}

// GetRetryAfter returns how long the endpoint should be left alone.
func (pm *ProviderMonitor) GetRetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if remaining := pm.until.Sub(pm.now()); remaining > 0 {
		return remaining
	}
	return 0
}

// GetAverageLatency returns the mean of the recent latency window.
func (pm *ProviderMonitor) GetAverageLatency() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.averageLatency()
}

func (pm *ProviderMonitor) averageLatency() time.Duration {
	if pm.samples == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range pm.latencies[:pm.samples] {
		total += lat
	}
	return total / time.Duration(pm.samples)
}

// Package routing handles provider selection, failover and retry.
//
// This package contains:
//   - Router: interface for provider selection and health tracking
//   - DefaultRouter: ordered selection that skips tripped providers
//   - Retry: retry logic with exponential backoff and failover
//   - Breaker: circuit breaker for REST backends
package routing

import (
	"sync"
	"time"

	"github.com/vietddude/walletview/internal/infra/rpc/provider"
)

// Router handles provider selection and health tracking.
type Router interface {
	// AddProvider registers a provider under a pool key (e.g. "ckb-mainnet")
	AddProvider(pool string, p provider.Provider)

	// Candidates returns the providers of a pool to try, in order
	Candidates(pool string) []provider.Provider

	// RecordSuccess tracks successful calls
	RecordSuccess(providerName string, latency time.Duration)

	// RecordFailure tracks failed calls
	RecordFailure(providerName string, err error)
}

type providerHealth struct {
	lastFailureAt    time.Time
	consecutiveFails int
	circuitOpen      bool
}

// DefaultRouter keeps registration order and trips a provider after
// consecutive failures.
type DefaultRouter struct {
	mu       sync.RWMutex
	pools    map[string][]provider.Provider
	health   map[string]*providerHealth
	maxFails int
	cooldown time.Duration
}

// NewRouter creates a new router.
func NewRouter() *DefaultRouter {
	return &DefaultRouter{
		pools:    make(map[string][]provider.Provider),
		health:   make(map[string]*providerHealth),
		maxFails: 5,
		cooldown: 30 * time.Second,
	}
}

// AddProvider registers a provider for a pool.
func (r *DefaultRouter) AddProvider(pool string, p provider.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pools[pool] = append(r.pools[pool], p)
	r.health[p.GetName()] = &providerHealth{}
}

// Candidates returns the usable providers of a pool in registration order.
// When none is usable the first one is returned alone so callers still get
// a real error from the endpoint.
func (r *DefaultRouter) Candidates(pool string) []provider.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := r.pools[pool]
	if len(providers) == 0 {
		return nil
	}

	out := make([]provider.Provider, 0, len(providers))
	for _, p := range providers {
		if r.usable(p) {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return providers[:1:1]
	}
	return out
}

// usable must be called with mu held.
func (r *DefaultRouter) usable(p provider.Provider) bool {
	if !p.IsAvailable() {
		return false
	}
	h, ok := r.health[p.GetName()]
	if !ok || !h.circuitOpen {
		return true
	}
	// Half-open after cooldown
	return time.Since(h.lastFailureAt) > r.cooldown
}

// RecordSuccess closes the provider's circuit.
func (r *DefaultRouter) RecordSuccess(providerName string, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.health[providerName]
	if !ok {
		return
	}
	h.consecutiveFails = 0
	h.circuitOpen = false
}

// RecordFailure counts a failure and opens the circuit after maxFails in a row.
func (r *DefaultRouter) RecordFailure(providerName string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.health[providerName]
	if !ok {
		return
	}
	h.lastFailureAt = time.Now()
	h.consecutiveFails++
	if h.consecutiveFails >= r.maxFails {
		h.circuitOpen = true
	}
}

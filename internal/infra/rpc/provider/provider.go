// Package provider implements transport endpoints for node RPC and REST APIs.
//
// This package contains:
//   - Provider interface: core abstraction for an endpoint
//   - HTTPProvider: JSON-RPC 2.0 and REST over HTTP
//   - ProviderMonitor: latency and throttle tracking
package provider

import (
	"context"
	"time"
)

// Operation represents a single request against a provider.
type Operation struct {
	// Name is the JSON-RPC method, or the path relative to the endpoint for REST.
	Name string

	// Params for JSON-RPC calls ([]any) or the REST request body.
	Params any

	// IsREST indicates a REST call instead of JSON-RPC.
	IsREST bool

	// RESTMethod is the HTTP method for REST calls. Defaults to GET.
	RESTMethod string

	// Headers are extra request headers, e.g. Accept for JSON:API endpoints.
	Headers map[string]string
}

// Provider defines the core interface for an endpoint.
type Provider interface {
	// GetName returns provider identifier
	GetName() string

	// GetHealth returns current health metrics
	GetHealth() HealthStatus

	// IsAvailable checks if the provider is healthy enough to use
	IsAvailable() bool

	// Execute performs the operation with monitoring and error handling
	Execute(ctx context.Context, op Operation) (any, error)

	// Close cleans up resources
	Close() error
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

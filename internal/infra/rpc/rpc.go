// Package rpc provides a resilient client for node RPC and REST backends.
//
// # Quick Start
//
//	router := rpc.NewRouter()
//	router.AddProvider("mainnet", rpc.NewHTTPProvider("ckb-public", url, 30*time.Second))
//
//	client := rpc.NewClient("mainnet", router, rpc.DefaultRetryConfig)
//	result, err := client.Call(ctx, "get_tip_block_number", nil)
//
// # Package Structure
//
//   - provider/ - Provider implementations (HTTPProvider, monitoring)
//   - routing/  - Provider selection, failover, retry and circuit breaking
//
// Most types are re-exported at the root level for convenience.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/walletview/internal/infra/rpc/provider"
	"github.com/vietddude/walletview/internal/infra/rpc/routing"
)

// Provider is the core interface for endpoints.
type Provider = provider.Provider

// Operation is one request against a provider.
type Operation = provider.Operation

// Router selects providers per pool.
type Router = routing.Router

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

var DefaultRetryConfig = routing.DefaultRetryConfig

// NewHTTPProvider creates a JSON-RPC / REST provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *provider.HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// NewRouter creates a router that skips tripped providers.
func NewRouter() *routing.DefaultRouter {
	return routing.NewRouter()
}

// Client is what application layers use to talk to a pool of providers.
type Client struct {
	router Router
	pool   string
	retry  RetryConfig
}

// NewClient creates a client bound to one provider pool.
func NewClient(pool string, router Router, retry RetryConfig) *Client {
	return &Client{
		router: router,
		pool:   pool,
		retry:  retry,
	}
}

// Pool returns the pool key the client is bound to.
func (c *Client) Pool() string {
	return c.pool
}

// Call makes a JSON-RPC call with failover.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	return c.Execute(ctx, NewHTTPOperation(method, params))
}

// Execute runs any operation with failover.
func (c *Client) Execute(ctx context.Context, op Operation) (any, error) {
	return routing.ExecuteWithFailover(ctx, c.router, c.pool, op, c.retry)
}

// CallInto makes a JSON-RPC call and decodes the result into out.
func (c *Client) CallInto(ctx context.Context, method string, params []any, out any) error {
	res, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	return Decode(res, out)
}

// Decode converts a generic JSON result into a typed value.
func Decode(result any, out any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vietddude/walletview/internal/metrics"
)

// HTTPProvider implements Provider for JSON-RPC and REST over HTTP.
type HTTPProvider struct {
	name       string
	endpoint   string
	httpClient *http.Client
	nextID     atomic.Uint64

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewHTTPProvider creates a new HTTP-based provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// Execute dispatches op as a REST request or a JSON-RPC call.
func (p *HTTPProvider) Execute(ctx context.Context, op Operation) (any, error) {
	if op.IsREST {
		return p.rest(ctx, op)
	}

	var params []any
	switch v := op.Params.(type) {
	case nil:
		params = []any{}
	case []any:
		params = v
	default:
		params = []any{v}
	}
	return p.Call(ctx, op.Name, params)
}

// Call makes a single JSON-RPC 2.0 call.
func (p *HTTPProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	if params == nil {
		params = []any{}
	}
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      p.nextID.Add(1),
	}

	body, latency, err := p.do(ctx, method, http.MethodPost, p.endpoint, reqBody, nil)
	if err != nil {
		return nil, err
	}

	var rpcResp struct {
		Result any             `json:"result"`
		Error  *map[string]any `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		p.recordFailure(method, "parse")
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if rpcResp.Error != nil {
		errMsg := "unknown error"
		if msg, ok := (*rpcResp.Error)["message"].(string); ok {
			errMsg = msg
		}
		code := ""
		if c, ok := (*rpcResp.Error)["code"].(float64); ok {
			code = fmt.Sprintf(" (%d)", int64(c))
		}

		p.recordFailure(method, "rpc")
		if p.Monitor.DetectThrottlePattern(errMsg) {
			return nil, fmt.Errorf("throttle in rpc error: %s", errMsg)
		}
		return nil, fmt.Errorf("rpc error%s: %s", code, errMsg)
	}

	p.recordSuccess(method, latency)
	return rpcResp.Result, nil
}

func (p *HTTPProvider) rest(ctx context.Context, op Operation) (any, error) {
	method := op.RESTMethod
	if method == "" {
		method = http.MethodGet
	}
	url := p.endpoint + "/" + strings.TrimLeft(op.Name, "/")
	label := restLabel(op.Name)

	var payload any
	if op.Params != nil && method != http.MethodGet {
		payload = op.Params
	}

	body, latency, err := p.do(ctx, label, method, url, payload, op.Headers)
	if err != nil {
		return nil, err
	}

	var result any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			p.recordFailure(label, "parse")
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}
	p.recordSuccess(label, latency)
	return result, nil
}

// restLabel keeps metric labels bounded by dropping path parameters.
func restLabel(path string) string {
	path = strings.TrimLeft(path, "/")
	if i := strings.IndexAny(path, "/?"); i >= 0 {
		return path[:i]
	}
	return path
}

// do sends one request and returns the body of a 200 response.
func (p *HTTPProvider) do(
	ctx context.Context,
	label, method, url string,
	payload any,
	headers map[string]string,
) ([]byte, time.Duration, error) {
	start := time.Now()

	if status := p.Monitor.CheckProviderStatus(); status == StatusThrottled || status == StatusBlocked {
		return nil, 0, fmt.Errorf("provider %s, retry after: %v", status, p.Monitor.GetRetryAfter())
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			p.recordFailure(label, "marshal")
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		p.recordFailure(label, "request")
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordFailure(label, "network")
		return nil, 0, fmt.Errorf("http call: %w", err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	// Rate limit detection
	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		p.Monitor.RecordThrottle(http.StatusTooManyRequests, retryAfter)
		p.recordFailure(label, "rate_limit")
		return nil, 0, fmt.Errorf("rate limited (429), retry after: %s", retryAfter)
	}

	// IP blocked detection
	if resp.StatusCode == http.StatusForbidden {
		p.Monitor.RecordThrottle(http.StatusForbidden, "")
		p.recordFailure(label, "blocked")
		return nil, 0, fmt.Errorf("ip blocked (403)")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure(label, "read")
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		p.recordFailure(label, "status")
		if p.Monitor.DetectThrottlePattern(string(body)) {
			return nil, 0, fmt.Errorf("throttle detected in response: %s", string(body))
		}
		return nil, 0, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	p.Monitor.RecordRequest(latency)
	return body, latency, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

// IsAvailable checks if the provider is available.
func (p *HTTPProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	return status == StatusHealthy || status == StatusDegraded
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(method string, latency time.Duration) {
	metrics.RPCCallsTotal.WithLabelValues(p.name, method).Inc()
	metrics.RPCLatency.WithLabelValues(p.name, method).Observe(latency.Seconds())

	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
}

func (p *HTTPProvider) recordFailure(method, errorType string) {
	metrics.RPCCallsTotal.WithLabelValues(p.name, method).Inc()
	metrics.RPCErrorsTotal.WithLabelValues(p.name, errorType).Inc()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}

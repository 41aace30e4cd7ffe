package routing

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vietddude/walletview/internal/infra/rpc/provider"
)

// RetryConfig defines retry behavior.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig makes a single attempt per provider. Feeds surface
// failures to the user instead of retrying behind their back.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     1,
	InitialDelay:    500 * time.Millisecond,
	MaxDelay:        10 * time.Second,
	BackoffMultiple: 2.0,
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFailover
	ActionFatal
)

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}

	s := err.Error()
	sLower := strings.ToLower(s)

	// -32700: Parse error, -32600: Invalid Request, -32601: Method not found, -32602: Invalid params
	if strings.Contains(s, "-32700") || strings.Contains(s, "-32600") ||
		strings.Contains(s, "-32601") || strings.Contains(s, "-32602") {
		return ActionFatal
	}

	// 4xx other than throttling means the request itself is wrong
	if strings.Contains(s, "http 400") || strings.Contains(s, "http 404") ||
		strings.Contains(s, "http 422") {
		return ActionFatal
	}

	if strings.Contains(s, "429") || strings.Contains(sLower, "too many requests") ||
		strings.Contains(s, "403") || strings.Contains(sLower, "forbidden") ||
		strings.Contains(sLower, "quota") || strings.Contains(sLower, "unauthorized") ||
		strings.Contains(sLower, "rate limit") || strings.Contains(sLower, "throttle") {
		return ActionFailover
	}

	// Network, 5xx, etc
	return ActionRetry
}

// ExecuteWithRetry executes op against one provider with exponential backoff.
func ExecuteWithRetry(
	ctx context.Context,
	p provider.Provider,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	attempts := config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := p.Execute(ctx, op)
		if err == nil {
			return result, nil
		}

		lastErr = err

		action := ClassifyError(err)
		if action == ActionFatal || action == ActionFailover {
			return nil, err
		}

		if attempt == attempts-1 {
			break
		}

		delay := calculateBackoff(attempt, config)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if attempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// ExecuteWithFailover tries each candidate provider of a pool in turn.
// Providers whose circuit is open are skipped.
func ExecuteWithFailover(
	ctx context.Context,
	router Router,
	pool string,
	op provider.Operation,
	config RetryConfig,
) (any, error) {
	providers := router.Candidates(pool)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers for %s", pool)
	}

	var lastErr error
	for _, p := range providers {
		start := time.Now()
		result, err := ExecuteWithRetry(ctx, p, op, config)
		if err == nil {
			router.RecordSuccess(p.GetName(), time.Since(start))
			return result, nil
		}

		lastErr = err
		router.RecordFailure(p.GetName(), err)

		if ClassifyError(err) == ActionFatal || ctx.Err() != nil {
			return nil, err
		}
	}

	if len(providers) == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}

func calculateBackoff(attempt int, config RetryConfig) time.Duration {
	delay := float64(config.InitialDelay) * math.Pow(config.BackoffMultiple, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

package sources

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/rpc"
	"github.com/vietddude/walletview/internal/infra/rpc/routing"
)

// Backend is a rate limited, circuit broken REST API with one provider
// pool per network.
type Backend struct {
	name    string
	pools   map[domain.Network]*rpc.Client
	headers map[string]string
	breaker *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewBackend creates a Backend. ratePerSecond <= 0 disables rate limiting.
func NewBackend(name string, pools map[domain.Network]*rpc.Client, ratePerSecond int, headers map[string]string) *Backend {
	limiter := ratelimit.NewUnlimited()
	if ratePerSecond > 0 {
		limiter = ratelimit.New(ratePerSecond)
	}
	return &Backend{
		name:    name,
		pools:   pools,
		headers: headers,
		breaker: routing.NewBreaker(name, routing.DefaultBreakerConfig),
		limiter: limiter,
	}
}

func (b *Backend) Name() string {
	return b.name
}

// Get fetches path on network and decodes the JSON body into out.
func (b *Backend) Get(ctx context.Context, network domain.Network, path string, out any) error {
	client, ok := b.pools[network]
	if !ok {
		return fmt.Errorf("%s: no endpoint configured for %s", b.name, network)
	}

	b.limiter.Take()
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return client.Execute(ctx, rpc.NewGetOperation(path, b.headers))
	})
	if err != nil {
		return fmt.Errorf("%s: %w", b.name, err)
	}
	if res == nil {
		return nil
	}
	return rpc.Decode(res, out)
}

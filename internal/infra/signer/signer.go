// Package signer talks to an external wallet that exposes a JSON-RPC
// signing endpoint. Keys never leave the wallet.
package signer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
	"github.com/vietddude/walletview/internal/infra/rpc"
	"github.com/vietddude/walletview/internal/session"
)

const (
	methodConnect            = "signer_connect"
	methodDisconnect         = "signer_disconnect"
	methodInternalAddress    = "signer_getInternalAddress"
	methodRecommendedAddress = "signer_getRecommendedAddress"
	methodAddresses          = "signer_getAddresses"
	methodSendTransaction    = "signer_sendTransaction"
	pool                     = "signer"
)

// Config locates the remote signer.
type Config struct {
	URL     string
	Wallet  string
	Timeout time.Duration
}

// Connector implements session.Connector against a remote signer.
type Connector struct {
	cfg    Config
	client *rpc.Client
}

// NewConnector builds a connector. With an empty URL Detect reports false.
func NewConnector(cfg Config) *Connector {
	c := &Connector{cfg: cfg}
	if cfg.URL == "" {
		return c
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	router := rpc.NewRouter()
	router.AddProvider(pool, rpc.NewHTTPProvider("signer", cfg.URL, cfg.Timeout))
	c.client = rpc.NewClient(pool, router, rpc.DefaultRetryConfig)
	return c
}

func (c *Connector) Detect() bool {
	return c.client != nil
}

type connectResult struct {
	Wallet string `json:"wallet"`
}

// Connect opens a session on network and returns its signer.
func (c *Connector) Connect(ctx context.Context, network domain.Network) (session.Signer, session.Wallet, error) {
	if c.client == nil {
		return nil, session.Wallet{}, session.ErrConnectionUnavailable
	}

	var res connectResult
	if err := c.client.CallInto(ctx, methodConnect, []any{string(network)}, &res); err != nil {
		return nil, session.Wallet{}, err
	}
	name := res.Wallet
	if name == "" {
		name = c.cfg.Wallet
	}
	slog.Debug("Remote signer connected", "wallet", name, "network", network)
	return &Signer{client: c.client, network: network}, session.Wallet{Name: name}, nil
}

func (c *Connector) Disconnect() error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.client.Call(ctx, methodDisconnect, nil)
	return err
}

// Signer forwards signing requests to the remote wallet.
type Signer struct {
	client  *rpc.Client
	network domain.Network
}

func (s *Signer) callString(ctx context.Context, method string) (string, error) {
	var out string
	if err := s.client.CallInto(ctx, method, nil, &out); err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func (s *Signer) GetInternalAddress(ctx context.Context) (string, error) {
	return s.callString(ctx, methodInternalAddress)
}

func (s *Signer) GetRecommendedAddress(ctx context.Context) (string, error) {
	return s.callString(ctx, methodRecommendedAddress)
}

func (s *Signer) GetAddresses(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.client.CallInto(ctx, methodAddresses, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", methodAddresses, err)
	}
	return out, nil
}

// SendTransaction asks the wallet to sign and broadcast tx and returns its hash.
func (s *Signer) SendTransaction(ctx context.Context, tx *ckb.Transaction) (string, error) {
	return s.callStringWith(ctx, methodSendTransaction, tx)
}

func (s *Signer) callStringWith(ctx context.Context, method string, arg any) (string, error) {
	var out string
	if err := s.client.CallInto(ctx, method, []any{arg}, &out); err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

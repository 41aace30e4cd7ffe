// Package sessiontest provides in-memory wallet fakes.
package sessiontest

import (
	"context"
	"sync"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
	"github.com/vietddude/walletview/internal/session"
)

// Signer is a scripted session.Signer.
type Signer struct {
	Internal    string
	Recommended string
	List        []string

	// Gate, when set, blocks GetAddresses until closed.
	Gate chan struct{}
	// AddressesErr, when set, fails GetAddresses.
	AddressesErr error
	// TxHash and SendErr are returned by SendTransaction.
	TxHash  string
	SendErr error

	mu   sync.Mutex
	sent []*ckb.Transaction
}

func (s *Signer) GetInternalAddress(ctx context.Context) (string, error) {
	return s.Internal, nil
}

func (s *Signer) GetRecommendedAddress(ctx context.Context) (string, error) {
	return s.Recommended, nil
}

func (s *Signer) GetAddresses(ctx context.Context) ([]string, error) {
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.AddressesErr != nil {
		return nil, s.AddressesErr
	}
	return s.List, nil
}

func (s *Signer) SendTransaction(ctx context.Context, tx *ckb.Transaction) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, tx)
	return s.TxHash, s.SendErr
}

// Sent returns the transactions passed to SendTransaction.
func (s *Signer) Sent() []*ckb.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*ckb.Transaction(nil), s.sent...)
}

// Connector hands out signers per network.
type Connector struct {
	Present bool
	Wallet  session.Wallet
	// Signers returns the signer for a connect on network.
	Signers func(network domain.Network) *Signer
	Err     error

	mu          sync.Mutex
	connects    []domain.Network
	disconnects int
}

func (c *Connector) Detect() bool {
	return c.Present
}

func (c *Connector) Connect(ctx context.Context, network domain.Network) (session.Signer, session.Wallet, error) {
	c.mu.Lock()
	c.connects = append(c.connects, network)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, session.Wallet{}, c.Err
	}
	return c.Signers(network), c.Wallet, nil
}

func (c *Connector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	return nil
}

// Connects lists the networks Connect was called with.
func (c *Connector) Connects() []domain.Network {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Network(nil), c.connects...)
}

func (c *Connector) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

// Package sources holds the per-source fetchers behind the profile feeds.
//
// Each fetcher is a plain function of its query so it can be handed to
// feed.New. Queries carry the session generation; a fetch for a reset
// generation fails with session.ErrStaleGeneration rather than reading the
// new network's client.
package sources

import (
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

// ClientSource resolves the chain client of a session generation.
type ClientSource interface {
	ClientAt(gen uint64) (ckb.ChainClient, error)
}

// BalanceQuery selects an address set on a network.
type BalanceQuery struct {
	// Addresses is an AddressSet key; see domain.AddressSet.Key.
	Addresses  string
	Network    domain.Network
	Generation uint64
}

func NewBalanceQuery(set domain.AddressSet, network domain.Network, gen uint64) BalanceQuery {
	return BalanceQuery{Addresses: set.Key(), Network: network, Generation: gen}
}

func (q BalanceQuery) IsZero() bool {
	return q.Addresses == ""
}

func (q BalanceQuery) AddressSet() domain.AddressSet {
	return domain.ParseAddressSetKey(q.Addresses)
}

// AddressQuery selects a single address. Its network is implied by the
// address prefix; Generation only tags the request so a session reset
// supersedes it.
type AddressQuery struct {
	Address    domain.Address
	Generation uint64
}

func (q AddressQuery) IsZero() bool {
	return q.Address == ""
}

// Layer1Query selects a bitcoin address.
type Layer1Query struct {
	Address string
}

func (q Layer1Query) IsZero() bool {
	return q.Address == ""
}

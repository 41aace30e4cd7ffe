package sources

import (
	"context"
	"fmt"
	"math/big"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

const (
	NativeSymbol   = "CKB"
	NativeDecimals = 8

	// maxConcurrentAddresses bounds per-address calls of one fetch
	maxConcurrentAddresses = 4
)

// NativeFetcher sums the capacity held by an address set.
type NativeFetcher struct {
	clients ClientSource
}

func NewNativeFetcher(clients ClientSource) *NativeFetcher {
	return &NativeFetcher{clients: clients}
}

// Fetch returns a single CKB balance, zero when nothing is held.
func (f *NativeFetcher) Fetch(ctx context.Context, q BalanceQuery) ([]domain.AssetBalance, error) {
	client, err := f.clients.ClientAt(q.Generation)
	if err != nil {
		return nil, err
	}
	locks, err := locksOf(q)
	if err != nil {
		return nil, err
	}

	var total atomic.Uint64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAddresses)
	for _, lock := range locks {
		g.Go(func() error {
			capacity, err := client.GetCellsCapacity(gctx, ckb.LockKey(lock))
			if err != nil {
				return err
			}
			total.Add(capacity)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("get capacity: %w", err)
	}

	b := domain.NewAssetBalance(NativeSymbol, new(big.Int).SetUint64(total.Load()), NativeDecimals, domain.SourceNative)
	b.Name = "Nervos CKB"
	return []domain.AssetBalance{b}, nil
}

// locksOf decodes every address of q on q's network.
func locksOf(q BalanceQuery) ([]*ckb.Script, error) {
	set := q.AddressSet()
	locks := make([]*ckb.Script, 0, len(set))
	for _, addr := range set {
		lock, err := ckb.ParseAddressOn(string(addr), q.Network)
		if err != nil {
			return nil, fmt.Errorf("address %s: %w", addr, err)
		}
		locks = append(locks, lock)
	}
	return locks, nil
}

package sources

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

// XudtFetcher sums xUDT holdings of an address set per token.
type XudtFetcher struct {
	clients  ClientSource
	registry *Registry
}

func NewXudtFetcher(clients ClientSource, registry *Registry) *XudtFetcher {
	if registry == nil {
		registry = NewRegistry()
	}
	return &XudtFetcher{clients: clients, registry: registry}
}

// Fetch returns one balance per token held, ordered by symbol.
func (f *XudtFetcher) Fetch(ctx context.Context, q BalanceQuery) ([]domain.AssetBalance, error) {
	client, err := f.clients.ClientAt(q.Generation)
	if err != nil {
		return nil, err
	}
	locks, err := locksOf(q)
	if err != nil {
		return nil, err
	}

	// Empty args match every xUDT as a prefix
	xudtType := ckb.DefaultScripts(q.Network).XUDT.Template(nil)
	collector := ckb.NewCollector(client)

	var mu sync.Mutex
	totals := make(map[string]*big.Int)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAddresses)
	for _, lock := range locks {
		g.Go(func() error {
			var decodeErr error
			err := collector.Each(gctx, ckb.TypedKey(lock, xudtType), func(cell ckb.Cell) bool {
				amount, err := ckb.DecodeUint128LE(cell.Data)
				if err != nil {
					decodeErr = fmt.Errorf("cell %s: %w", cell.OutPoint.TxHash.Hex(), err)
					return false
				}
				args := hexutil.Encode(cell.Output.Type.Args)

				mu.Lock()
				if t, ok := totals[args]; ok {
					t.Add(t, amount)
				} else {
					totals[args] = amount
				}
				mu.Unlock()
				return true
			})
			if err != nil {
				return err
			}
			return decodeErr
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect xudt cells: %w", err)
	}

	balances := make([]domain.AssetBalance, 0, len(totals))
	for args, amount := range totals {
		t := f.registry.Describe(args)
		b := domain.NewAssetBalance(t.Symbol, amount, t.Decimals, domain.SourceToken)
		b.Name = t.Name
		b.TypeArgs = args
		balances = append(balances, b)
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Symbol != balances[j].Symbol {
			return balances[i].Symbol < balances[j].Symbol
		}
		return balances[i].TypeArgs < balances[j].TypeArgs
	})
	return balances, nil
}

package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

// SporeFetcher lists spore cells (DOBs) owned by an address set.
type SporeFetcher struct {
	clients ClientSource
}

func NewSporeFetcher(clients ClientSource) *SporeFetcher {
	return &SporeFetcher{clients: clients}
}

// FetchPage returns page (1-based) of the address set's spores, walking
// addresses in order. An empty result past the end is not an error.
func (f *SporeFetcher) FetchPage(ctx context.Context, q BalanceQuery, page, pageSize int) ([]domain.DigitalObject, error) {
	client, err := f.clients.ClientAt(q.Generation)
	if err != nil {
		return nil, err
	}
	locks, err := locksOf(q)
	if err != nil {
		return nil, err
	}

	skip := (page - 1) * pageSize
	items := make([]domain.DigitalObject, 0, pageSize)
	sporeType := ckb.DefaultScripts(q.Network).Spore.Template(nil)
	collector := ckb.NewCollector(client)
	set := q.AddressSet()

	for i, lock := range locks {
		owner := set[i]
		err := collector.Each(ctx, ckb.TypedKey(lock, sporeType), func(cell ckb.Cell) bool {
			if skip > 0 {
				skip--
				return true
			}
			items = append(items, toDigitalObject(cell, owner))
			return len(items) < pageSize
		})
		if err != nil {
			return nil, fmt.Errorf("collect spores: %w", err)
		}
		if len(items) == pageSize {
			break
		}
	}
	return items, nil
}

func toDigitalObject(cell ckb.Cell, owner domain.Address) domain.DigitalObject {
	dob := domain.DigitalObject{
		ID:       hexutil.Encode(cell.Output.Type.Args),
		Owner:    owner,
		OutPoint: fmt.Sprintf("%s:%d", cell.OutPoint.TxHash.Hex(), uint64(cell.OutPoint.Index)),
		Source:   domain.SourceDOB,
	}
	data, err := ckb.ParseSporeData(cell.Data)
	if err != nil {
		slog.Debug("Skipping spore content", "id", dob.ID, "error", err)
		return dob
	}
	dob.ContentType = data.ContentType
	dob.Content = data.Content
	if len(data.ClusterID) > 0 {
		dob.ClusterID = hexutil.Encode(data.ClusterID)
	}
	return dob
}

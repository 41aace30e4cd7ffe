// Package ckbtest provides an in-memory ckb.ChainClient for tests.
package ckbtest

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

// Chain is a live-cell set answering indexer queries.
type Chain struct {
	mu      sync.Mutex
	network domain.Network
	cells   []ckb.Cell
	nextTx  uint64

	// Hook runs before every call. A non-nil error fails the call; the hook
	// may also block to simulate a slow node.
	Hook func(ctx context.Context, method string) error
}

func NewChain(network domain.Network) *Chain {
	return &Chain{network: network}
}

func (c *Chain) Network() domain.Network {
	return c.network
}

// AddCell stores a live cell and returns its out point.
func (c *Chain) AddCell(lock, typ *ckb.Script, capacity uint64, data []byte) ckb.OutPoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextTx++
	op := ckb.OutPoint{TxHash: common.BigToHash(new(big.Int).SetUint64(c.nextTx)), Index: 0}
	if data == nil {
		data = []byte{}
	}
	c.cells = append(c.cells, ckb.Cell{
		OutPoint:    op,
		Output:      ckb.CellOutput{Capacity: hexutil.Uint64(capacity), Lock: lock, Type: typ},
		Data:        data,
		BlockNumber: hexutil.Uint64(c.nextTx),
	})
	return op
}

// AddressLock decodes addr and panics on error; fixtures only.
func AddressLock(addr string) *ckb.Script {
	lock, _, err := ckb.ParseAddress(addr)
	if err != nil {
		panic(err)
	}
	return lock
}

// SecpAddress builds a full-format secp256k1 address whose args end with b.
func SecpAddress(network domain.Network, b byte) string {
	args := make([]byte, 20)
	args[19] = b
	addr, err := ckb.EncodeAddress(ckb.DefaultScripts(network).Secp256k1.Template(args), network)
	if err != nil {
		panic(err)
	}
	return addr
}

func (c *Chain) hook(ctx context.Context, method string) error {
	if c.Hook == nil {
		return nil
	}
	return c.Hook(ctx, method)
}

func inRange(r *[2]hexutil.Uint64, n uint64) bool {
	return r == nil || (n >= uint64(r[0]) && n < uint64(r[1]))
}

func matches(key *ckb.SearchKey, cell ckb.Cell) bool {
	if key.ScriptType == ckb.ScriptTypeType {
		if !cell.Output.Type.HasPrefix(key.Script) {
			return false
		}
	} else if key.ScriptSearchMode == "exact" {
		if !cell.Output.Lock.Equals(key.Script) {
			return false
		}
	} else if !cell.Output.Lock.HasPrefix(key.Script) {
		return false
	}

	if f := key.Filter; f != nil {
		if f.Script != nil && !cell.Output.Type.HasPrefix(f.Script) {
			return false
		}
		typeLen := uint64(0)
		if cell.Output.Type != nil {
			typeLen = cell.Output.Type.OccupiedBytes()
		}
		if !inRange(f.ScriptLenRange, typeLen) || !inRange(f.OutputDataLenRange, uint64(len(cell.Data))) {
			return false
		}
	}
	return true
}

func (c *Chain) GetCells(
	ctx context.Context,
	key *ckb.SearchKey,
	_ ckb.Order,
	limit uint64,
	cursor string,
) (*ckb.CellsPage, error) {
	if err := c.hook(ctx, "get_cells"); err != nil {
		return nil, err
	}

	start := 0
	if cursor != "" {
		n, err := strconv.ParseUint(cursor[2:], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad cursor %q", cursor)
		}
		start = int(n)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	page := &ckb.CellsPage{}
	i := start
	for ; i < len(c.cells) && uint64(len(page.Cells)) < limit; i++ {
		if matches(key, c.cells[i]) {
			page.Cells = append(page.Cells, c.cells[i])
		}
	}
	page.LastCursor = hexutil.EncodeUint64(uint64(i))
	return page, nil
}

func (c *Chain) GetCellsCapacity(ctx context.Context, key *ckb.SearchKey) (uint64, error) {
	if err := c.hook(ctx, "get_cells_capacity"); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var total uint64
	for _, cell := range c.cells {
		if matches(key, cell) {
			total += uint64(cell.Output.Capacity)
		}
	}
	return total, nil
}

func (c *Chain) GetLiveCell(ctx context.Context, outPoint ckb.OutPoint, _ bool) (*ckb.Cell, error) {
	if err := c.hook(ctx, "get_live_cell"); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cell := range c.cells {
		if cell.OutPoint == outPoint {
			cp := cell
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ckb.ErrCellNotLive, outPoint.TxHash.Hex())
}

package ckb

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vietddude/walletview/internal/core/domain"
)

// Caller is the JSON-RPC transport a Client needs.
type Caller interface {
	CallInto(ctx context.Context, method string, params []any, out any) error
}

// CellSource is the indexer surface used for cell collection.
type CellSource interface {
	GetCells(ctx context.Context, key *SearchKey, order Order, limit uint64, cursor string) (*CellsPage, error)
	GetLiveCell(ctx context.Context, outPoint OutPoint, withData bool) (*Cell, error)
}

// ChainClient is the node surface the wallet layers depend on.
type ChainClient interface {
	CellSource
	GetCellsCapacity(ctx context.Context, key *SearchKey) (uint64, error)
	Network() domain.Network
}

type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

type ScriptType string

const (
	ScriptTypeLock ScriptType = "lock"
	ScriptTypeType ScriptType = "type"
)

// SearchKey is the indexer query for get_cells and get_cells_capacity.
type SearchKey struct {
	Script           *Script       `json:"script"`
	ScriptType       ScriptType    `json:"script_type"`
	ScriptSearchMode string        `json:"script_search_mode,omitempty"`
	Filter           *SearchFilter `json:"filter,omitempty"`
	WithData         *bool         `json:"with_data,omitempty"`
}

// SearchFilter narrows a SearchKey. Range bounds are [inclusive, exclusive).
type SearchFilter struct {
	Script             *Script            `json:"script,omitempty"`
	ScriptLenRange     *[2]hexutil.Uint64 `json:"script_len_range,omitempty"`
	OutputDataLenRange *[2]hexutil.Uint64 `json:"output_data_len_range,omitempty"`
}

// LockKey searches cells owned by lock.
func LockKey(lock *Script) *SearchKey {
	return &SearchKey{Script: lock, ScriptType: ScriptTypeLock, ScriptSearchMode: "exact"}
}

// PlainCapacityKey searches cells owned by lock with no type and no data.
func PlainCapacityKey(lock *Script) *SearchKey {
	key := LockKey(lock)
	key.Filter = &SearchFilter{
		ScriptLenRange:     &[2]hexutil.Uint64{0, 1},
		OutputDataLenRange: &[2]hexutil.Uint64{0, 1},
	}
	return key
}

// TypedKey searches cells owned by lock whose type script starts with typ.
func TypedKey(lock, typ *Script) *SearchKey {
	key := LockKey(lock)
	key.Filter = &SearchFilter{Script: typ}
	return key
}

// CellsPage is one page of get_cells results.
type CellsPage struct {
	Cells      []Cell
	LastCursor string
}

// Client wraps node and indexer RPC for one network.
type Client struct {
	rpc     Caller
	network domain.Network
}

// NewClient creates a client bound to network.
func NewClient(network domain.Network, rpc Caller) *Client {
	return &Client{rpc: rpc, network: network}
}

func (c *Client) Network() domain.Network {
	return c.network
}

type indexerCell struct {
	BlockNumber hexutil.Uint64 `json:"block_number"`
	OutPoint    OutPoint       `json:"out_point"`
	Output      CellOutput     `json:"output"`
	OutputData  hexutil.Bytes  `json:"output_data"`
}

// GetCells fetches one page of live cells.
func (c *Client) GetCells(
	ctx context.Context,
	key *SearchKey,
	order Order,
	limit uint64,
	cursor string,
) (*CellsPage, error) {
	var after any
	if cursor != "" {
		after = cursor
	}

	var res struct {
		Objects    []indexerCell `json:"objects"`
		LastCursor string        `json:"last_cursor"`
	}
	if err := c.rpc.CallInto(ctx, "get_cells", []any{key, order, hexutil.Uint64(limit), after}, &res); err != nil {
		return nil, fmt.Errorf("get_cells: %w", err)
	}

	page := &CellsPage{
		Cells:      make([]Cell, len(res.Objects)),
		LastCursor: res.LastCursor,
	}
	for i, o := range res.Objects {
		page.Cells[i] = Cell{
			OutPoint:    o.OutPoint,
			Output:      o.Output,
			Data:        o.OutputData,
			BlockNumber: o.BlockNumber,
		}
	}
	return page, nil
}

// GetCellsCapacity sums the capacity of cells matching key.
func (c *Client) GetCellsCapacity(ctx context.Context, key *SearchKey) (uint64, error) {
	var res *struct {
		Capacity hexutil.Uint64 `json:"capacity"`
	}
	if err := c.rpc.CallInto(ctx, "get_cells_capacity", []any{key}, &res); err != nil {
		return 0, fmt.Errorf("get_cells_capacity: %w", err)
	}
	if res == nil {
		return 0, nil
	}
	return uint64(res.Capacity), nil
}

// GetLiveCell resolves an out point. It returns ErrCellNotLive for spent
// or unknown cells.
func (c *Client) GetLiveCell(ctx context.Context, outPoint OutPoint, withData bool) (*Cell, error) {
	var res struct {
		Cell *struct {
			Output CellOutput `json:"output"`
			Data   *struct {
				Content hexutil.Bytes `json:"content"`
			} `json:"data"`
		} `json:"cell"`
		Status string `json:"status"`
	}
	if err := c.rpc.CallInto(ctx, "get_live_cell", []any{outPoint, withData}, &res); err != nil {
		return nil, fmt.Errorf("get_live_cell: %w", err)
	}
	if res.Status != "live" || res.Cell == nil {
		return nil, fmt.Errorf("%w: %s#%d (%s)", ErrCellNotLive, outPoint.TxHash.Hex(), outPoint.Index, res.Status)
	}

	cell := &Cell{OutPoint: outPoint, Output: res.Cell.Output}
	if res.Cell.Data != nil {
		cell.Data = res.Cell.Data.Content
	}
	return cell, nil
}

// GetTipBlockNumber returns the node's tip height.
func (c *Client) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	var tip hexutil.Uint64
	if err := c.rpc.CallInto(ctx, "get_tip_block_number", nil, &tip); err != nil {
		return 0, fmt.Errorf("get_tip_block_number: %w", err)
	}
	return uint64(tip), nil
}

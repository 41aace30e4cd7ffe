package ckb

import (
	"context"
	"math/big"
)

const defaultPageSize = 100

// Collector walks indexer pages to gather live cells.
type Collector struct {
	source   CellSource
	pageSize uint64
}

// NewCollector creates a collector reading from source.
func NewCollector(source CellSource) *Collector {
	return &Collector{source: source, pageSize: defaultPageSize}
}

// Source returns the underlying cell source.
func (c *Collector) Source() CellSource {
	return c.source
}

// Each calls fn for every cell matching key until fn returns false.
func (c *Collector) Each(ctx context.Context, key *SearchKey, fn func(Cell) bool) error {
	cursor := ""
	for {
		page, err := c.source.GetCells(ctx, key, OrderAsc, c.pageSize, cursor)
		if err != nil {
			return err
		}
		for _, cell := range page.Cells {
			if !fn(cell) {
				return nil
			}
		}
		if uint64(len(page.Cells)) < c.pageSize || page.LastCursor == "" || page.LastCursor == cursor {
			return nil
		}
		cursor = page.LastCursor
	}
}

// CollectXudtCells gathers cells of token xudtType owned by locks until
// need is covered. It returns the cells and their summed amount.
func (c *Collector) CollectXudtCells(
	ctx context.Context,
	locks []*Script,
	xudtType *Script,
	need *big.Int,
) ([]Cell, *big.Int, error) {
	total := new(big.Int)
	var cells []Cell

	for _, lock := range locks {
		var decodeErr error
		err := c.Each(ctx, TypedKey(lock, xudtType), func(cell Cell) bool {
			if !cell.Output.Type.Equals(xudtType) {
				return true
			}
			amount, err := DecodeUint128LE(cell.Data)
			if err != nil {
				decodeErr = err
				return false
			}
			cells = append(cells, cell)
			total.Add(total, amount)
			return total.Cmp(need) < 0
		})
		if err != nil {
			return nil, nil, err
		}
		if decodeErr != nil {
			return nil, nil, decodeErr
		}
		if total.Cmp(need) >= 0 {
			break
		}
	}
	return cells, total, nil
}

// CollectCapacityCells gathers plain cells owned by locks until need
// shannons are covered, skipping out points in exclude.
func (c *Collector) CollectCapacityCells(
	ctx context.Context,
	locks []*Script,
	need uint64,
	exclude map[OutPoint]struct{},
) ([]Cell, uint64, error) {
	var (
		cells []Cell
		total uint64
	)

	for _, lock := range locks {
		err := c.Each(ctx, PlainCapacityKey(lock), func(cell Cell) bool {
			if _, skip := exclude[cell.OutPoint]; skip {
				return true
			}
			if cell.Output.Type != nil || len(cell.Data) > 0 {
				return true
			}
			cells = append(cells, cell)
			total += uint64(cell.Output.Capacity)
			return total < need
		})
		if err != nil {
			return nil, 0, err
		}
		if total >= need {
			break
		}
	}
	return cells, total, nil
}

// GetLiveCell resolves one out point through the source.
func (c *Collector) GetLiveCell(ctx context.Context, outPoint OutPoint) (*Cell, error) {
	return c.source.GetLiveCell(ctx, outPoint, true)
}

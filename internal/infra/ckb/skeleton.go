package ckb

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Skeleton is a transaction whose inputs are resolved to full cells, the
// form signers inspect before signing.
type Skeleton struct {
	CellDeps    []CellDep
	HeaderDeps  []common.Hash
	Inputs      []Cell
	InputSinces map[int]hexutil.Uint64
	Outputs     []Cell
	Witnesses   []hexutil.Bytes
}

// ToSkeleton resolves every input of tx through the collector.
func ToSkeleton(ctx context.Context, tx *Transaction, collector *Collector) (*Skeleton, error) {
	skel := &Skeleton{
		CellDeps:    append([]CellDep{}, tx.CellDeps...),
		HeaderDeps:  append([]common.Hash{}, tx.HeaderDeps...),
		Inputs:      make([]Cell, len(tx.Inputs)),
		InputSinces: make(map[int]hexutil.Uint64),
		Outputs:     make([]Cell, len(tx.Outputs)),
		Witnesses:   append([]hexutil.Bytes{}, tx.Witnesses...),
	}

	for i, in := range tx.Inputs {
		cell, err := collector.GetLiveCell(ctx, in.PreviousOutput)
		if err != nil {
			return nil, fmt.Errorf("resolve input %d: %w", i, err)
		}
		skel.Inputs[i] = *cell
		if in.Since != 0 {
			skel.InputSinces[i] = in.Since
		}
	}

	for i, out := range tx.Outputs {
		var data hexutil.Bytes
		if i < len(tx.OutputsData) {
			data = tx.OutputsData[i]
		}
		skel.Outputs[i] = Cell{Output: out, Data: data}
	}
	return skel, nil
}

// FromSkeleton flattens a skeleton back into the transaction object a signer
// submits.
func FromSkeleton(s *Skeleton) *Transaction {
	tx := &Transaction{
		Version:     0,
		CellDeps:    append([]CellDep{}, s.CellDeps...),
		HeaderDeps:  append([]common.Hash{}, s.HeaderDeps...),
		Inputs:      make([]CellInput, len(s.Inputs)),
		Outputs:     make([]CellOutput, len(s.Outputs)),
		OutputsData: make([]hexutil.Bytes, len(s.Outputs)),
		Witnesses:   append([]hexutil.Bytes{}, s.Witnesses...),
	}
	for i, cell := range s.Inputs {
		tx.Inputs[i] = CellInput{Since: s.InputSinces[i], PreviousOutput: cell.OutPoint}
	}
	for i, cell := range s.Outputs {
		tx.Outputs[i] = cell.Output
		data := cell.Data
		if data == nil {
			data = hexutil.Bytes{}
		}
		tx.OutputsData[i] = data
	}
	return tx
}

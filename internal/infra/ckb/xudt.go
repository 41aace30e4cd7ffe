package ckb

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vietddude/walletview/internal/core/domain"
)

// Helper is the network-scoped collection context used to build transactions.
type Helper struct {
	Network   domain.Network
	Collector *Collector
	Scripts   Scripts
}

// NewHelper binds a collector and the well-known scripts to network.
func NewHelper(network domain.Network, source CellSource) *Helper {
	return &Helper{
		Network:   network,
		Collector: NewCollector(source),
		Scripts:   DefaultScripts(network),
	}
}

// Receiver is one transfer destination.
type Receiver struct {
	ToAddress      string
	TransferAmount *big.Int
}

// TransferParams describes an xUDT transfer.
type TransferParams struct {
	// XudtArgs is the token type script args, hex encoded.
	XudtArgs     string
	Receivers    []Receiver
	CkbAddresses []string
	Collector    *Collector
	IsMainnet    bool
}

// TransferExtra holds optional limits.
type TransferExtra struct {
	// MaxFee rejects transactions whose fee exceeds it (shannons). Zero means no limit.
	MaxFee uint64
}

// CreateTransferTransaction builds an unsigned xUDT transfer. Token change
// and capacity change go to changeAddress. witnessLockSize reserves that
// many bytes for the signature of each lock group; values <= 0 use
// DefaultWitnessLockSize.
func CreateTransferTransaction(
	ctx context.Context,
	params TransferParams,
	changeAddress string,
	feeRate uint64,
	extra *TransferExtra,
	witnessLockSize int,
) (*Transaction, error) {
	if params.Collector == nil {
		return nil, fmt.Errorf("collector is required")
	}
	if len(params.CkbAddresses) == 0 {
		return nil, fmt.Errorf("at least one sender address is required")
	}
	if len(params.Receivers) == 0 {
		return nil, fmt.Errorf("at least one receiver is required")
	}
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	if witnessLockSize <= 0 {
		witnessLockSize = DefaultWitnessLockSize
	}

	network := domain.NetworkTestnet
	if params.IsMainnet {
		network = domain.NetworkMainnet
	}
	scripts := DefaultScripts(network)

	args, err := decodeHexArgs(params.XudtArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid token args %q: %w", params.XudtArgs, err)
	}
	xudtType := scripts.XUDT.Template(args)

	locks := make([]*Script, 0, len(params.CkbAddresses))
	for _, addr := range params.CkbAddresses {
		lock, err := ParseAddressOn(addr, network)
		if err != nil {
			return nil, err
		}
		locks = append(locks, lock)
	}
	changeLock, err := ParseAddressOn(changeAddress, network)
	if err != nil {
		return nil, fmt.Errorf("change address: %w", err)
	}

	var (
		outputs     []CellOutput
		outputsData []hexutil.Bytes
		outputCap   uint64
		sum         = new(big.Int)
	)
	for _, r := range params.Receivers {
		if r.TransferAmount == nil || r.TransferAmount.Sign() <= 0 {
			return nil, fmt.Errorf("transfer amount must be positive")
		}
		lock, err := ParseAddressOn(r.ToAddress, network)
		if err != nil {
			return nil, fmt.Errorf("receiver: %w", err)
		}
		data, err := EncodeUint128LE(r.TransferAmount)
		if err != nil {
			return nil, err
		}
		out := CellOutput{Lock: lock, Type: xudtType}
		out.Capacity = hexutil.Uint64(out.OccupiedCapacity(len(data)))
		outputs = append(outputs, out)
		outputsData = append(outputsData, data)
		outputCap += uint64(out.Capacity)
		sum.Add(sum, r.TransferAmount)
	}

	tokenCells, tokenTotal, err := params.Collector.CollectXudtCells(ctx, locks, xudtType, sum)
	if err != nil {
		return nil, fmt.Errorf("collect token cells: %w", err)
	}
	if tokenTotal.Cmp(sum) < 0 {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientToken, tokenTotal, sum)
	}

	if rest := new(big.Int).Sub(tokenTotal, sum); rest.Sign() > 0 {
		data, err := EncodeUint128LE(rest)
		if err != nil {
			return nil, err
		}
		out := CellOutput{Lock: changeLock, Type: xudtType}
		out.Capacity = hexutil.Uint64(out.OccupiedCapacity(len(data)))
		outputs = append(outputs, out)
		outputsData = append(outputsData, data)
		outputCap += uint64(out.Capacity)
	}

	b := &txBuilder{
		scripts: scripts,
		used:    make(map[OutPoint]struct{}),
		deps:    make(map[CellDep]struct{}),
	}
	b.addDeps(scripts.XUDT.CellDeps)
	for _, cell := range tokenCells {
		b.addInput(cell)
	}

	change := CellOutput{Lock: changeLock}
	minChange := change.OccupiedCapacity(0)

	var tx *Transaction
	for {
		change.Capacity = hexutil.Uint64(minChange)
		tx = b.transaction(
			append(append([]CellOutput{}, outputs...), change),
			append(append([]hexutil.Bytes{}, outputsData...), hexutil.Bytes{}),
			witnessLockSize,
		)
		fee := CalculateFee(SerializedSize(tx), feeRate)
		need := outputCap + minChange + fee

		if b.inputCap >= need {
			tx.Outputs[len(tx.Outputs)-1].Capacity = hexutil.Uint64(b.inputCap - outputCap - fee)
			if extra != nil && extra.MaxFee > 0 && fee > extra.MaxFee {
				return nil, fmt.Errorf("%w: %d > %d shannons", ErrFeeTooHigh, fee, extra.MaxFee)
			}
			return tx, nil
		}

		deficit := need - b.inputCap
		more, got, err := params.Collector.CollectCapacityCells(ctx, locks, deficit, b.used)
		if err != nil {
			return nil, fmt.Errorf("collect capacity cells: %w", err)
		}
		if len(more) == 0 || got < deficit {
			return nil, fmt.Errorf("%w: need %d more shannons", ErrInsufficientCapacity, deficit-got)
		}
		for _, cell := range more {
			b.addInput(cell)
		}
	}
}

type txBuilder struct {
	scripts  Scripts
	inputs   []Cell
	inputCap uint64
	used     map[OutPoint]struct{}
	deps     map[CellDep]struct{}
	depList  []CellDep
}

func (b *txBuilder) addDeps(deps []CellDep) {
	for _, d := range deps {
		if _, ok := b.deps[d]; ok {
			continue
		}
		b.deps[d] = struct{}{}
		b.depList = append(b.depList, d)
	}
}

func (b *txBuilder) addInput(cell Cell) {
	b.inputs = append(b.inputs, cell)
	b.inputCap += uint64(cell.Output.Capacity)
	b.used[cell.OutPoint] = struct{}{}
	b.addDeps(b.scripts.LockDeps(cell.Output.Lock))
}

func (b *txBuilder) transaction(outputs []CellOutput, data []hexutil.Bytes, witnessLockSize int) *Transaction {
	tx := &Transaction{
		Version:     0,
		CellDeps:    append([]CellDep{}, b.depList...),
		HeaderDeps:  []common.Hash{},
		Inputs:      make([]CellInput, len(b.inputs)),
		Outputs:     outputs,
		OutputsData: data,
		Witnesses:   make([]hexutil.Bytes, len(b.inputs)),
	}

	seen := make(map[string]struct{})
	for i, cell := range b.inputs {
		tx.Inputs[i] = CellInput{PreviousOutput: cell.OutPoint}
		key := cell.Output.Lock.key()
		if _, ok := seen[key]; ok {
			tx.Witnesses[i] = hexutil.Bytes{}
			continue
		}
		seen[key] = struct{}{}
		tx.Witnesses[i] = WitnessArgsPlaceholder(witnessLockSize)
	}
	return tx
}

// NormalizeTokenArgs replaces the first backslash in raw args with '0'.
// Token registries sometimes store args with an escaped leading character.
func NormalizeTokenArgs(raw string) string {
	return strings.Replace(raw, `\`, "0", 1)
}

func decodeHexArgs(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	if s == "0x" {
		return []byte{}, nil
	}
	return hexutil.Decode(s)
}

package ckb_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
	"github.com/vietddude/walletview/internal/infra/ckb/ckbtest"
)

const tokenArgs = "0x1111111111111111111111111111111111111111111111111111111111111111"

type fixture struct {
	chain    *ckbtest.Chain
	sender   string
	receiver string
	token    *ckb.Script
}

func newFixture(t *testing.T, tokenAmounts ...int64) *fixture {
	t.Helper()

	network := domain.NetworkTestnet
	f := &fixture{
		chain:    ckbtest.NewChain(network),
		sender:   ckbtest.SecpAddress(network, 1),
		receiver: ckbtest.SecpAddress(network, 2),
		token:    ckb.DefaultScripts(network).XUDT.Template(hexutil.MustDecode(tokenArgs)),
	}
	lock := ckbtest.AddressLock(f.sender)
	for _, amt := range tokenAmounts {
		data, err := ckb.EncodeUint128LE(big.NewInt(amt))
		if err != nil {
			t.Fatal(err)
		}
		f.chain.AddCell(lock, f.token, 143*ckb.ShannonsPerCKB, data)
	}
	return f
}

func (f *fixture) params(amount int64) ckb.TransferParams {
	return ckb.TransferParams{
		XudtArgs:     tokenArgs,
		Receivers:    []ckb.Receiver{{ToAddress: f.receiver, TransferAmount: big.NewInt(amount)}},
		CkbAddresses: []string{f.sender},
		Collector:    ckb.NewCollector(f.chain),
		IsMainnet:    false,
	}
}

func sumCapacity(outputs []ckb.CellOutput) uint64 {
	var total uint64
	for _, o := range outputs {
		total += uint64(o.Capacity)
	}
	return total
}

func TestCreateTransferTransaction(t *testing.T) {
	f := newFixture(t, 60, 60)
	f.chain.AddCell(ckbtest.AddressLock(f.sender), nil, 1000*ckb.ShannonsPerCKB, nil)

	tx, err := ckb.CreateTransferTransaction(context.Background(), f.params(100), f.sender, 1000, nil, 0)
	if err != nil {
		t.Fatalf("CreateTransferTransaction() error = %v", err)
	}

	// two token cells + one capacity cell
	if len(tx.Inputs) != 3 {
		t.Fatalf("inputs = %d, want 3", len(tx.Inputs))
	}
	// receiver, token change, capacity change
	if len(tx.Outputs) != 3 || len(tx.OutputsData) != 3 {
		t.Fatalf("outputs = %d, data = %d", len(tx.Outputs), len(tx.OutputsData))
	}

	got, _ := ckb.DecodeUint128LE(tx.OutputsData[0])
	if got.Int64() != 100 {
		t.Errorf("receiver amount = %s", got)
	}
	change, _ := ckb.DecodeUint128LE(tx.OutputsData[1])
	if change.Int64() != 20 {
		t.Errorf("token change = %s", change)
	}
	if !tx.Outputs[0].Type.Equals(f.token) || tx.Outputs[2].Type != nil {
		t.Error("unexpected output types")
	}

	inputCap := uint64(143*2+1000) * ckb.ShannonsPerCKB
	fee := inputCap - sumCapacity(tx.Outputs)
	if want := ckb.CalculateFee(ckb.SerializedSize(tx), 1000); fee != want {
		t.Errorf("fee = %d, want %d", fee, want)
	}

	// One lock group: only the first witness carries a placeholder.
	if len(tx.Witnesses[0]) != len(ckb.WitnessArgsPlaceholder(ckb.DefaultWitnessLockSize)) {
		t.Errorf("first witness = %d bytes", len(tx.Witnesses[0]))
	}
	for _, w := range tx.Witnesses[1:] {
		if len(w) != 0 {
			t.Errorf("expected empty witness, got %d bytes", len(w))
		}
	}
}

func TestCreateTransferTransaction_WitnessReservation(t *testing.T) {
	build := func(size int) *ckb.Transaction {
		f := newFixture(t, 100)
		f.chain.AddCell(ckbtest.AddressLock(f.sender), nil, 1000*ckb.ShannonsPerCKB, nil)
		tx, err := ckb.CreateTransferTransaction(context.Background(), f.params(100), f.sender, 1000, nil, size)
		if err != nil {
			t.Fatal(err)
		}
		return tx
	}

	def := build(0)
	joy := build(1052)
	if len(joy.Witnesses[0]) <= len(def.Witnesses[0]) {
		t.Errorf("1052-byte reservation (%d) should exceed default (%d)", len(joy.Witnesses[0]), len(def.Witnesses[0]))
	}
	if sumCapacity(joy.Outputs) >= sumCapacity(def.Outputs) {
		t.Error("larger witness should pay a larger fee")
	}
}

func TestCreateTransferTransaction_Insufficient(t *testing.T) {
	f := newFixture(t, 10)
	f.chain.AddCell(ckbtest.AddressLock(f.sender), nil, 1000*ckb.ShannonsPerCKB, nil)

	_, err := ckb.CreateTransferTransaction(context.Background(), f.params(100), f.sender, 1000, nil, 0)
	if !errors.Is(err, ckb.ErrInsufficientToken) {
		t.Errorf("error = %v, want ErrInsufficientToken", err)
	}

	f = newFixture(t, 100)
	_, err = ckb.CreateTransferTransaction(context.Background(), f.params(100), f.sender, 1000, nil, 0)
	if !errors.Is(err, ckb.ErrInsufficientCapacity) {
		t.Errorf("error = %v, want ErrInsufficientCapacity", err)
	}
}

func TestCreateTransferTransaction_Validation(t *testing.T) {
	f := newFixture(t, 100)

	p := f.params(100)
	p.IsMainnet = true
	if _, err := ckb.CreateTransferTransaction(context.Background(), p, f.sender, 1000, nil, 0); !errors.Is(err, ckb.ErrNetworkMismatch) {
		t.Errorf("error = %v, want ErrNetworkMismatch", err)
	}

	p = f.params(0)
	if _, err := ckb.CreateTransferTransaction(context.Background(), p, f.sender, 1000, nil, 0); err == nil {
		t.Error("expected error for zero amount")
	}

	p = f.params(1)
	p.XudtArgs = "0xzz"
	if _, err := ckb.CreateTransferTransaction(context.Background(), p, f.sender, 1000, nil, 0); err == nil {
		t.Error("expected error for bad args")
	}
}

func TestCreateTransferTransaction_MaxFee(t *testing.T) {
	f := newFixture(t, 100)
	f.chain.AddCell(ckbtest.AddressLock(f.sender), nil, 1000*ckb.ShannonsPerCKB, nil)

	_, err := ckb.CreateTransferTransaction(context.Background(), f.params(100), f.sender, 1000, &ckb.TransferExtra{MaxFee: 1}, 0)
	if !errors.Is(err, ckb.ErrFeeTooHigh) {
		t.Errorf("error = %v, want ErrFeeTooHigh", err)
	}
}

func TestSkeletonRoundTrip(t *testing.T) {
	f := newFixture(t, 100)
	f.chain.AddCell(ckbtest.AddressLock(f.sender), nil, 1000*ckb.ShannonsPerCKB, nil)
	collector := ckb.NewCollector(f.chain)

	tx, err := ckb.CreateTransferTransaction(context.Background(), f.params(40), f.sender, 1000, nil, 0)
	if err != nil {
		t.Fatal(err)
	}

	skel, err := ckb.ToSkeleton(context.Background(), tx, collector)
	if err != nil {
		t.Fatalf("ToSkeleton() error = %v", err)
	}
	if len(skel.Inputs) != len(tx.Inputs) {
		t.Fatalf("skeleton inputs = %d", len(skel.Inputs))
	}
	if uint64(skel.Inputs[0].Output.Capacity) != 143*ckb.ShannonsPerCKB {
		t.Errorf("first input not resolved: %+v", skel.Inputs[0])
	}

	back := ckb.FromSkeleton(skel)
	if len(back.Inputs) != len(tx.Inputs) || len(back.Outputs) != len(tx.Outputs) {
		t.Fatal("shape changed through skeleton")
	}
	for i := range tx.Inputs {
		if back.Inputs[i].PreviousOutput != tx.Inputs[i].PreviousOutput {
			t.Errorf("input %d differs", i)
		}
	}
	if ckb.SerializedSize(back) != ckb.SerializedSize(tx) {
		t.Error("serialized size changed through skeleton")
	}
}

func TestNormalizeTokenArgs(t *testing.T) {
	tests := map[string]string{
		`\x1234`:   "0x1234",
		"0xabcd":   "0xabcd",
		`\x12\x34`: `0x12\x34`,
	}
	for in, want := range tests {
		if got := ckb.NormalizeTokenArgs(in); got != want {
			t.Errorf("NormalizeTokenArgs(%q) = %q, want %q", in, got, want)
		}
	}
}

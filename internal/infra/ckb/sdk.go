package ckb

import (
	"context"

	"github.com/vietddude/walletview/internal/core/domain"
)

// SDK exposes the package functions as a value so callers can depend on an
// interface and swap it in tests.
type SDK struct{}

func (SDK) NewHelper(network domain.Network, source CellSource) *Helper {
	return NewHelper(network, source)
}

func (SDK) CreateTransferTransaction(
	ctx context.Context,
	params TransferParams,
	changeAddress string,
	feeRate uint64,
	extra *TransferExtra,
	witnessLockSize int,
) (*Transaction, error) {
	return CreateTransferTransaction(ctx, params, changeAddress, feeRate, extra, witnessLockSize)
}

func (SDK) ToSkeleton(ctx context.Context, tx *Transaction, collector *Collector) (*Skeleton, error) {
	return ToSkeleton(ctx, tx, collector)
}

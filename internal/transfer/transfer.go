// Package transfer builds and submits xUDT token transfers for the
// connected wallet.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
	"github.com/vietddude/walletview/internal/metrics"
	"github.com/vietddude/walletview/internal/session"
)

// JoyIDWitnessSize is the witness lock reservation JoyID signatures need.
const JoyIDWitnessSize = 1052

// WitnessPlaceholderSize returns the lock placeholder size for a wallet.
// Zero leaves the SDK default in place.
func WitnessPlaceholderSize(wallet session.Wallet) int {
	if strings.Contains(wallet.Name, "JoyID") {
		return JoyIDWitnessSize
	}
	return 0
}

// NormalizeTokenArgs repairs token args read back with an escape prefix.
func NormalizeTokenArgs(raw string) string {
	return ckb.NormalizeTokenArgs(raw)
}

// Request is one transfer, built fresh per submission.
type Request struct {
	From    domain.AddressSet
	To      domain.Address
	Amount  *big.Int
	FeeRate uint64
	Token   domain.TokenDescriptor
}

// SDK is the transaction-building boundary. ckb.SDK implements it.
type SDK interface {
	NewHelper(network domain.Network, source ckb.CellSource) *ckb.Helper
	CreateTransferTransaction(
		ctx context.Context,
		params ckb.TransferParams,
		changeAddress string,
		feeRate uint64,
		extra *ckb.TransferExtra,
		witnessLockSize int,
	) (*ckb.Transaction, error)
	ToSkeleton(ctx context.Context, tx *ckb.Transaction, collector *ckb.Collector) (*ckb.Skeleton, error)
}

// Session is the part of session.Manager a Builder reads.
type Session interface {
	Snapshot() session.Snapshot
}

// Builder turns transfer requests into skeletons for the active session.
type Builder struct {
	sdk     SDK
	session Session
	extra   *ckb.TransferExtra
	log     *slog.Logger
}

// NewBuilder creates a Builder. extra may be nil.
func NewBuilder(sdk SDK, sess Session, extra *ckb.TransferExtra) *Builder {
	return &Builder{
		sdk:     sdk,
		session: sess,
		extra:   extra,
		log:     slog.Default().With("component", "transfer"),
	}
}

// Build constructs an unsigned transfer. It never submits anything.
func (b *Builder) Build(ctx context.Context, req Request) (*ckb.Skeleton, error) {
	return b.build(ctx, b.session.Snapshot(), req)
}

func (b *Builder) build(ctx context.Context, snap session.Snapshot, req Request) (*ckb.Skeleton, error) {
	helper := b.sdk.NewHelper(snap.Network, snap.Client)
	witnessSize := WitnessPlaceholderSize(snap.Wallet)

	params := ckb.TransferParams{
		XudtArgs:     NormalizeTokenArgs(req.Token.ScriptArgs),
		Receivers:    []ckb.Receiver{{ToAddress: string(req.To), TransferAmount: req.Amount}},
		CkbAddresses: req.From.Strings(),
		Collector:    helper.Collector,
		IsMainnet:    snap.Network.IsMainnet(),
	}

	tx, err := b.sdk.CreateTransferTransaction(ctx, params, string(req.From.Primary()), req.FeeRate, b.extra, witnessSize)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("build", "error").Inc()
		return nil, err
	}
	skel, err := b.sdk.ToSkeleton(ctx, tx, helper.Collector)
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("build", "error").Inc()
		return nil, err
	}

	metrics.TransfersTotal.WithLabelValues("build", "ok").Inc()
	b.log.Debug("Transfer built",
		"token", req.Token.Symbol,
		"inputs", len(skel.Inputs),
		"outputs", len(skel.Outputs),
		"witness_size", witnessSize,
	)
	return skel, nil
}

// SignAndSend builds the transfer and hands it to the connected signer,
// returning the signer's transaction hash. Errors are returned as is.
func (b *Builder) SignAndSend(ctx context.Context, req Request) (string, error) {
	snap := b.session.Snapshot()
	if snap.Signer == nil {
		return "", session.ErrNoSigner
	}

	skel, err := b.build(ctx, snap, req)
	if err != nil {
		return "", err
	}

	hash, err := snap.Signer.SendTransaction(ctx, ckb.FromSkeleton(skel))
	if err != nil {
		metrics.TransfersTotal.WithLabelValues("send", "error").Inc()
		return "", err
	}
	metrics.TransfersTotal.WithLabelValues("send", "ok").Inc()
	b.log.Info("Transfer submitted", "tx", hash, "token", req.Token.Symbol, "to", req.To)
	return hash, nil
}

// Describe renders a skeleton summary for logs and the CLI.
func Describe(skel *ckb.Skeleton) string {
	var in, out uint64
	for _, c := range skel.Inputs {
		in += uint64(c.Output.Capacity)
	}
	for _, c := range skel.Outputs {
		out += uint64(c.Output.Capacity)
	}
	return fmt.Sprintf("%d inputs, %d outputs, fee %d shannons", len(skel.Inputs), len(skel.Outputs), in-out)
}

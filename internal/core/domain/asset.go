package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// SourceTag records which feed produced a balance.
type SourceTag string

const (
	SourceNative       SourceTag = "native"
	SourceLayer1Native SourceTag = "layer1-native"
	SourceToken        SourceTag = "xudt"
	SourceLayer1Token  SourceTag = "layer1-xudt"

	// Digital objects are tagged too but never ranked with balances.
	SourceDOB       SourceTag = "dob"
	SourceLayer1DOB SourceTag = "layer1-dob"
)

// Rank orders balances in the combined asset list:
// native first, then the layer-1 native asset, then tokens, then layer-1 tokens.
func (t SourceTag) Rank() int {
	switch t {
	case SourceNative:
		return 0
	case SourceLayer1Native:
		return 1
	case SourceToken:
		return 2
	case SourceLayer1Token:
		return 3
	default:
		return 4
	}
}

// AssetBalance is one displayable balance. Values are never mutated after
// construction; Amount must be treated as read-only.
type AssetBalance struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name,omitempty"`
	Amount   *big.Int  `json:"amount"`
	Decimals int32     `json:"decimals"`
	Source   SourceTag `json:"source"`
	// TypeArgs identifies the token script for xUDT balances.
	TypeArgs string `json:"type_args,omitempty"`
}

// NewAssetBalance copies amount so the caller may reuse its big.Int.
func NewAssetBalance(symbol string, amount *big.Int, decimals int32, source SourceTag) AssetBalance {
	amt := new(big.Int)
	if amount != nil {
		amt.Set(amount)
	}
	return AssetBalance{
		Symbol:   symbol,
		Amount:   amt,
		Decimals: decimals,
		Source:   source,
	}
}

// Display returns the amount scaled by Decimals.
func (b AssetBalance) Display() decimal.Decimal {
	if b.Amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b.Amount, -b.Decimals)
}

func (b AssetBalance) String() string {
	return b.Display().String() + " " + b.Symbol
}

// TokenDescriptor describes a fungible token a user can transfer.
type TokenDescriptor struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals int32  `json:"decimals" yaml:"decimals"`
	// ScriptArgs is the xUDT type script args, hex encoded.
	ScriptArgs string `json:"script_args" yaml:"script_args"`
}

// ParseAmount converts a human amount ("12.5") into base units.
func (t TokenDescriptor) ParseAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(t.Decimals).BigInt(), nil
}

package domain

import (
	"math/big"
	"testing"
)

func TestResolveAddressSet(t *testing.T) {
	tests := []struct {
		name    string
		primary Address
		list    []Address
		want    AddressSet
	}{
		{"no list", "ckb1a", nil, AddressSet{"ckb1a"}},
		{"list contains primary", "ckb1b", []Address{"ckb1a", "ckb1b", "ckb1c"}, AddressSet{"ckb1a", "ckb1b", "ckb1c"}},
		{"list without primary", "ckb1x", []Address{"ckb1a", "ckb1b"}, AddressSet{"ckb1x"}},
		{"duplicates collapse", "ckb1a", []Address{"ckb1a", "ckb1a", "ckb1b"}, AddressSet{"ckb1a", "ckb1b"}},
		{"empty primary", "", []Address{"ckb1a"}, AddressSet{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAddressSet(tt.primary, tt.list)
			if got.Key() != tt.want.Key() {
				t.Errorf("ResolveAddressSet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddressSetKeyRoundTrip(t *testing.T) {
	set := NewAddressSet("ckb1a", "ckb1b")
	back := ParseAddressSetKey(set.Key())
	if back.Key() != set.Key() || len(back) != 2 {
		t.Fatalf("ParseAddressSetKey(%q) = %v", set.Key(), back)
	}
	if len(ParseAddressSetKey("")) != 0 {
		t.Error("empty key should give empty set")
	}
}

func TestNetworkOfAddress(t *testing.T) {
	if NetworkOfAddress("ckt1qyq") != NetworkTestnet {
		t.Error("ckt prefix should be testnet")
	}
	if NetworkOfAddress("ckb1qyq") != NetworkMainnet {
		t.Error("ckb prefix should be mainnet")
	}
	if NetworkOfAddress("bc1q") != NetworkMainnet {
		t.Error("unknown prefix falls back to mainnet")
	}
}

func TestParseNetwork(t *testing.T) {
	if n, err := ParseNetwork(" Testnet "); err != nil || n != NetworkTestnet {
		t.Errorf("ParseNetwork() = %v, %v", n, err)
	}
	if _, err := ParseNetwork("devnet"); err == nil {
		t.Error("expected error for unknown network")
	}
}

func TestAssetBalanceDisplay(t *testing.T) {
	b := NewAssetBalance("CKB", big.NewInt(12_345_000_000), 8, SourceNative)
	if got := b.String(); got != "123.45 CKB" {
		t.Errorf("String() = %q", got)
	}

	amt := big.NewInt(7)
	b = NewAssetBalance("TOK", amt, 0, SourceToken)
	amt.SetInt64(9)
	if b.Amount.Int64() != 7 {
		t.Error("balance must not alias the caller's amount")
	}
}

func TestSourceTagRank(t *testing.T) {
	order := []SourceTag{SourceNative, SourceLayer1Native, SourceToken, SourceLayer1Token}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("%s should rank before %s", order[i-1], order[i])
		}
	}
}

func TestTokenDescriptorParseAmount(t *testing.T) {
	tok := TokenDescriptor{Symbol: "TOK", Decimals: 8}
	got, err := tok.ParseAmount("1.5")
	if err != nil {
		t.Fatal(err)
	}
	if got.Cmp(big.NewInt(150_000_000)) != 0 {
		t.Errorf("ParseAmount() = %s", got)
	}
}

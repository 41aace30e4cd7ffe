package sources

import (
	"context"
	"fmt"
	"math/big"
	"net/url"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

const (
	BTCSymbol   = "BTC"
	BTCDecimals = 8
)

// layer1Params maps a bitcoin address to the params it decodes under and
// the CKB network its bridged assets live on.
func layer1Params(addr string) (*chaincfg.Params, domain.Network) {
	if strings.HasPrefix(addr, "tb1") {
		return &chaincfg.TestNet3Params, domain.NetworkTestnet
	}
	return &chaincfg.MainNetParams, domain.NetworkMainnet
}

// IsLayer1Address reports whether addr is a bech32 bitcoin address.
func IsLayer1Address(addr string) bool {
	if !strings.HasPrefix(addr, "bc1") && !strings.HasPrefix(addr, "tb1") {
		return false
	}
	params, _ := layer1Params(addr)
	decoded, err := btcutil.DecodeAddress(addr, params)
	return err == nil && decoded.IsForNet(params)
}

// Layer1Assets is everything one bitcoin address holds.
type Layer1Assets struct {
	BTC    *domain.AssetBalance
	Tokens []domain.AssetBalance
	DOBs   []domain.DigitalObject
}

// Balances returns BTC followed by bridged tokens.
func (a *Layer1Assets) Balances() []domain.AssetBalance {
	out := make([]domain.AssetBalance, 0, len(a.Tokens)+1)
	if a.BTC != nil {
		out = append(out, *a.BTC)
	}
	return append(out, a.Tokens...)
}

// Layer1Fetcher reads bitcoin-anchored assets from a BTC assets API.
// Concurrent fetches for the same address share one round of requests.
type Layer1Fetcher struct {
	api      *Backend
	registry *Registry
	group    singleflight.Group
}

func NewLayer1Fetcher(api *Backend, registry *Registry) *Layer1Fetcher {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Layer1Fetcher{api: api, registry: registry}
}

type btcBalance struct {
	Address      string `json:"address"`
	TotalSatoshi int64  `json:"total_satoshi"`
}

type rgbppScript struct {
	CodeHash common.Hash   `json:"codeHash"`
	HashType string        `json:"hashType"`
	Args     hexutil.Bytes `json:"args"`
}

type rgbppXudt struct {
	Name        string       `json:"name"`
	Symbol      string       `json:"symbol"`
	Decimal     int32        `json:"decimal"`
	TotalAmount string       `json:"total_amount"`
	TypeScript  *rgbppScript `json:"type_script"`
}

type rgbppBalance struct {
	Address string      `json:"address"`
	Xudt    []rgbppXudt `json:"xudt"`
}

type rgbppCell struct {
	CellOutput struct {
		Capacity string       `json:"capacity"`
		Type     *rgbppScript `json:"type"`
	} `json:"cellOutput"`
	Data     hexutil.Bytes `json:"data"`
	OutPoint struct {
		TxHash common.Hash `json:"txHash"`
		Index  string      `json:"index"`
	} `json:"outPoint"`
}

// Assets loads BTC, bridged tokens and bridged DOBs of q.
func (f *Layer1Fetcher) Assets(ctx context.Context, q Layer1Query) (*Layer1Assets, error) {
	if !IsLayer1Address(q.Address) {
		return nil, fmt.Errorf("not a layer-1 address: %s", q.Address)
	}
	v, err, _ := f.group.Do(q.Address, func() (any, error) {
		return f.load(ctx, q.Address)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Layer1Assets), nil
}

func (f *Layer1Fetcher) load(ctx context.Context, addr string) (*Layer1Assets, error) {
	_, network := layer1Params(addr)
	escaped := url.PathEscape(addr)

	var (
		btc   btcBalance
		xudts rgbppBalance
		cells []rgbppCell
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.api.Get(gctx, network, "bitcoin/v1/address/"+escaped+"/balance", &btc)
	})
	g.Go(func() error {
		return f.api.Get(gctx, network, "rgbpp/v1/address/"+escaped+"/balance", &xudts)
	})
	g.Go(func() error {
		return f.api.Get(gctx, network, "rgbpp/v1/address/"+escaped+"/assets", &cells)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assets := &Layer1Assets{
		Tokens: make([]domain.AssetBalance, 0, len(xudts.Xudt)),
		DOBs:   []domain.DigitalObject{},
	}
	b := domain.NewAssetBalance(BTCSymbol, big.NewInt(btc.TotalSatoshi), BTCDecimals, domain.SourceLayer1Native)
	b.Name = "Bitcoin"
	assets.BTC = &b

	for _, x := range xudts.Xudt {
		amount, err := parseAmount(x.TotalAmount)
		if err != nil {
			return nil, fmt.Errorf("token %s amount: %w", x.Symbol, err)
		}
		tb := domain.NewAssetBalance(x.Symbol, amount, x.Decimal, domain.SourceLayer1Token)
		tb.Name = x.Name
		if x.TypeScript != nil {
			tb.TypeArgs = hexutil.Encode(x.TypeScript.Args)
			if t, ok := f.registry.Lookup(tb.TypeArgs); ok && tb.Symbol == "" {
				tb.Symbol, tb.Name = t.Symbol, t.Name
			}
		}
		assets.Tokens = append(assets.Tokens, tb)
	}

	spore := ckb.DefaultScripts(network).Spore
	for _, c := range cells {
		t := c.CellOutput.Type
		if t == nil || t.CodeHash != spore.CodeHash {
			continue
		}
		dob := toDigitalObject(ckb.Cell{
			Output: ckb.CellOutput{Type: &ckb.Script{CodeHash: t.CodeHash, HashType: ckb.HashType(t.HashType), Args: t.Args}},
			Data:   c.Data,
		}, domain.Address(addr))
		dob.OutPoint = c.OutPoint.TxHash.Hex() + ":" + c.OutPoint.Index
		dob.Source = domain.SourceLayer1DOB
		assets.DOBs = append(assets.DOBs, dob)
	}
	return assets, nil
}

// FetchBalances adapts Assets to a balance feed.
func (f *Layer1Fetcher) FetchBalances(ctx context.Context, q Layer1Query) ([]domain.AssetBalance, error) {
	assets, err := f.Assets(ctx, q)
	if err != nil {
		return nil, err
	}
	return assets.Balances(), nil
}

// FetchDOBs adapts Assets to a digital object feed.
func (f *Layer1Fetcher) FetchDOBs(ctx context.Context, q Layer1Query) ([]domain.DigitalObject, error) {
	assets, err := f.Assets(ctx, q)
	if err != nil {
		return nil, err
	}
	return assets.DOBs, nil
}

// parseAmount accepts decimal or 0x-prefixed hex.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

package signer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

type rpcRequest struct {
	ID     int               `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newSignerServer(t *testing.T, results map[string]any, seen *[]rpcRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request: %v", err)
			return
		}
		*seen = append(*seen, req)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if res, ok := results[req.Method]; ok {
			resp["result"] = res
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConnector_Detect(t *testing.T) {
	if NewConnector(Config{}).Detect() {
		t.Error("no URL should mean no wallet")
	}
	if !NewConnector(Config{URL: "http://localhost:1"}).Detect() {
		t.Error("configured URL should be detected")
	}
}

func TestConnectorAndSigner(t *testing.T) {
	var seen []rpcRequest
	srv := newSignerServer(t, map[string]any{
		methodConnect:            map[string]string{"wallet": "JoyID"},
		methodInternalAddress:    "ckt1internal",
		methodRecommendedAddress: "ckt1recommended",
		methodAddresses:          []string{"ckt1recommended", "ckt1other"},
		methodSendTransaction:    "0xhash",
	}, &seen)

	ctx := context.Background()
	conn := NewConnector(Config{URL: srv.URL, Timeout: 5 * time.Second})
	s, wallet, err := conn.Connect(ctx, domain.NetworkTestnet)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if wallet.Name != "JoyID" {
		t.Errorf("wallet = %q", wallet.Name)
	}
	var network string
	if err := json.Unmarshal(seen[0].Params[0], &network); err != nil || network != "testnet" {
		t.Errorf("connect params = %s", seen[0].Params)
	}

	if got, _ := s.GetInternalAddress(ctx); got != "ckt1internal" {
		t.Errorf("internal = %q", got)
	}
	if got, _ := s.GetRecommendedAddress(ctx); got != "ckt1recommended" {
		t.Errorf("recommended = %q", got)
	}
	if got, _ := s.GetAddresses(ctx); len(got) != 2 {
		t.Errorf("addresses = %v", got)
	}

	hash, err := s.SendTransaction(ctx, &ckb.Transaction{})
	if err != nil || hash != "0xhash" {
		t.Fatalf("SendTransaction = %q, %v", hash, err)
	}
	last := seen[len(seen)-1]
	if last.Method != methodSendTransaction || len(last.Params) != 1 {
		t.Errorf("unexpected send request %+v", last)
	}

	// signer_disconnect is not served; the error is reported
	if err := conn.Disconnect(); err == nil {
		t.Error("expected disconnect error from server")
	}
}

func TestConnector_FallbackWalletName(t *testing.T) {
	var seen []rpcRequest
	srv := newSignerServer(t, map[string]any{methodConnect: map[string]string{}}, &seen)

	_, wallet, err := NewConnector(Config{URL: srv.URL, Wallet: "MetaMask"}).Connect(context.Background(), domain.NetworkMainnet)
	if err != nil {
		t.Fatal(err)
	}
	if wallet.Name != "MetaMask" {
		t.Errorf("wallet = %q", wallet.Name)
	}
}

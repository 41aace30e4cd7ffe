package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPProvider_ExecuteREST(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/address_transactions/ckb1qyq" {
			t.Errorf("expected path /address_transactions/ckb1qyq, got %s", r.URL.Path)
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodGet {
			t.Errorf("expected method GET, got %s", r.Method)
		}
		if r.URL.Query().Get("page") != "2" {
			t.Errorf("expected page=2, got %q", r.URL.Query().Get("page"))
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.api+json" {
			t.Errorf("expected JSON:API accept header, got %q", got)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"id": "1"}},
		})
	}))
	defer server.Close()

	p := NewHTTPProvider("explorer-mock", server.URL+"/", 5*time.Second)

	op := Operation{
		Name:    "address_transactions/ckb1qyq?page=2",
		IsREST:  true,
		Headers: map[string]string{"Accept": "application/vnd.api+json"},
	}

	result, err := p.Execute(context.Background(), op)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", result)
	}
	if rows, ok := data["data"].([]any); !ok || len(rows) != 1 {
		t.Errorf("expected one data row, got %v", data["data"])
	}
}

func TestHTTPProvider_ExecuteREST_WithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if num, ok := body["num"].(float64); !ok || num != 12345 {
			t.Errorf("expected num=12345, got %v", body["num"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer server.Close()

	p := NewHTTPProvider("rest-mock", server.URL, 5*time.Second)

	op := Operation{
		Name:       "submit",
		IsREST:     true,
		RESTMethod: http.MethodPost,
		Params:     map[string]any{"num": 12345},
	}

	if _, err := p.Execute(context.Background(), op); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPProvider_Call(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode body: %v", err)
			return
		}
		if req["jsonrpc"] != "2.0" {
			t.Errorf("expected jsonrpc 2.0, got %v", req["jsonrpc"])
		}
		switch req["method"] {
		case "get_tip_block_number":
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req["id"], "result": "0x10"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      req["id"],
				"error":   map[string]any{"code": -32601, "message": "method not found"},
			})
		}
	}))
	defer server.Close()

	p := NewHTTPProvider("node-mock", server.URL, 5*time.Second)

	result, err := p.Execute(context.Background(), Operation{Name: "get_tip_block_number"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0x10" {
		t.Errorf("expected 0x10, got %v", result)
	}

	_, err = p.Call(context.Background(), "nope", nil)
	if err == nil || !strings.Contains(err.Error(), "-32601") {
		t.Errorf("expected method-not-found error with code, got %v", err)
	}
	if p.GetHealth().ErrorRate == 0 {
		t.Error("expected failure to be recorded")
	}
}

func TestHTTPProvider_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewHTTPProvider("limited", server.URL, 5*time.Second)

	_, err := p.Call(context.Background(), "get_tip_block_number", nil)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected 429 error, got %v", err)
	}
	if p.IsAvailable() {
		t.Error("expected provider to be unavailable while throttled")
	}

	// The next call is refused locally without hitting the server.
	if _, err := p.Call(context.Background(), "get_tip_block_number", nil); err == nil {
		t.Error("expected throttled provider to refuse the call")
	}
}

func TestRestLabel(t *testing.T) {
	tests := map[string]string{
		"address_transactions/ckb1?page=1": "address_transactions",
		"/bitcoin/v1/address/bc1q/balance": "bitcoin",
		"health":                           "health",
	}
	for in, want := range tests {
		if got := restLabel(in); got != want {
			t.Errorf("restLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

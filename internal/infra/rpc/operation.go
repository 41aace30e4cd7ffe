package rpc

import (
	"net/http"

	"github.com/vietddude/walletview/internal/infra/rpc/provider"
)

// NewHTTPOperation creates an Operation for JSON-RPC calls.
func NewHTTPOperation(method string, params []any) Operation {
	return provider.Operation{
		Name:   method,
		Params: params,
	}
}

// NewRESTOperation creates an Operation for REST API calls.
func NewRESTOperation(path string, method string, body any) Operation {
	return provider.Operation{
		Name:       path,
		Params:     body,
		IsREST:     true,
		RESTMethod: method,
	}
}

// NewGetOperation creates a REST GET with extra headers.
func NewGetOperation(path string, headers map[string]string) Operation {
	op := NewRESTOperation(path, http.MethodGet, nil)
	op.Headers = headers
	return op
}

package sources

import (
	"strings"
	"sync"

	"github.com/vietddude/walletview/internal/core/domain"
	"github.com/vietddude/walletview/internal/infra/ckb"
)

// Registry resolves token metadata from type script args.
type Registry struct {
	mu       sync.RWMutex
	byArgs   map[string]domain.TokenDescriptor
	bySymbol map[string]domain.TokenDescriptor
}

func NewRegistry(tokens ...domain.TokenDescriptor) *Registry {
	r := &Registry{
		byArgs:   make(map[string]domain.TokenDescriptor),
		bySymbol: make(map[string]domain.TokenDescriptor),
	}
	for _, t := range tokens {
		r.Add(t)
	}
	return r
}

func normalizeArgs(args string) string {
	return strings.ToLower(ckb.NormalizeTokenArgs(args))
}

// Add registers t, replacing any token with the same args.
func (r *Registry) Add(t domain.TokenDescriptor) {
	t.ScriptArgs = normalizeArgs(t.ScriptArgs)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byArgs[t.ScriptArgs] = t
	if t.Symbol != "" {
		r.bySymbol[strings.ToUpper(t.Symbol)] = t
	}
}

func (r *Registry) Lookup(args string) (domain.TokenDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byArgs[normalizeArgs(args)]
	return t, ok
}

// BySymbol finds a token by case-insensitive symbol.
func (r *Registry) BySymbol(symbol string) (domain.TokenDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.bySymbol[strings.ToUpper(symbol)]
	return t, ok
}

// Describe returns the registered token or a placeholder named after args.
func (r *Registry) Describe(args string) domain.TokenDescriptor {
	if t, ok := r.Lookup(args); ok {
		return t
	}
	args = normalizeArgs(args)
	short := strings.TrimPrefix(args, "0x")
	if len(short) > 8 {
		short = short[:8]
	}
	return domain.TokenDescriptor{Symbol: strings.ToUpper(short), Name: "Unknown xUDT", ScriptArgs: args}
}

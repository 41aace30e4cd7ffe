package memory

import (
	"context"
	"sync"

	"github.com/vietddude/walletview/internal/infra/storage"
)

type MemoryStorage struct {
	prefs map[string]string
	mu    sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		prefs: make(map[string]string),
	}
}

// -----------------------------------------------------------------------------
// Preference Repository
// -----------------------------------------------------------------------------

type PreferenceRepo struct {
	store *MemoryStorage
}

func NewPreferenceRepo(store *MemoryStorage) *PreferenceRepo {
	return &PreferenceRepo{store: store}
}

func (r *PreferenceRepo) Get(ctx context.Context, key string) (string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	v, ok := r.store.prefs[key]
	if !ok {
		return "", storage.ErrPreferenceNotFound
	}
	return v, nil
}

func (r *PreferenceRepo) Set(ctx context.Context, key, value string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.prefs[key] = value
	return nil
}

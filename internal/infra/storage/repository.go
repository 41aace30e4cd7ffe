package storage

import (
	"context"
	"errors"
)

var (
	// ErrPreferenceNotFound is returned when a key was never written
	ErrPreferenceNotFound = errors.New("preference not found")
)

// NetworkKey holds the persisted active network ("mainnet" or "testnet").
const NetworkKey = "ckb_network"

// PreferenceRepository persists small string settings across sessions
type PreferenceRepository interface {
	// Get returns the value for key or ErrPreferenceNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set writes value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error
}

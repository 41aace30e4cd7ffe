// Package file stores preferences in a small YAML document on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/walletview/internal/infra/storage"
)

// PreferenceRepo implements storage.PreferenceRepository on a YAML file.
type PreferenceRepo struct {
	path string
	mu   sync.Mutex
}

// NewPreferenceRepo returns a repository backed by path. The file is
// created on the first Set.
func NewPreferenceRepo(path string) *PreferenceRepo {
	return &PreferenceRepo{path: path}
}

func (r *PreferenceRepo) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefs, err := r.load()
	if err != nil {
		return "", err
	}
	v, ok := prefs[key]
	if !ok {
		return "", storage.ErrPreferenceNotFound
	}
	return v, nil
}

func (r *PreferenceRepo) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefs, err := r.load()
	if err != nil {
		return err
	}
	prefs[key] = value

	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create preferences dir: %w", err)
		}
	}

	// Write then rename so a crash never leaves a truncated file
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

func (r *PreferenceRepo) load() (map[string]string, error) {
	prefs := make(map[string]string)
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return prefs, nil
}

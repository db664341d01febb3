package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// MemoryStore keeps settings in process. It is used by tests and by callers
// that never persist preferences.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMemoryStore(initial map[string]any) *MemoryStore {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &MemoryStore{values: values}
}

func (m *MemoryStore) Get(ctx context.Context, keys []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

// FileStore persists settings in a single config file. The format follows
// the file extension (toml, yaml or json).
type FileStore struct {
	Path string

	mu sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (f *FileStore) read() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigFile(f.Path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	return v, nil
}

func (f *FileStore) Get(ctx context.Context, keys []string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v.IsSet(k) {
			out[k] = v.Get(k)
		}
	}
	return out, nil
}

func (f *FileStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return err
	}
	for k, val := range values {
		v.Set(k, val)
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := v.WriteConfigAs(f.Path); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}

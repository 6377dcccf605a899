package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/kbukum/etlkit/logger"
)

// Factory creates a Storage implementation for one provider.
type Factory func(ctx context.Context, cfg Config) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a storage backend factory for the given provider name.
// Implementation packages call this in an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates a Storage implementation based on cfg.Provider. The provider
// package must be imported so its factory is registered.
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	log.WithComponent("storage").Info("initializing storage", logger.Fields("provider", cfg.Provider))
	s, err := f(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Prefix != "" {
		s = &prefixed{Storage: s, cfg: cfg}
	}
	return s, nil
}

// prefixed scopes every key under Config.Prefix.
type prefixed struct {
	Storage
	cfg Config
}

func (p *prefixed) Upload(ctx context.Context, path string, r io.Reader) error {
	return p.Storage.Upload(ctx, p.cfg.Key(path), r)
}

func (p *prefixed) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	return p.Storage.Download(ctx, p.cfg.Key(path))
}

func (p *prefixed) Delete(ctx context.Context, path string) error {
	return p.Storage.Delete(ctx, p.cfg.Key(path))
}

func (p *prefixed) Exists(ctx context.Context, path string) (bool, error) {
	return p.Storage.Exists(ctx, p.cfg.Key(path))
}

func (p *prefixed) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	files, err := p.Storage.List(ctx, p.cfg.Key(prefix))
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Path = strings.TrimPrefix(files[i].Path, p.cfg.Prefix+"/")
	}
	return files, nil
}

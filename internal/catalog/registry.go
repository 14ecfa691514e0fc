package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/mohammed-shakir/crsfinder/internal/core/config"
)

type Factory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (Provider, error)

var (
	regMu sync.RWMutex
	reg   = map[string]Factory{}
)

// Register makes a driver available to Open. Drivers register themselves
// from init.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	reg[name] = f
}

// Open builds the provider for cfg.CatalogDriver.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (Provider, error) {
	regMu.RLock()
	f, ok := reg[cfg.CatalogDriver]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %v)", ErrUnknownDriver, cfg.CatalogDriver, Drivers())
	}
	return f(ctx, cfg, logger)
}

func Drivers() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(reg))
	for name := range reg {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("memory", func(context.Context, config.Config, *slog.Logger) (Provider, error) {
		return NewMemory(nil), nil
	})
}

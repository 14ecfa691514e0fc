// Package catalog holds the read-only table of CRS extents that queries are
// evaluated against.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
)

var (
	ErrNotLoaded     = errors.New("catalog not loaded")
	ErrUnknownDriver = errors.New("unknown catalog driver")
)

// Provider loads every catalog row from a backing store.
type Provider interface {
	Name() string
	Load(ctx context.Context) ([]model.CrsBBox, error)
}

// Catalog serves the current snapshot and swaps in a new one on Reload.
// Queries hold on to the snapshot they started with.
type Catalog struct {
	provider Provider
	opts     []SnapshotOption
	logger   *slog.Logger

	reloadMu sync.Mutex
	cur      atomic.Pointer[Snapshot]
	reloads  atomic.Uint64

	onSwap []func(old, cur *Snapshot)
}

func New(p Provider, logger *slog.Logger, opts ...SnapshotOption) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{provider: p, opts: opts, logger: logger}
}

// OnSwap registers fn to run after every successful reload.
func (c *Catalog) OnSwap(fn func(old, cur *Snapshot)) {
	c.onSwap = append(c.onSwap, fn)
}

// Current returns the active snapshot or ErrNotLoaded.
func (c *Catalog) Current() (*Snapshot, error) {
	s := c.cur.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Ready reports whether a snapshot is loaded, for readiness probes.
func (c *Catalog) Ready() bool { return c.cur.Load() != nil }

// Reload loads all rows from the provider and swaps in a new snapshot. On
// failure the previous snapshot stays active. Concurrent reloads run one at
// a time.
func (c *Catalog) Reload(ctx context.Context) (*Snapshot, error) {
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	start := time.Now()
	src := c.provider.Name()
	rows, err := c.provider.Load(ctx)
	if err != nil {
		observability.ObserveCatalogReload(src, err, 0, 0, time.Since(start).Seconds())
		return nil, fmt.Errorf("load %s catalog: %w", src, err)
	}
	opts := append([]SnapshotOption{WithSource(src)}, c.opts...)
	snap, err := NewSnapshot(rows, opts...)
	if err != nil {
		observability.ObserveCatalogReload(src, err, 0, 0, time.Since(start).Seconds())
		return nil, fmt.Errorf("build snapshot: %w", err)
	}
	observability.ObserveCatalogReload(src, nil, snap.Len(), len(snap.Skipped()), time.Since(start).Seconds())

	old := c.cur.Swap(snap)
	c.reloads.Add(1)
	for _, fn := range c.onSwap {
		fn(old, snap)
	}

	if skipped := snap.Skipped(); len(skipped) > 0 {
		c.logger.WarnContext(ctx, "catalog rows skipped", "count", len(skipped), "first", skipped[0].Error())
	}
	c.logger.InfoContext(ctx, "catalog loaded",
		"source", snap.Source(),
		"rows", snap.Len(),
		"version", snap.Version(),
		"indexed", snap.Indexed(),
		"took", time.Since(start).String())
	return snap, nil
}

// Reloads returns the number of successful reloads.
func (c *Catalog) Reloads() uint64 { return c.reloads.Load() }

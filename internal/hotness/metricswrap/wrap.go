// Package metricswrap wraps a hotness tracker with Prometheus metrics and
// sampled threshold logging.
package metricswrap

import (
	"fmt"
	"log/slog"

	xx "github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
	"github.com/mohammed-shakir/crsfinder/internal/hotness"
)

type Sizer interface{ Size() int }

type Options struct {
	// Threshold logs cells whose score reaches it. Zero disables logging.
	Threshold float64
	// LogSample is the fraction of hot cells that get logged.
	LogSample float64
	Logger    *slog.Logger
}

type WithMetrics struct {
	inner hotness.Interface
	opts  Options
}

var (
	_ hotness.Interface = (*WithMetrics)(nil)
	_ hotness.Ranker    = (*WithMetrics)(nil)
	_ hotness.Pruner    = (*WithMetrics)(nil)
)

func New(inner hotness.Interface, opts Options) *WithMetrics {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &WithMetrics{inner: inner, opts: opts}
}

func (w *WithMetrics) Inc(cell string) {
	w.inner.Inc(cell)
	if w.opts.Threshold > 0 {
		score := w.inner.Score(cell)
		if score >= w.opts.Threshold && shouldLog(w.opts.LogSample, cell) {
			w.opts.Logger.Info("hot cell above threshold",
				"event", "hotness_threshold",
				"score", score,
				"cell", cell,
				"cell_hash", fmt.Sprintf("%08x", xx.Sum64String(cell)))
		}
	}
	w.publishSize()
}

func (w *WithMetrics) Score(cell string) float64 {
	return w.inner.Score(cell)
}

func (w *WithMetrics) Reset(cells ...string) {
	w.inner.Reset(cells...)
	w.publishSize()
}

// Top delegates to the wrapped tracker; it is empty when the tracker cannot
// rank.
func (w *WithMetrics) Top(n int) []hotness.Entry {
	if r, ok := w.inner.(hotness.Ranker); ok {
		return r.Top(n)
	}
	return nil
}

func (w *WithMetrics) ResetAll() {
	if r, ok := w.inner.(hotness.Ranker); ok {
		r.ResetAll()
	}
	w.publishSize()
}

// Prune is a no-op when the tracker cannot prune.
func (w *WithMetrics) Prune(below float64) int {
	p, ok := w.inner.(hotness.Pruner)
	if !ok {
		return 0
	}
	n := p.Prune(below)
	w.publishSize()
	return n
}

func (w *WithMetrics) publishSize() {
	if s, ok := w.inner.(Sizer); ok {
		observability.SetHotCells(s.Size())
	}
}

func shouldLog(sample float64, key string) bool {
	if sample <= 0 {
		return false
	}
	if sample >= 1 {
		return true
	}
	const denom = 10000 // 0.01 => 100/10000
	threshold := uint64(sample*denom + 0.5)
	if threshold == 0 {
		return false
	}
	h := xx.Sum64String(key)
	return (h % denom) < threshold
}

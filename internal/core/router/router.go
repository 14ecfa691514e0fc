// Package router serves the query API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/crsfinder/internal/cache/keys"
	"github.com/mohammed-shakir/crsfinder/internal/cache/resultcache"
	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	"github.com/mohammed-shakir/crsfinder/internal/core/executor"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
	"github.com/mohammed-shakir/crsfinder/internal/geometry"
	"github.com/mohammed-shakir/crsfinder/internal/hotness"
	mylog "github.com/mohammed-shakir/crsfinder/internal/logger"
	"github.com/mohammed-shakir/crsfinder/internal/projection"
	"github.com/mohammed-shakir/crsfinder/internal/queryevents"
	"github.com/mohammed-shakir/crsfinder/pkg/adaptive"
)

const maxWarningHeaders = 20

type Catalog interface {
	Current() (*catalog.Snapshot, error)
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

type ResultCache interface {
	DoWith(ctx context.Context, key string, so resultcache.StoreOptions, fn func(context.Context) (executor.Result, error)) (executor.Result, resultcache.Status, error)
}

type Hotspots interface {
	Record(q model.Query) []string
	Score(cell string) float64
	Top(n int) []hotness.Entry
	TopAt(n, res int) ([]hotness.Entry, error)
	Reset(bb *model.BBox) (int, error)
	Res() int
}

type EventPublisher interface {
	Publish(ev queryevents.Event) bool
}

type Handler struct {
	logger  *slog.Logger
	catalog Catalog
	exec    executor.Interface
	cache   ResultCache
	hot     Hotspots
	events  EventPublisher
	policy  adaptive.Decider
	timeout time.Duration
}

type Option func(*Handler)

func WithCache(c ResultCache) Option { return func(h *Handler) { h.cache = c } }
func WithHotspots(hs Hotspots) Option { return func(h *Handler) { h.hot = hs } }
func WithEvents(p EventPublisher) Option { return func(h *Handler) { h.events = p } }
func WithTimeout(d time.Duration) Option { return func(h *Handler) { h.timeout = d } }

// WithCachePolicy lets query hotness pick the shared cache TTL. It only takes
// effect together with WithHotspots.
func WithCachePolicy(d adaptive.Decider) Option { return func(h *Handler) { h.policy = d } }

func New(logger *slog.Logger, cat Catalog, exec executor.Interface, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{logger: logger, catalog: cat, exec: exec}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Routes mounts the query API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/query", h.handleQuery)
	r.Post("/query", h.handleQuery)
	r.Get("/query/mixed", h.handleMixed)
	r.Get("/crs", h.handleAll)
	r.Post("/catalog/reload", h.handleReload)
	r.Get("/hotspots", h.handleHotspots)
	r.Delete("/hotspots", h.handleHotspotsReset)
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	req, err := ParseQueryRequest(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	for _, warn := range req.Warnings {
		h.logger.WarnContext(r.Context(), warn)
	}

	q := req.Query
	var (
		cells []string
		so    resultcache.StoreOptions
	)
	if h.hot != nil {
		cells = h.hot.Record(q)
		if h.policy != nil {
			dec, reason := h.policy.Decide(adaptive.Query{Cells: cells}, h.hot)
			so = resultcache.StoreOptions{TTL: dec.TTL, LocalOnly: dec.Type == adaptive.DecisionLocal}
			h.logger.DebugContext(r.Context(), "cache policy", "decision", dec.Type.String(), "reason", string(reason), "ttl", dec.TTL)
		}
	}

	res, status, took, err := h.run(r.Context(), keys.Key(snap.Version(), q), so, func(ctx context.Context) (executor.Result, error) {
		return h.exec.Execute(ctx, snap, q)
	})
	kind, op := string(q.Kind), string(q.Op)
	if err != nil {
		observability.ObserveQuery(kind, op, "error", 0, 0, took.Seconds())
		h.fail(w, r, err)
		return
	}
	res.Warnings = append(req.Warnings, res.Warnings...)
	observability.ObserveQuery(kind, op, outcome(status), len(res.Rows), len(res.Warnings), took.Seconds())

	if h.events != nil {
		geoms := make([]string, len(q.Geometries))
		for i, g := range q.Geometries {
			geoms[i] = g.String()
		}
		h.events.Publish(queryevents.Event{
			RequestID:      mylog.RequestID(r.Context()),
			CatalogVersion: snap.Version(),
			Kind:           kind,
			Op:             op,
			Coords:         string(q.Coords),
			Unit:           q.Unit,
			Geometries:     geoms,
			Cells:          cells,
			Rows:           len(res.Rows),
			Skipped:        len(res.Warnings),
			Cache:          string(status),
			DurationMS:     float64(took.Microseconds()) / 1000,
		})
	}

	h.write(w, r, snap, status, res, req.Format, req.Output)
}

func (h *Handler) handleMixed(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	v := r.URL.Query()
	words := strings.Fields(v.Get("q"))
	words = append(words, v["w"]...)
	if len(words) == 0 {
		http.Error(w, "missing required parameter: q", http.StatusBadRequest)
		return
	}
	format, opts, err := outputFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, status, took, err := h.run(r.Context(), keys.MixedKey(snap.Version(), words), resultcache.StoreOptions{}, func(ctx context.Context) (executor.Result, error) {
		return h.exec.ExecuteMixed(ctx, snap, words)
	})
	if err != nil {
		observability.ObserveQuery("mixed", "mixed", "error", 0, 0, took.Seconds())
		h.fail(w, r, err)
		return
	}
	observability.ObserveQuery("mixed", "mixed", outcome(status), len(res.Rows), len(res.Warnings), took.Seconds())
	h.write(w, r, snap, status, res, format, opts)
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w, r)
	if !ok {
		return
	}
	format, opts, err := outputFor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	unit := strings.TrimSpace(r.URL.Query().Get("unit"))
	res := executor.Result{Rows: snap.All(unit)}
	h.write(w, r, snap, resultcache.StatusMiss, res, format, opts)
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.catalog.Reload(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "catalog reload failed", "err", err)
		http.Error(w, "catalog reload failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version": snap.Version(),
		"rows":    snap.Len(),
		"skipped": len(snap.Skipped()),
		"source":  snap.Source(),
		"indexed": snap.Indexed(),
	})
}

func (h *Handler) handleHotspots(w http.ResponseWriter, r *http.Request) {
	if h.hot == nil {
		http.Error(w, "hotspot tracking disabled", http.StatusNotFound)
		return
	}
	n := 10
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			http.Error(w, "n must be a positive integer", http.StatusBadRequest)
			return
		}
		n = min(v, 1000)
	}
	res := h.hot.Res()
	if s := r.URL.Query().Get("res"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			http.Error(w, "res must be an integer", http.StatusBadRequest)
			return
		}
		res = v
	}
	top, err := h.hot.TopAt(n, res)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if top == nil {
		top = []hotness.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"res": res, "cells": top})
}

func (h *Handler) handleHotspotsReset(w http.ResponseWriter, r *http.Request) {
	if h.hot == nil {
		http.Error(w, "hotspot tracking disabled", http.StatusNotFound)
		return
	}
	var bb *model.BBox
	if s := strings.TrimSpace(r.URL.Query().Get("bbox")); s != "" {
		b, err := geometry.ParseBBox(geometry.Text(s))
		if err != nil {
			http.Error(w, "invalid bbox: "+err.Error(), http.StatusBadRequest)
			return
		}
		bb = &b
	}
	n, err := h.hot.Reset(bb)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reset": n})
}

// run evaluates fn through the result cache when one is configured.
func (h *Handler) run(ctx context.Context, key string, so resultcache.StoreOptions, fn func(context.Context) (executor.Result, error)) (executor.Result, resultcache.Status, time.Duration, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	start := time.Now()
	if h.cache == nil {
		res, err := fn(ctx)
		return res, resultcache.StatusMiss, time.Since(start), err
	}
	res, status, err := h.cache.DoWith(ctx, key, so, fn)
	return res, status, time.Since(start), err
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) (*catalog.Snapshot, bool) {
	snap, err := h.catalog.Current()
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return snap, true
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, snap *catalog.Snapshot, status resultcache.Status, res executor.Result, f projection.Format, opts projection.Options) {
	hdr := w.Header()
	hdr.Set("Content-Type", f.ContentType())
	hdr.Set("X-Catalog-Version", snap.Version())
	hdr.Set("X-Cache", string(status))
	for i, warn := range res.Warnings {
		if i == maxWarningHeaders {
			break
		}
		hdr.Add("X-Query-Warning", warn)
	}
	w.WriteHeader(http.StatusOK)
	if err := projection.Write(w, f, res.Rows, opts); err != nil {
		ctx := mylog.WithCatalogVersion(r.Context(), snap.Version())
		h.logger.WarnContext(ctx, "write response failed", "err", err)
	}
}

// fail maps an error to its HTTP status.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotLoaded):
		code = http.StatusServiceUnavailable
	case errors.Is(err, model.ErrInvalidMode),
		errors.Is(err, executor.ErrMixedQuery),
		errors.Is(err, executor.ErrTooManyGeometries),
		errors.Is(err, geometry.ErrParse),
		errors.Is(err, geometry.ErrValidation),
		errors.Is(err, ErrBadRequest):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	http.Error(w, err.Error(), code)
}

func outcome(s resultcache.Status) string {
	if s == resultcache.StatusMiss {
		return "ok"
	}
	return "cached"
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

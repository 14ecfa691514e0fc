package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	"github.com/mohammed-shakir/crsfinder/internal/catalog/catalogtest"
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
	"github.com/mohammed-shakir/crsfinder/internal/invalidation"
)

type fakeStore struct {
	schema bool
	rows   []model.CrsBBox
	err    error
}

func (s *fakeStore) EnsureSchema(context.Context) error { s.schema = true; return nil }

func (s *fakeStore) Replace(_ context.Context, rows []model.CrsBBox) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.rows = rows
	return int64(len(rows)), nil
}

type fakePublisher struct{ got []invalidation.Event }

func (p *fakePublisher) Publish(_ context.Context, ev invalidation.Event) (invalidation.Event, error) {
	ev.ID = "id-1"
	p.got = append(p.got, ev)
	return ev, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSyncCatalog_CopiesAndPublishesVersion(t *testing.T) {
	st := &fakeStore{}
	pub := &fakePublisher{}
	rows := catalogtest.Rows()

	ev, err := syncCatalog(context.Background(), quiet(), rows, st, pub, "projpicker")
	if err != nil {
		t.Fatalf("syncCatalog: %v", err)
	}
	if !st.schema || len(st.rows) != len(rows) {
		t.Fatalf("schema=%v rows=%d", st.schema, len(st.rows))
	}
	snap, _ := catalog.NewSnapshot(rows)
	if len(pub.got) != 1 || ev.Op != invalidation.OpReload || ev.Catalog != "projpicker" || ev.Version != snap.Version() || ev.ID != "id-1" {
		t.Fatalf("event=%+v published=%d", ev, len(pub.got))
	}
}

func TestSyncCatalog_StoreErrorSkipsPublish(t *testing.T) {
	st := &fakeStore{err: errors.New("copy failed")}
	pub := &fakePublisher{}
	if _, err := syncCatalog(context.Background(), quiet(), catalogtest.Rows(), st, pub, "projpicker"); err == nil {
		t.Fatalf("want error")
	}
	if len(pub.got) != 0 {
		t.Fatalf("published after failed copy")
	}
}

func TestSyncCatalog_WithoutPublisher(t *testing.T) {
	ev, err := syncCatalog(context.Background(), quiet(), catalogtest.Rows(), &fakeStore{}, nil, "projpicker")
	if err != nil || ev.Version == "" {
		t.Fatalf("ev=%+v err=%v", ev, err)
	}
}

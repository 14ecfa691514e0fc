package h3mapper

import (
	"testing"

	h3 "github.com/uber/h3-go/v4"
)

func TestToParent_RollsUp(t *testing.T) {
	m := New()

	baseRes := 8
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 34.2348, Lng: -83.8677}, baseRes)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	cellStr := cell.String()

	parentStr, err := m.ToParent(cellStr, baseRes-3)
	if err != nil {
		t.Fatalf("ToParent: %v", err)
	}
	var parent h3.Cell
	if err := parent.UnmarshalText([]byte(parentStr)); err != nil {
		t.Fatalf("parse parent: %v", err)
	}
	if parent.Resolution() != baseRes-3 {
		t.Fatalf("parent res=%d want %d", parent.Resolution(), baseRes-3)
	}
	want, _ := cell.Parent(baseRes - 3)
	if parentStr != want.String() {
		t.Fatalf("parent=%s want %s", parentStr, want)
	}

	same, err := m.ToParent(cellStr, baseRes)
	if err != nil || same != cellStr {
		t.Fatalf("ToParent same-res: %s %v", same, err)
	}
}

func TestToParent_BadTransitions(t *testing.T) {
	m := New()
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: 21.3, Lng: -157.8}, 9)
	if err != nil {
		t.Fatalf("LatLngToCell: %v", err)
	}
	if _, err := m.ToParent(cell.String(), 10); err == nil {
		t.Fatalf("expected error for parentRes > current res")
	}
	if _, err := m.ToParent("not-a-cell", 3); err == nil {
		t.Fatalf("expected error for malformed cell")
	}
	if _, err := m.ToParent(cell.String(), -1); err == nil {
		t.Fatalf("expected error for negative res")
	}
}

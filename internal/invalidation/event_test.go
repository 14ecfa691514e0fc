package invalidation

import (
	"encoding/json"
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_Validate_HappyPaths(t *testing.T) {
	for _, op := range []string{OpReload, OpPurge} {
		ev := Event{Op: op, Catalog: "projpicker", TS: mustTS()}
		if err := ev.Validate(); err != nil {
			t.Fatalf("%s: unexpected: %v", op, err)
		}
	}
}

func TestEvent_Validate_Rejects(t *testing.T) {
	cases := map[string]Event{
		"op":      {Op: "delete", Catalog: "projpicker", TS: mustTS()},
		"catalog": {Op: OpReload, Catalog: "  ", TS: mustTS()},
		"ts":      {Op: OpReload, Catalog: "projpicker"},
	}
	for name, ev := range cases {
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEvent_WireFormat(t *testing.T) {
	raw := `{"op":"reload","catalog":"projpicker","version":"9-00ff","ts":"2025-10-26T12:30:45Z"}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Op != OpReload || ev.Catalog != "projpicker" || ev.Version != "9-00ff" || !ev.TS.Equal(mustTS()) {
		t.Fatalf("decoded=%+v", ev)
	}
}

func TestEvent_DedupeKey(t *testing.T) {
	a := Event{Op: OpReload, Catalog: "c", Version: "1", TS: mustTS()}
	b := a
	if a.DedupeKey() != b.DedupeKey() {
		t.Fatalf("identical events must share a key")
	}
	b.TS = b.TS.Add(time.Second)
	if a.DedupeKey() == b.DedupeKey() {
		t.Fatalf("different ts must change the key")
	}
	b.ID = "evt-1"
	if b.DedupeKey() != "evt-1" {
		t.Fatalf("explicit id must win")
	}
}

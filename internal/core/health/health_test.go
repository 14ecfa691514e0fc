package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLiveness_Handler(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()

	Liveness()(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	ct := rr.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q want text/plain", ct)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "ok" {
		t.Fatalf("body=%q want ok", got)
	}
}

func probe(ok bool, detail any) func(context.Context) (bool, any) {
	return func(context.Context) (bool, any) { return ok, detail }
}

func TestReadiness_RequiredAndOptional(t *testing.T) {
	cases := []struct {
		name   string
		checks []Check
		code   int
		status string
	}{
		{"all ready", []Check{{Name: "catalog", Probe: probe(true, map[string]int{"rows": 3})}}, 200, "ready"},
		{"optional down", []Check{
			{Name: "catalog", Probe: probe(true, nil)},
			{Name: "redis", Optional: true, Probe: probe(false, "dial tcp: refused")},
		}, 200, "ready"},
		{"required down", []Check{{Name: "catalog", Probe: probe(false, "catalog not loaded")}}, 503, "not_ready"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		Readiness(c.checks...)(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rr.Code != c.code {
			t.Fatalf("%s: status=%d want %d", c.name, rr.Code, c.code)
		}
		var body struct {
			Status string `json:"status"`
			Checks map[string]struct {
				Status string `json:"status"`
			} `json:"checks"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", c.name, err)
		}
		if body.Status != c.status || len(body.Checks) != len(c.checks) {
			t.Fatalf("%s: body=%+v", c.name, body)
		}
	}
}

// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// Check reports whether one dependency is ready plus details for the probe
// body. Optional checks are reported but never fail readiness.
type Check struct {
	Name     string
	Optional bool
	Probe    func(ctx context.Context) (ready bool, detail any)
}

type checkResult struct {
	Status string `json:"status"`
	Detail any    `json:"detail,omitempty"`
}

type response struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

// Readiness runs every check with a short timeout and answers 503 when a
// required one is not ready.
func Readiness(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		out := response{Status: "ready", Checks: make(map[string]checkResult, len(checks))}
		for _, c := range checks {
			ok, detail := c.Probe(ctx)
			st := "ready"
			if !ok {
				st = "not_ready"
				if !c.Optional {
					out.Status = "not_ready"
				}
			}
			out.Checks[c.Name] = checkResult{Status: st, Detail: detail}
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}

// Package invalidation defines the catalog change events exchanged over
// Kafka.
package invalidation

import (
	"fmt"
	"strings"
	"time"
)

const (
	OpReload = "reload"
	OpPurge  = "purge"
)

// Event asks consumers to reload a catalog or to drop cached results.
// Version is the catalog version the producer wrote; consumers already at
// that version skip the reload.
type Event struct {
	ID      string    `json:"id,omitempty"`
	Op      string    `json:"op"`
	Catalog string    `json:"catalog"`
	Version string    `json:"version,omitempty"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
}

func (e Event) Validate() error {
	switch e.Op {
	case OpReload, OpPurge:
	default:
		return fmt.Errorf("op must be reload|purge")
	}
	if strings.TrimSpace(e.Catalog) == "" {
		return fmt.Errorf("catalog is required")
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// DedupeKey identifies redeliveries of the same event.
func (e Event) DedupeKey() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Op + "|" + e.Catalog + "|" + e.Version + "|" + e.TS.UTC().Format(time.RFC3339Nano)
}

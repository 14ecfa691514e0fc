package kafkaconsumer

import (
	"strings"
	"time"

	"github.com/mohammed-shakir/crsfinder/internal/core/config"
)

type Config struct {
	Brokers             []string
	Topic               string
	GroupID             string
	Catalog             string
	DedupeSize          int
	SessionTimeout      time.Duration
	Heartbeat           time.Duration
	RebalanceTimeout    time.Duration
	InitialOffsetOldest bool
}

// FromConfig derives the consumer settings from the service config. Only
// events published after the consumer joins matter, so offsets start at the
// newest message.
func FromConfig(cfg config.Config) Config {
	return Config{
		Brokers:          splitCSV(cfg.Reload.Brokers),
		Topic:            cfg.Reload.Topic,
		GroupID:          cfg.Reload.GroupID,
		Catalog:          cfg.CatalogName,
		DedupeSize:       4096,
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
	}
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

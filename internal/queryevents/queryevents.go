// Package queryevents publishes executed queries to Kafka for offline
// analysis. Publishing never blocks the request path.
package queryevents

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
)

type Event struct {
	RequestID      string    `json:"request_id,omitempty"`
	CatalogVersion string    `json:"catalog_version"`
	Kind           string    `json:"kind"`
	Op             string    `json:"op"`
	Coords         string    `json:"coords,omitempty"`
	Unit           string    `json:"unit,omitempty"`
	Geometries     []string  `json:"geometries"`
	Cells          []string  `json:"cells,omitempty"`
	Rows           int       `json:"rows"`
	Skipped        int       `json:"skipped,omitempty"`
	Cache          string    `json:"cache,omitempty"`
	DurationMS     float64   `json:"duration_ms"`
	TS             time.Time `json:"ts"`
}

type Publisher struct {
	topic   string
	logger  *slog.Logger
	prod    sarama.AsyncProducer
	events  chan Event
	stopped chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("queryevents: create async producer: %w", err)
	}
	return newWithProducer(prod, topic, queueSize, logger), nil
}

func newWithProducer(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		logger:  logger,
		prod:    prod,
		events:  make(chan Event, queueSize),
		stopped: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				observability.IncQueryEvent("error")
				p.logger.Warn("query event marshal failed", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.CatalogVersion),
				Value: sarama.ByteEncoder(b),
			}
			observability.IncQueryEvent("sent")
		}
	}()

	go func() {
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncQueryEvent("error")
				p.logger.Warn("query event producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish enqueues ev. It reports false when the event was dropped because
// the queue is full or the publisher is closed.
func (p *Publisher) Publish(ev Event) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
		return true
	default:
		observability.IncQueryEvent("dropped")
		return false
	}
}

// Close drains queued events and closes the producer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("queryevents: close producer: %w", err)
	}
	return nil
}

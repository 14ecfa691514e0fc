// Package kafka publishes catalog invalidation events for crsfinder
// instances to consume.
package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/crsfinder/internal/core/observability"
	"github.com/mohammed-shakir/crsfinder/internal/invalidation"
	mylog "github.com/mohammed-shakir/crsfinder/internal/logger"
)

type Publisher struct {
	log   *slog.Logger
	topic string
	prod  sarama.SyncProducer
}

func NewPublisher(cfg PublisherConfig, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher: topic is required")
	}
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_5_0_0
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	if cfg.ClientID != "" {
		sc.ClientID = cfg.ClientID
	}
	if cfg.Timeout > 0 {
		sc.Producer.Timeout = cfg.Timeout
	}
	if cfg.TLS.Enable {
		sc.Net.TLS.Enable = true
		sc.Net.TLS.Config = &tls.Config{InsecureSkipVerify: cfg.TLS.SkipVerify} //nolint:gosec // opt-in for test clusters
	}
	if cfg.SASL.Enable {
		sc.Net.SASL.Enable = true
		sc.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.SASL.Mechanism)
		sc.Net.SASL.User = cfg.SASL.Username
		sc.Net.SASL.Password = cfg.SASL.Password
	}

	prod, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: create producer: %w", err)
	}
	return newWithProducer(prod, cfg.Topic, logger), nil
}

func newWithProducer(prod sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{log: logger, topic: topic, prod: prod}
}

// Publish validates ev, fills its id and timestamp when missing and writes it
// keyed by catalog so events for one catalog stay ordered.
func (p *Publisher) Publish(ctx context.Context, ev invalidation.Event) (invalidation.Event, error) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	if ev.ID == "" {
		ev.ID = mylog.NewID()
	}
	if err := ev.Validate(); err != nil {
		return ev, fmt.Errorf("invalid event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return ev, fmt.Errorf("publish: %w", err)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return ev, fmt.Errorf("marshal event: %w", err)
	}
	part, off, err := p.prod.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.Catalog),
		Value: sarama.ByteEncoder(body),
	})
	observability.ObserveInvalidation("publish_"+ev.Op, err)
	if err != nil {
		return ev, fmt.Errorf("send %s event: %w", ev.Op, err)
	}
	p.log.InfoContext(ctx, "invalidation event published",
		"id", ev.ID, "op", ev.Op, "catalog", ev.Catalog, "version", ev.Version,
		"partition", part, "offset", off)
	return ev, nil
}

func (p *Publisher) Close() error {
	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("kafka publisher close: %w", err)
	}
	return nil
}

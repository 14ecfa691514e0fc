// Package kafkaconsumer applies catalog invalidation events read from Kafka.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/crsfinder/internal/catalog"
	obs "github.com/mohammed-shakir/crsfinder/internal/core/observability"
	"github.com/mohammed-shakir/crsfinder/internal/invalidation"
	mylog "github.com/mohammed-shakir/crsfinder/internal/logger"
)

type Catalog interface {
	Current() (*catalog.Snapshot, error)
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

type Purger interface {
	Purge(ctx context.Context) (int, error)
}

type Consumer struct {
	cfg     Config
	logger  *slog.Logger
	catalog Catalog
	purger  Purger
	dedupe  *eventDedupe

	assignMu sync.RWMutex
	assign   map[int32]struct{}
}

// New builds a consumer. purger may be nil when results are not cached.
func New(cfg Config, logger *slog.Logger, cat Catalog, purger Purger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		purger:  purger,
		dedupe:  newEventDedupe(cfg.DedupeSize),
	}
}

// Start consumes invalidation events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.catalog == nil {
		return errors.New("kafkaconsumer: missing catalog")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	ctx = mylog.WithComponent(ctx, "kafka_consumer")
	handler := &groupHandler{
		setup:   c.trackAssignment,
		cleanup: func(sarama.ConsumerGroupSession) { c.setAssignment(nil) },
		process: c.ProcessOne,
	}

	c.logger.InfoContext(ctx, "kafka invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID, "catalog", c.cfg.Catalog)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "kafka invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.ErrorContext(ctx, "kafka consumer error",
					"err", err, "brokers", c.cfg.Brokers, "topic", c.cfg.Topic)
				select {
				case <-ctx.Done():
				case <-time.After(2 * time.Second):
				}
			}
		}
	}
}

func (c *Consumer) trackAssignment(sess sarama.ConsumerGroupSession) {
	parts := map[int32]struct{}{}
	for _, ps := range sess.Claims() {
		for _, p := range ps {
			parts[p] = struct{}{}
		}
	}
	c.setAssignment(parts)
}

func (c *Consumer) setAssignment(parts map[int32]struct{}) {
	c.assignMu.Lock()
	c.assign = parts
	c.assignMu.Unlock()
}

// Readiness reports whether the consumer holds a group session and which
// partitions it was assigned.
func (c *Consumer) Readiness() (ready bool, partitions []int32) {
	c.assignMu.RLock()
	defer c.assignMu.RUnlock()
	if c.assign == nil {
		return false, nil
	}
	for p := range c.assign {
		partitions = append(partitions, p)
	}
	slices.Sort(partitions)
	return true, partitions
}

// ProcessOne applies a single event. Undecodable, invalid, foreign and
// duplicate events are skipped; an error means the event must be retried.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.ObserveInvalidation("decode", err)
		c.logger.WarnContext(ctx, "skipping undecodable event",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.ObserveInvalidation("invalid", err)
		c.logger.WarnContext(ctx, "skipping invalid event",
			"offset", msg.Offset, "err", err)
		return nil
	}
	if c.cfg.Catalog != "" && ev.Catalog != c.cfg.Catalog {
		c.logger.DebugContext(ctx, "event for another catalog", "catalog", ev.Catalog)
		return nil
	}
	key := ev.DedupeKey()
	if c.dedupe.seen(key) {
		c.logger.DebugContext(ctx, "duplicate event", "key", key)
		return nil
	}

	var err error
	switch ev.Op {
	case invalidation.OpReload:
		err = c.reload(ctx, ev)
	case invalidation.OpPurge:
		err = c.purge(ctx)
	}
	obs.ObserveInvalidation(ev.Op, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", ev.Op, ev.Catalog, err)
	}
	c.dedupe.remember(key)
	return nil
}

func (c *Consumer) reload(ctx context.Context, ev invalidation.Event) error {
	if ev.Version != "" {
		if cur, err := c.catalog.Current(); err == nil && cur.Version() == ev.Version {
			c.logger.InfoContext(ctx, "catalog already at event version", "version", ev.Version)
			return nil
		}
	}
	snap, err := c.catalog.Reload(ctx)
	if err != nil {
		return err
	}
	if ev.Version != "" && snap.Version() != ev.Version {
		c.logger.WarnContext(ctx, "reloaded catalog version differs from event",
			"want", ev.Version, "got", snap.Version())
	}
	c.logger.InfoContext(mylog.WithCatalogVersion(ctx, snap.Version()), "catalog reloaded from event",
		"rows", snap.Len(), "source", ev.Source)
	return nil
}

func (c *Consumer) purge(ctx context.Context) error {
	if c.purger == nil {
		return nil
	}
	n, err := c.purger.Purge(ctx)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "result cache purged from event", "entries", n)
	return nil
}

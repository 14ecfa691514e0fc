package kafkaconsumer

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// eventDedupe remembers recently applied events so redeliveries are no-ops.
type eventDedupe struct {
	mu  sync.Mutex
	lru *lru.Cache[string, struct{}]
}

func newEventDedupe(size int) *eventDedupe {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New[string, struct{}](size)
	return &eventDedupe{lru: c}
}

func (d *eventDedupe) seen(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lru.Contains(key)
}

// remember is called only after the event was applied, so a failed attempt
// is retried on redelivery.
func (d *eventDedupe) remember(key string) {
	d.mu.Lock()
	d.lru.Add(key, struct{}{})
	d.mu.Unlock()
}

// Package expdecay keeps per-cell query counts that halve every HalfLife.
package expdecay

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/crsfinder/internal/hotness"
)

const numShards = 64

type Tracker struct {
	HalfLife time.Duration

	now func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu    sync.RWMutex
	cells map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

// at returns the score as seen at now.
func (c *counter) at(now time.Time, halfLife float64) float64 {
	return decay(c.score, now.Sub(c.last).Seconds(), halfLife)
}

var (
	_ hotness.Interface = (*Tracker)(nil)
	_ hotness.Ranker    = (*Tracker)(nil)
	_ hotness.Pruner    = (*Tracker)(nil)
)

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].cells = make(map[string]*counter)
	}
	return t
}

// Inc records one query hitting cell.
func (t *Tracker) Inc(cell string) { t.Add(cell, 1) }

// Add records a hit of weight w. Non-positive weights are ignored.
func (t *Tracker) Add(cell string, w float64) {
	if cell == "" || w <= 0 {
		return
	}
	s := t.shardFor(cell)
	now := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cells[cell]; ok {
		c.score = c.at(now, t.HalfLife.Seconds()) + w
		c.last = now
		return
	}
	s.cells[cell] = &counter{score: w, last: now}
}

func (t *Tracker) Score(cell string) float64 {
	if cell == "" {
		return 0
	}
	s := t.shardFor(cell)
	now := t.now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.cells[cell]; ok {
		return c.at(now, t.HalfLife.Seconds())
	}
	return 0
}

func (t *Tracker) Reset(cells ...string) {
	for _, cell := range cells {
		if cell == "" {
			continue
		}
		s := t.shardFor(cell)
		s.mu.Lock()
		delete(s.cells, cell)
		s.mu.Unlock()
	}
}

// ResetAll drops every tracked cell.
func (t *Tracker) ResetAll() {
	for i := range t.shards {
		t.shards[i].mu.Lock()
		clear(t.shards[i].cells)
		t.shards[i].mu.Unlock()
	}
}

// Prune forgets cells whose decayed score fell below the given floor and reports how
// many went.
func (t *Tracker) Prune(below float64) int {
	now := t.now()
	hl := t.HalfLife.Seconds()
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for cell, c := range s.cells {
			if c.at(now, hl) < below {
				delete(s.cells, cell)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Top returns up to n cells with the highest decayed score, hottest first.
// Ties are ordered by cell id.
func (t *Tracker) Top(n int) []hotness.Entry {
	if n <= 0 {
		return nil
	}
	now := t.now()
	hl := t.HalfLife.Seconds()
	var all []hotness.Entry
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for cell, c := range s.cells {
			all = append(all, hotness.Entry{Cell: cell, Score: c.at(now, hl)})
		}
		s.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Cell < all[j].Cell
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].cells)
		t.shards[i].mu.RUnlock()
	}
	return total
}

// decay scales score by 2^(-dt/halfLife).
func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	return score * math.Exp2(-dt/halfLife)
}

func (t *Tracker) shardFor(cell string) *shard {
	return &t.shards[xxhash.Sum64String(cell)%numShards]
}

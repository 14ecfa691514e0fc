package catalog

import (
	"context"
	"slices"
	"sync"

	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

// Memory is a Provider over rows held in process. Set replaces the rows the
// next Load returns.
type Memory struct {
	mu   sync.RWMutex
	rows []model.CrsBBox
}

func NewMemory(rows []model.CrsBBox) *Memory {
	return &Memory{rows: slices.Clone(rows)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Load(ctx context.Context) ([]model.CrsBBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rows), nil
}

func (m *Memory) Set(rows []model.CrsBBox) {
	m.mu.Lock()
	m.rows = slices.Clone(rows)
	m.mu.Unlock()
}

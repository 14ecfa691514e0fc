package simple

import (
	"time"

	"github.com/mohammed-shakir/crsfinder/pkg/adaptive"
)

type Config struct {
	Threshold float64
	TTLCold   time.Duration
	TTLWarm   time.Duration
	TTLHot    time.Duration
}

// SimpleDecider shares results of queries whose hottest cell reaches the
// threshold. Cells at four times the threshold get the hot TTL.
type SimpleDecider struct {
	cfg Config
}

var _ adaptive.Decider = (*SimpleDecider)(nil)

func New(cfg Config) *SimpleDecider {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 1
	}
	return &SimpleDecider{cfg: cfg}
}

func (d *SimpleDecider) Decide(q adaptive.Query, view adaptive.HotnessView) (adaptive.Decision, adaptive.Reason) {
	if len(q.Cells) == 0 || view == nil {
		// planar queries have no location; share them like warm ones
		return adaptive.Decision{Type: adaptive.DecisionShare, TTL: d.cfg.TTLWarm}, adaptive.ReasonNoCells
	}
	maxScore := 0.0
	for _, c := range q.Cells {
		maxScore = max(maxScore, view.Score(c))
	}
	switch {
	case maxScore >= 4*d.cfg.Threshold && d.cfg.TTLHot > 0:
		return adaptive.Decision{Type: adaptive.DecisionShare, TTL: d.cfg.TTLHot}, adaptive.ReasonHot
	case maxScore >= d.cfg.Threshold:
		return adaptive.Decision{Type: adaptive.DecisionShare, TTL: d.cfg.TTLWarm}, adaptive.ReasonWarm
	default:
		return adaptive.Decision{Type: adaptive.DecisionLocal, TTL: d.cfg.TTLCold}, adaptive.ReasonColdAllCells
	}
}

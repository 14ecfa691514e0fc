// Package adaptive decides how long shared caches keep a query result based
// on how hot the query's location is.
package adaptive

import "time"

type HotnessView interface {
	Score(cell string) float64
}

// Query is the hotness footprint of one query: the anchor cell of each of its
// geographic geometries.
type Query struct {
	Cells []string
}

type DecisionType int

const (
	// DecisionLocal keeps the result in process only.
	DecisionLocal DecisionType = iota
	// DecisionShare also writes the result to the shared tier.
	DecisionShare
)

func (t DecisionType) String() string {
	if t == DecisionShare {
		return "share"
	}
	return "local"
}

type Reason string

const (
	ReasonNoCells      Reason = "no_cells"
	ReasonColdAllCells Reason = "cold_all_cells"
	ReasonWarm         Reason = "warm"
	ReasonHot          Reason = "hot"
)

type Decision struct {
	Type DecisionType
	TTL  time.Duration
}

type Decider interface {
	Decide(q Query, view HotnessView) (Decision, Reason)
}

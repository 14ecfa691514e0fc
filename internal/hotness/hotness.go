// Package hotness tracks which query locations are hot.
package hotness

type Interface interface {
	Inc(cell string)
	Score(cell string) float64
	Reset(cells ...string)
}

// Entry is one cell with its decayed score.
type Entry struct {
	Cell  string  `json:"cell"`
	Score float64 `json:"score"`
}

// Ranker is implemented by trackers that can list their hottest cells.
type Ranker interface {
	Top(n int) []Entry
	ResetAll()
}

// Pruner is implemented by trackers that can drop cells gone cold.
type Pruner interface {
	Prune(below float64) int
}

// Package mapper converts query geometries to H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/crsfinder/internal/core/model"
)

type Interface interface {
	// CellForGeometry returns the cell that anchors g. ok is false for
	// geometries without a geographic location, such as planar ones.
	CellForGeometry(g model.Geometry, res int) (cell string, ok bool, err error)
	CellsForBBox(bb model.BBox, res int) ([]string, error)
	ToParent(cell string, parentRes int) (string, error)
}

package lattice

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Mesher satisfies the engine's Triangulator contract with the fixed BCC
// connectivity. A production deployment replaces it with a real periodic
// Delaunay collaborator; the lattice topology stays valid only while points
// remain near their lattice sites.
type Mesher struct {
	// N is the cell grid resolution passed to BCC.
	N int
}

// ErrPointCount reports a point buffer that does not match the mesher grid.
var ErrPointCount = errors.New("lattice: point count does not match BCC grid")

// Tetrahedralize returns the BCC connectivity for the mesher's grid. The
// point positions are not consulted.
func (m Mesher) Tetrahedralize(points []r3.Vec, periodic bool) ([][4]int, error) {
	if !periodic {
		return nil, errors.New("lattice: BCC mesher is periodic-only")
	}
	if len(points) != 2*m.N*m.N*m.N {
		return nil, errors.Wrapf(ErrPointCount, "got %d points for n=%d", len(points), m.N)
	}
	_, tets := BCC(m.N)
	return tets, nil
}

// Package lattice generates periodic body-centered-cubic tetrahedral meshes
// on the unit torus. The BCC lattice is its own Delaunay tetrahedralization,
// so the output satisfies the foam input contract (every face shared by
// exactly two tetrahedra) and serves as the built-in triangulation
// collaborator for demos and tests. It is not a general Delaunay engine:
// Mesher returns the fixed lattice connectivity regardless of how far the
// points have drifted.
package lattice

import (
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// BCC returns the points and tetrahedra of an n x n x n periodic BCC cell
// grid: 2n^3 points (corners plus cell centers) in [0,1)^3 and 12n^3
// tetrahedra. Panics for n < 2; below that, tetrahedron pairs wrap onto
// each other and share more than one face.
func BCC(n int) (points []r3.Vec, tets [][4]int) {
	if n < 2 {
		panic("lattice: BCC grid too small")
	}
	h := 1 / float64(n)
	n3 := n * n * n
	points = make([]r3.Vec, 2*n3)
	corner := func(i, j, k int) int {
		i, j, k = mod(i, n), mod(j, n), mod(k, n)
		return (i*n+j)*n + k
	}
	center := func(i, j, k int) int {
		i, j, k = mod(i, n), mod(j, n), mod(k, n)
		return n3 + (i*n+j)*n + k
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				points[corner(i, j, k)] = r3.Vec{X: float64(i) * h, Y: float64(j) * h, Z: float64(k) * h}
				points[center(i, j, k)] = r3.Vec{X: (float64(i) + 0.5) * h, Y: (float64(j) + 0.5) * h, Z: (float64(k) + 0.5) * h}
			}
		}
	}

	// Mesh minor sides only, as in BCC lattice meshers: each cell center
	// pairs with its -z, -y and -x neighbor center and the four corners of
	// the shared square, giving four tetrahedra per pair.
	tets = make([][4]int, 0, 12*n3)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				ctr := center(i, j, k)

				// Shared square in the z = k/n plane.
				zc := [4]int{corner(i, j, k), corner(i+1, j, k), corner(i+1, j+1, k), corner(i, j+1, k)}
				zn := center(i, j, k-1)
				// Shared square in the y = j/n plane.
				yc := [4]int{corner(i, j, k), corner(i, j, k+1), corner(i+1, j, k+1), corner(i+1, j, k)}
				yn := center(i, j-1, k)
				// Shared square in the x = i/n plane.
				xc := [4]int{corner(i, j, k), corner(i, j+1, k), corner(i, j+1, k+1), corner(i, j, k+1)}
				xn := center(i-1, j, k)

				for _, pair := range [3]struct {
					c   [4]int
					opp int
				}{{zc, zn}, {yc, yn}, {xc, xn}} {
					for q := 0; q < 4; q++ {
						tets = append(tets, [4]int{ctr, pair.c[q], pair.c[(q+1)%4], pair.opp})
					}
				}
			}
		}
	}
	return points, tets
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}

// Jitter displaces every point by up to amp per component, deterministically
// from seed, wrapping back into the unit cube. Useful to break the perfect
// lattice symmetry before scoring.
func Jitter(points []r3.Vec, amp float64, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	for i := range points {
		points[i] = r3.Vec{
			X: wrap(points[i].X + amp*(rng.Float64()-0.5)),
			Y: wrap(points[i].Y + amp*(rng.Float64()-0.5)),
			Z: wrap(points[i].Z + amp*(rng.Float64()-0.5)),
		}
	}
}

func wrap(x float64) float64 {
	for x < 0 {
		x++
	}
	for x >= 1 {
		x--
	}
	return x
}

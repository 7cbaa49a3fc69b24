// Package geometry provides the 2D primitives shared by every map
// representation in spacesyntax: integer pixel coordinates, axis-aligned
// regions, and tolerance-aware line segments.
//
// Every primitive here is a value type. Intersection and containment tests
// are tolerance-scaled rather than exact, because the analyses built on top
// of them (rasterization, axial-line deduplication, polygon containment)
// operate on floating point world coordinates where exact equality is
// meaningless.
package geometry

import (
	"errors"
	"math"
)

// Sentinel errors for geometry operations.
var (
	// ErrDegenerateLine indicates a zero-length line where one is not permitted.
	ErrDegenerateLine = errors.New("geometry: degenerate (zero-length) line")

	// ErrNaNCoordinate indicates a coordinate was NaN or infinite.
	ErrNaNCoordinate = errors.New("geometry: non-finite coordinate")
)

// Point is a double-precision 2D world coordinate.
type Point struct {
	X, Y float64
}

// Finite reports whether both coordinates are finite (not NaN/Inf).
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Scale returns p scaled by s.
func (p Point) Scale(s float64) Point { return Point{p.X * s, p.Y * s} }

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Cross returns the 2D cross product (z-component) of p and q.
func (p Point) Cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	dx, dy := p.X-q.X, p.Y-q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Angle returns the angle of the vector p in [0, 2π).
func (p Point) Angle() float64 {
	a := math.Atan2(p.Y, p.X)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// PixelRef is an integer grid-cell coordinate. It packs into a 32-bit key
// for use as a hash-map key via Pack.
type PixelRef struct {
	X, Y int16
}

// EmptyPixelRef is the sentinel "no cell" reference, matching the source's
// default-constructed PixelRef(-1,-1).
var EmptyPixelRef = PixelRef{X: -1, Y: -1}

// Empty reports whether r is the sentinel empty reference.
func (r PixelRef) Empty() bool { return r.X == -1 && r.Y == -1 }

// Pack encodes r into a 32-bit key suitable for map keys or sets.
func (r PixelRef) Pack() int32 {
	return int32(uint32(uint16(r.X))<<16 | uint32(uint16(r.Y)))
}

// UnpackPixelRef decodes a key produced by Pack.
func UnpackPixelRef(k int32) PixelRef {
	u := uint32(k)
	return PixelRef{X: int16(u >> 16), Y: int16(u & 0xffff)}
}

// Direction is a bitmask of the eight grid-connectivity directions.
type Direction uint8

// Grid-connectivity direction bits, matching the cardinal/diagonal layout
// a Point's grid-connection byte uses.
const (
	DirNone Direction = 0
	DirE    Direction = 1 << (iota - 1)
	DirNE
	DirN
	DirNW
	DirW
	DirSW
	DirS
	DirSE
)

// directionOffsets lists the eight neighbour offsets in Direction bit order.
var directionOffsets = [8]struct {
	Dir    Direction
	DX, DY int
}{
	{DirE, 1, 0}, {DirNE, 1, 1}, {DirN, 0, 1}, {DirNW, -1, 1},
	{DirW, -1, 0}, {DirSW, -1, -1}, {DirS, 0, -1}, {DirSE, 1, -1},
}

// Neighbour returns the PixelRef one step from r in direction d, and
// whether d is a single recognised direction bit.
func (r PixelRef) Neighbour(d Direction) (PixelRef, bool) {
	for _, o := range directionOffsets {
		if o.Dir == d {
			return PixelRef{X: r.X + int16(o.DX), Y: r.Y + int16(o.DY)}, true
		}
	}
	return r, false
}

// AllDirections returns the eight grid-connectivity directions in a fixed,
// deterministic order (E, NE, N, NW, W, SW, S, SE).
func AllDirections() []Direction {
	dirs := make([]Direction, len(directionOffsets))
	for i, o := range directionOffsets {
		dirs[i] = o.Dir
	}
	return dirs
}

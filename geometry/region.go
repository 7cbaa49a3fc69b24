package geometry

import "math"

// Region is an axis-aligned bounding rectangle, bottom-left to top-right.
type Region struct {
	BottomLeft Point
	TopRight   Point
}

// NewRegion builds a Region from two corners, normalising so BottomLeft is
// always the min corner and TopRight the max corner.
func NewRegion(a, b Point) Region {
	return Region{
		BottomLeft: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		TopRight:   Point{X: math.Max(a.X, b.X), Y: math.Max(a.Y, b.Y)},
	}
}

// Width returns the region's extent along X.
func (r Region) Width() float64 { return r.TopRight.X - r.BottomLeft.X }

// Height returns the region's extent along Y.
func (r Region) Height() float64 { return r.TopRight.Y - r.BottomLeft.Y }

// Centre returns the midpoint of the region.
func (r Region) Centre() Point {
	return Point{
		X: (r.BottomLeft.X + r.TopRight.X) / 2,
		Y: (r.BottomLeft.Y + r.TopRight.Y) / 2,
	}
}

// Union returns the smallest Region enclosing both r and o.
func (r Region) Union(o Region) Region {
	return Region{
		BottomLeft: Point{X: math.Min(r.BottomLeft.X, o.BottomLeft.X), Y: math.Min(r.BottomLeft.Y, o.BottomLeft.Y)},
		TopRight:   Point{X: math.Max(r.TopRight.X, o.TopRight.X), Y: math.Max(r.TopRight.Y, o.TopRight.Y)},
	}
}

// Intersects reports whether r and o overlap, within tol of either extent.
func (r Region) Intersects(o Region, tol float64) bool {
	return r.BottomLeft.X-tol <= o.TopRight.X && r.TopRight.X+tol >= o.BottomLeft.X &&
		r.BottomLeft.Y-tol <= o.TopRight.Y && r.TopRight.Y+tol >= o.BottomLeft.Y
}

// Contains reports whether p lies within r (inclusive of the boundary).
func (r Region) Contains(p Point) bool {
	return p.X >= r.BottomLeft.X && p.X <= r.TopRight.X && p.Y >= r.BottomLeft.Y && p.Y <= r.TopRight.Y
}

// Encompass grows r (if needed) so that it contains p, returning the result.
func (r Region) Encompass(p Point) Region {
	return Region{
		BottomLeft: Point{X: math.Min(r.BottomLeft.X, p.X), Y: math.Min(r.BottomLeft.Y, p.Y)},
		TopRight:   Point{X: math.Max(r.TopRight.X, p.X), Y: math.Max(r.TopRight.Y, p.Y)},
	}
}

// Grow returns r expanded outward by s on every side. Negative s shrinks it.
func (r Region) Grow(s float64) Region {
	return Region{
		BottomLeft: Point{X: r.BottomLeft.X - s, Y: r.BottomLeft.Y - s},
		TopRight:   Point{X: r.TopRight.X + s, Y: r.TopRight.Y + s},
	}
}

// ScaleAbout returns r scaled by factor f about its own centre — used by the
// all-line map construction's 1.30x grow-before-build / 0.99x crop-before-fit
// passes.
func (r Region) ScaleAbout(f float64) Region {
	c := r.Centre()
	hw, hh := r.Width()/2*f, r.Height()/2*f
	return Region{
		BottomLeft: Point{X: c.X - hw, Y: c.Y - hh},
		TopRight:   Point{X: c.X + hw, Y: c.Y + hh},
	}
}

// RegionEdge identifies one of the four sides of a Region in the order used
// by CutEdgeU: 0=bottom, 1=right, 2=top, 3=left.
type RegionEdge int

const (
	EdgeBottom RegionEdge = iota
	EdgeRight
	EdgeTop
	EdgeLeft
)

// CutEdgeU maps a point on the region's boundary to a parametric
// (edge, u) pair with u in [0,1] along that edge, ordered counter-clockwise
// from the bottom-left corner. Used by viewport-clip style code that needs a
//1D parametrisation of a rectangle's perimeter. p is assumed to already
// lie on the boundary (within tol); if it does not, the nearest edge is
// chosen.
func (r Region) CutEdgeU(p Point, tol float64) (RegionEdge, float64) {
	w, h := r.Width(), r.Height()
	type cand struct {
		edge RegionEdge
		u    float64
		dist float64
	}
	cands := []cand{
		{EdgeBottom, clamp01(safeDiv(p.X-r.BottomLeft.X, w)), math.Abs(p.Y - r.BottomLeft.Y)},
		{EdgeRight, clamp01(safeDiv(p.Y-r.BottomLeft.Y, h)), math.Abs(p.X - r.TopRight.X)},
		{EdgeTop, clamp01(safeDiv(r.TopRight.X-p.X, w)), math.Abs(p.Y - r.TopRight.Y)},
		{EdgeLeft, clamp01(safeDiv(r.TopRight.Y-p.Y, h)), math.Abs(p.X - r.BottomLeft.X)},
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.dist < best.dist {
			best = c
		}
	}
	_ = tol
	return best.edge, best.u
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

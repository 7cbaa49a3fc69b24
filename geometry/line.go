package geometry

import "math"

// Parity records whether a Line's y-coordinate ascends with x: Positive
// means the line runs bottom-left -> top-right, Negative means it runs
// top-left -> bottom-right. Direction additionally records which endpoint
// is considered the line's "start" for traversal purposes.
type Parity bool

const (
	ParityPositive Parity = true
	ParityNegative Parity = false
)

// Direction2 records a line's traversal direction along its own parity.
type Direction2 bool

const (
	DirForward  Direction2 = true
	DirBackward Direction2 = false
)

// Line is a region plus parity/direction bits; Start/End are derived from
// them rather than stored directly, matching the compact bitfield layout
// the source uses to keep a Line to the size of a Region plus two bits.
type Line struct {
	Region    Region
	Parity    Parity
	Direction Direction2
}

// NewLine builds a Line from two endpoints, deriving region/parity/direction.
func NewLine(a, b Point) Line {
	parity := ParityPositive
	if (b.X-a.X)*(b.Y-a.Y) < 0 {
		parity = ParityNegative
	}
	// direction is "forward" when traversal a->b agrees with the axis in
	// which the line is not degenerate; for a purely horizontal or vertical
	// line we default to forward.
	dir := DirForward
	switch {
	case a.X < b.X:
		dir = DirForward
	case a.X > b.X:
		dir = DirBackward
	default:
		// vertical line: forward if a is the lower point
		if a.Y > b.Y {
			dir = DirBackward
		}
	}
	return Line{Region: NewRegion(a, b), Parity: parity, Direction: dir}
}

// ay returns the y ordinate of the "start" endpoint at the line's left edge.
func (l Line) ay() float64 {
	if l.Parity == ParityPositive {
		return l.Region.BottomLeft.Y
	}
	return l.Region.TopRight.Y
}

// by returns the y ordinate of the "end" endpoint at the line's right edge.
func (l Line) by() float64 {
	if l.Parity == ParityPositive {
		return l.Region.TopRight.Y
	}
	return l.Region.BottomLeft.Y
}

// Start returns the line's start point, honouring Direction.
func (l Line) Start() Point {
	left := Point{X: l.Region.BottomLeft.X, Y: l.ay()}
	right := Point{X: l.Region.TopRight.X, Y: l.by()}
	if l.Direction == DirForward {
		return left
	}
	return right
}

// End returns the line's end point, honouring Direction.
func (l Line) End() Point {
	left := Point{X: l.Region.BottomLeft.X, Y: l.ay()}
	right := Point{X: l.Region.TopRight.X, Y: l.by()}
	if l.Direction == DirForward {
		return right
	}
	return left
}

// Length returns the Euclidean length of the line.
func (l Line) Length() float64 {
	return l.Start().Dist(l.End())
}

// Vector returns End-Start.
func (l Line) Vector() Point {
	return l.End().Sub(l.Start())
}

// Upward reports whether the line's traversal direction agrees with its
// parity (i.e. it runs "uphill" left to right), mirroring Line::upward().
func (l Line) Upward() bool {
	return (l.Direction == DirForward) == (l.Parity == ParityPositive)
}

// Sign returns +1 for positive parity, -1 for negative.
func (l Line) Sign() int {
	if l.Parity == ParityPositive {
		return 1
	}
	return -1
}

// Crop returns l clipped to the given region, or ok=false if l does not
// intersect r at all.
func (l Line) Crop(r Region) (Line, bool) {
	a, b := l.Start(), l.End()
	lo, hi := 0.0, 1.0
	dx, dy := b.X-a.X, b.Y-a.Y
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > hi {
				return false
			}
			if t > lo {
				lo = t
			}
		} else {
			if t < lo {
				return false
			}
			if t < hi {
				hi = t
			}
		}
		return true
	}
	if !clip(-dx, a.X-r.BottomLeft.X) || !clip(dx, r.TopRight.X-a.X) ||
		!clip(-dy, a.Y-r.BottomLeft.Y) || !clip(dy, r.TopRight.Y-a.Y) {
		return Line{}, false
	}
	if lo > hi {
		return Line{}, false
	}
	p0 := Point{X: a.X + dx*lo, Y: a.Y + dy*lo}
	p1 := Point{X: a.X + dx*hi, Y: a.Y + dy*hi}
	return NewLine(p0, p1), true
}

// Extend returns l ray-extended from its End in its own direction until it
// first reaches the boundary of r. If l is degenerate (zero length), ok is
// false.
func (l Line) Extend(r Region) (Point, bool) {
	v := l.Vector()
	if v.X == 0 && v.Y == 0 {
		return Point{}, false
	}
	start := l.End()
	best := math.Inf(1)
	test := func(t float64) {
		if t > 1e-9 && t < best {
			best = t
		}
	}
	if v.X > 0 {
		test((r.TopRight.X - start.X) / v.X)
	} else if v.X < 0 {
		test((r.BottomLeft.X - start.X) / v.X)
	}
	if v.Y > 0 {
		test((r.TopRight.Y - start.Y) / v.Y)
	} else if v.Y < 0 {
		test((r.BottomLeft.Y - start.Y) / v.Y)
	}
	if math.IsInf(best, 1) {
		return Point{}, false
	}
	return Point{X: start.X + v.X*best, Y: start.Y + v.Y*best}, true
}

// Intersection describes the outcome of a Line/Line intersection test.
type Intersection int

const (
	// NoIntersection indicates the segments do not meet within tolerance.
	NoIntersection Intersection = iota
	// Touching indicates the segments meet only at an endpoint, within tolerance.
	Touching
	// Crossing indicates the segments cross at an interior point of at least one.
	Crossing
)

// lineTolerance scales a nominal tolerance by the lines' lengths, matching
// the source's practice of tolerance-scaling intersection tests by line
// extent rather than using a single fixed epsilon.
func lineTolerance(a, b Line, tol float64) float64 {
	scale := math.Max(a.Length(), b.Length())
	if scale == 0 {
		return tol
	}
	return tol * scale
}

// Intersects tests whether a and b intersect, within a tolerance scaled by
// the lines' lengths. It is symmetric: a.Intersects(b) == b.Intersects(a).
func (a Line) Intersects(b Line, tol float64) Intersection {
	if !a.Region.Intersects(b.Region, lineTolerance(a, b, tol)) {
		return NoIntersection
	}
	p1, p2 := a.Start(), a.End()
	p3, p4 := b.Start(), b.End()
	d1 := cross(p3, p4, p1)
	d2 := cross(p3, p4, p2)
	d3 := cross(p1, p2, p3)
	d4 := cross(p1, p2, p4)

	eps := lineTolerance(a, b, tol)
	if eps == 0 {
		eps = 1e-9
	}

	s1, s2, s3, s4 := sign(d1, eps), sign(d2, eps), sign(d3, eps), sign(d4, eps)

	if s1 != 0 && s2 != 0 && s1 == s2 {
		return NoIntersection
	}
	if s3 != 0 && s4 != 0 && s3 == s4 {
		return NoIntersection
	}
	if s1 == 0 || s2 == 0 || s3 == 0 || s4 == 0 {
		return Touching
	}
	return Crossing
}

// cross returns the cross product (b-a) x (p-a).
func cross(a, b, p Point) float64 {
	return b.Sub(a).Cross(p.Sub(a))
}

func sign(v, eps float64) int {
	if v > eps {
		return 1
	}
	if v < -eps {
		return -1
	}
	return 0
}

// IntersectionPoint returns the point at which a and b cross, assuming
// Intersects(a,b) != NoIntersection. ok is false if the lines are
// parallel.
func (a Line) IntersectionPoint(b Line) (Point, bool) {
	p1, p2 := a.Start(), a.End()
	p3, p4 := b.Start(), b.End()
	r := p2.Sub(p1)
	s := p4.Sub(p3)
	denom := r.Cross(s)
	if denom == 0 {
		return Point{}, false
	}
	t := p3.Sub(p1).Cross(s) / denom
	return Point{X: p1.X + r.X*t, Y: p1.Y + r.Y*t}, true
}

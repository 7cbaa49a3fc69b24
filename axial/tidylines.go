package axial

import (
	"math"

	"github.com/salanous/spacesyntax/geometry"
)

// TidyLines cleans a hand-drawn wall soup before axial construction:
// near-zero fragments are dropped, endpoints within tol of each other are
// snapped to a shared vertex, duplicate lines are removed, and collinear
// overlapping fragments are merged into one spanning segment. Axial-map
// construction assumes walls meet exactly at corners; drawings rarely do.
func TidyLines(lines []geometry.Line, tol float64) []geometry.Line {
	if tol <= 0 {
		tol = 1e-9
	}

	// snap endpoints to a tol grid so shared corners compare equal
	snapped := make([]geometry.Line, 0, len(lines))
	for _, l := range lines {
		a := endpointTag(l.Start(), tol)
		b := endpointTag(l.End(), tol)
		if a.Dist(b) <= tol {
			continue
		}
		snapped = append(snapped, geometry.NewLine(a, b))
	}

	// merge collinear overlapping pairs until a pass changes nothing
	for {
		merged := false
		for i := 0; i < len(snapped) && !merged; i++ {
			for j := i + 1; j < len(snapped); j++ {
				if m, ok := mergeCollinear(snapped[i], snapped[j], tol); ok {
					snapped[i] = m
					snapped = append(snapped[:j], snapped[j+1:]...)
					merged = true
					break
				}
			}
		}
		if !merged {
			break
		}
	}

	// drop duplicates (identical endpoints in either order)
	out := snapped[:0]
	for i, l := range snapped {
		dup := false
		for _, k := range snapped[:i] {
			if sameLine(l, k, tol) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, l)
		}
	}
	return out
}

func sameLine(a, b geometry.Line, tol float64) bool {
	a1, a2 := a.Start(), a.End()
	b1, b2 := b.Start(), b.End()
	return (a1.Dist(b1) <= tol && a2.Dist(b2) <= tol) ||
		(a1.Dist(b2) <= tol && a2.Dist(b1) <= tol)
}

// mergeCollinear merges a and b into one segment when they are parallel
// within an angular tolerance, lie on the same carrier line within tol,
// and overlap (or touch end to end) along it.
func mergeCollinear(a, b geometry.Line, tol float64) (geometry.Line, bool) {
	va, vb := a.Vector(), b.Vector()
	la, lb := a.Length(), b.Length()
	if la == 0 || lb == 0 {
		return geometry.Line{}, false
	}
	// parallel test on the normalized cross product
	if math.Abs(va.Cross(vb))/(la*lb) > tol {
		return geometry.Line{}, false
	}
	// b's endpoints must lie on a's carrier line
	if perpDist(a, b.Start()) > tol || perpDist(a, b.End()) > tol {
		return geometry.Line{}, false
	}
	// project all four endpoints onto a's direction
	dir := geometry.Point{X: va.X / la, Y: va.Y / la}
	origin := a.Start()
	ts := []float64{
		0, la,
		b.Start().Sub(origin).Dot(dir),
		b.End().Sub(origin).Dot(dir),
	}
	bLo := math.Min(ts[2], ts[3])
	bHi := math.Max(ts[2], ts[3])
	// overlap or touch: [bLo,bHi] must meet [0,la] within tol
	if bHi < -tol || bLo > la+tol {
		return geometry.Line{}, false
	}
	lo, hi := ts[0], ts[0]
	for _, t := range ts {
		lo = math.Min(lo, t)
		hi = math.Max(hi, t)
	}
	return geometry.NewLine(origin.Add(dir.Scale(lo)), origin.Add(dir.Scale(hi))), true
}

// perpDist is the perpendicular distance from p to a's carrier line.
func perpDist(a geometry.Line, p geometry.Point) float64 {
	v := a.Vector()
	l := a.Length()
	if l == 0 {
		return a.Start().Dist(p)
	}
	return math.Abs(v.Cross(p.Sub(a.Start()))) / l
}

// Package axial implements convex-corner enumeration and the two-stage
// axial map construction: the "all-line" flood from a seed vertex, and the
// "fewest-line" reduction of that map to a minimal covering set of axial
// lines. Wall intersection queries go through package regiontree; the
// result is a shapegraph.ShapeGraph of axial lines.
package axial

import (
	"errors"
	"math"
	"sort"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/regiontree"
)

// ErrNoSeedVertex indicates the seed point is not visible from any convex
// corner of the wall set.
var ErrNoSeedVertex = errors.New("axial: seed is not visible from any convex corner")

// VertexKey identifies a corner by the indices of the two walls meeting
// at it, in wall order.
type VertexKey struct {
	WallA, WallB int
}

// Vertex is a convex corner candidate for axial-line seeding: its point,
// a nearby point just inside open space, the two bracketing wall edges,
// and its winding/convexity flags.
type Vertex struct {
	Key        VertexKey
	Corner     geometry.Point
	OpenPoint  geometry.Point
	EdgeA      geometry.Line
	EdgeB      geometry.Line
	CCW        bool
	Convex     bool
}

// endpointTag rounds a point to a tolerance grid so that shared wall
// endpoints (which may differ in floating point) compare equal.
func endpointTag(p geometry.Point, tol float64) geometry.Point {
	if tol <= 0 {
		tol = 1e-9
	}
	return geometry.Point{X: math.Round(p.X / tol) * tol, Y: math.Round(p.Y / tol) * tol}
}

// ConvexCorners enumerates every vertex shared by exactly two wall lines,
// convex or not, as a corner candidate. Convex is set where the interior
// angle between the two walls is less than pi, assuming a CCW-wound
// interior on the lines' left (the common convention for hand-drawn plan
// boundaries): the wall ending at the corner turns left onto the wall
// starting there. A corner where both walls start, or both end, gets
// Convex false.
func ConvexCorners(walls []geometry.Line, tol float64) []Vertex {
	type incident struct {
		wall    int
		isStart bool
	}
	endpoints := make(map[geometry.Point][]incident)
	for i, w := range walls {
		a, b := w.Start(), w.End()
		endpoints[endpointTag(a, tol)] = append(endpoints[endpointTag(a, tol)], incident{i, true})
		endpoints[endpointTag(b, tol)] = append(endpoints[endpointTag(b, tol)], incident{i, false})
	}

	var out []Vertex
	for _, incs := range endpoints {
		if len(incs) != 2 {
			continue // only simple two-wall junctions are treated as corners
		}
		wa, wb := walls[incs[0].wall], walls[incs[1].wall]
		corner := wa.Start()
		if !incs[0].isStart {
			corner = wa.End()
		}
		// direction each wall runs AWAY from the shared corner.
		dirA := away(wa, incs[0].isStart)
		dirB := away(wb, incs[1].isStart)
		arrive, leave := incs[0], incs[1]
		if arrive.isStart {
			arrive, leave = leave, arrive
		}
		inDir := away(walls[arrive.wall], arrive.isStart).Scale(-1)
		outDir := away(walls[leave.wall], leave.isStart)
		cross := inDir.Cross(outDir)
		convex := !arrive.isStart && leave.isStart && cross > 0
		eps := tol
		if eps <= 0 {
			eps = 1e-6
		}
		// dirA/dirB point away from the corner along each wall; at a
		// convex junction their sum bisects the interior angle, so
		// adding (not subtracting) moves just inside open space.
		bisector := normalize(dirA.Add(dirB))
		openPoint := corner.Add(bisector.Scale(eps * 10))
		out = append(out, Vertex{
			Key:       VertexKey{WallA: incs[0].wall, WallB: incs[1].wall},
			Corner:    corner,
			OpenPoint: openPoint,
			EdgeA:     wa,
			EdgeB:     wb,
			CCW:       cross > 0,
			Convex:    convex,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Corner.X != out[j].Corner.X {
			return out[i].Corner.X < out[j].Corner.X
		}
		return out[i].Corner.Y < out[j].Corner.Y
	})
	return out
}

func away(l geometry.Line, fromStart bool) geometry.Point {
	if fromStart {
		return normalize(l.End().Sub(l.Start()))
	}
	return normalize(l.Start().Sub(l.End()))
}

func normalize(p geometry.Point) geometry.Point {
	n := math.Hypot(p.X, p.Y)
	if n == 0 {
		return p
	}
	return geometry.Point{X: p.X / n, Y: p.Y / n}
}

// VisibleBetween reports whether a straight segment between a and b crosses
// no line in tree, i.e. they are mutually visible through open space.
func VisibleBetween(tree *regiontree.Tree, a, b geometry.Point, tol float64) bool {
	if a.Dist(b) <= tol {
		return true
	}
	probe := geometry.NewLine(a, b)
	for _, l := range tree.Intersecting(probe, tol) {
		if ip, ok := probe.IntersectionPoint(l); ok {
			d := a.Dist(ip)
			if d > tol && d < probe.Length()-tol {
				return false
			}
		} else if probe.Intersects(l, tol) == geometry.Touching {
			continue
		}
	}
	return true
}

// castRay extends a ray from origin in direction dir until it hits the
// nearest wall in tree or, failing that, region's boundary.
func castRay(tree *regiontree.Tree, region geometry.Region, origin, dir geometry.Point, tol float64) geometry.Point {
	seed := geometry.NewLine(origin, origin.Add(dir))
	boundary, ok := seed.Extend(region)
	if !ok {
		return origin
	}
	ray := geometry.NewLine(origin, boundary)
	best := boundary
	bestDist := origin.Dist(boundary)
	skip := tol * 10
	if skip <= 0 {
		skip = 1e-6
	}
	for _, l := range tree.Intersecting(ray, tol) {
		ip, ok := ray.IntersectionPoint(l)
		if !ok {
			continue
		}
		d := origin.Dist(ip)
		if d > skip && d < bestDist {
			bestDist = d
			best = ip
		}
	}
	return best
}

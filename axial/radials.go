package axial

import (
	"math"
	"sort"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/shapegraph"
	"github.com/salanous/spacesyntax/shapemap"
)

// radialAngleQuantum rounds radial angles so that two casts through the
// same corner in the same direction produce one RadialKey despite
// floating-point noise in the direction vector.
const radialAngleQuantum = 1e-7

func quantAngle(a float64) float64 {
	return math.Round(a/radialAngleQuantum) * radialAngleQuantum
}

// RadialKey identifies a radial line: the convex corner it leaves from and
// its (quantized) angle into open space.
type RadialKey struct {
	Vertex VertexKey
	Angle  float64
}

// RadialLine is a half-line from a convex corner through open space,
// cropped to where it first meets a wall.
type RadialLine struct {
	Key    RadialKey
	Corner geometry.Point
	Line   geometry.Line // corner to first wall hit along the radial
	Angle  float64
}

// RadialSegment is the narrow angular wedge between two successive radial
// lines at a common corner. An axial line covers the wedge when it cuts
// both bordering radials.
type RadialSegment struct {
	Corner geometry.Point
	A, B   RadialKey // A.Angle < B.Angle
}

// PolyConnector pairs one axial line with the radial it was cast through,
// recording which radial lines each axial line can divide.
type PolyConnector struct {
	Ref  shapemap.Ref
	Line geometry.Line
	Key  RadialKey
}

// AllLineMap is the all-line axial ShapeGraph together with the radial
// bookkeeping the fewest-line minimiser consumes: the radial lines cast
// during construction and the per-cast PolyConnectors. Key-vertex sets
// live on the embedded ShapeGraph.
type AllLineMap struct {
	*shapegraph.ShapeGraph
	Radials        map[RadialKey]RadialLine
	PolyConnectors []PolyConnector
	Tolerance      float64 // intersection tolerance in world units
}

func (m *AllLineMap) tol() float64 {
	if m.Tolerance > 0 {
		return m.Tolerance
	}
	return 1e-6
}

// Segments derives the radial segments: at each corner, radials sorted by
// angle, each consecutive pair forming one wedge.
func (m *AllLineMap) Segments() []RadialSegment {
	byVertex := make(map[VertexKey][]RadialLine)
	for _, rl := range m.Radials {
		byVertex[rl.Key.Vertex] = append(byVertex[rl.Key.Vertex], rl)
	}
	var segs []RadialSegment
	for _, radials := range byVertex {
		sort.Slice(radials, func(i, j int) bool { return radials[i].Angle < radials[j].Angle })
		for i := 0; i+1 < len(radials); i++ {
			segs = append(segs, RadialSegment{
				Corner: radials[i].Corner,
				A:      radials[i].Key,
				B:      radials[i+1].Key,
			})
		}
	}
	sort.Slice(segs, func(i, j int) bool {
		if segs[i].A.Angle != segs[j].A.Angle {
			return segs[i].A.Angle < segs[j].A.Angle
		}
		return segs[i].B.Angle < segs[j].B.Angle
	})
	return segs
}

// radialState is the prepared wedge-coverage bookkeeping for one reduction
// run: per-radial division sets plus the derived wedges.
type radialState struct {
	divisions map[RadialKey]map[shapemap.Ref]bool
	segments  []RadialSegment
}

// computeRadialState computes the radial divisions — for each radial line,
// the set of axial lines that cut it — and the wedges between successive
// radials.
func (m *AllLineMap) computeRadialState() *radialState {
	tol := m.tol()
	rs := &radialState{divisions: make(map[RadialKey]map[shapemap.Ref]bool)}
	if len(m.Radials) == 0 {
		return rs
	}
	refs := m.Refs()
	axialLines := make(map[shapemap.Ref]geometry.Line, len(refs))
	for _, ref := range refs {
		s, err := m.Get(ref)
		if err != nil || len(s.AsLines()) == 0 {
			continue
		}
		axialLines[ref] = s.AsLines()[0]
	}
	for key, rl := range m.Radials {
		div := make(map[shapemap.Ref]bool)
		for ref, al := range axialLines {
			if al.Intersects(rl.Line, tol) != geometry.NoIntersection {
				div[ref] = true
			}
		}
		rs.divisions[key] = div
	}
	rs.segments = m.Segments()
	return rs
}

// covers reports whether ref cuts both of seg's bordering radials.
func (rs *radialState) covers(seg RadialSegment, ref shapemap.Ref) bool {
	return rs.divisions[seg.A][ref] && rs.divisions[seg.B][ref]
}

// coverage counts the alive axial lines covering seg.
func (rs *radialState) coverage(seg RadialSegment, alive map[shapemap.Ref]bool) int {
	n := 0
	for ref := range rs.divisions[seg.A] {
		if alive[ref] && rs.divisions[seg.B][ref] {
			n++
		}
	}
	return n
}

// checkVital is the stricter fall-back test run when removing a line would
// drop seg's coverage to zero: the wedge stays covered if some pair of
// still-present lines — one cutting each bordering radial — intersect at a
// point inside the wedge.
func (rs *radialState) checkVital(m *AllLineMap, seg RadialSegment, alive map[shapemap.Ref]bool, removing shapemap.Ref) bool {
	tol := m.tol()
	loA, hiA := seg.A.Angle, seg.B.Angle
	for la := range rs.divisions[seg.A] {
		if !alive[la] || la == removing {
			continue
		}
		sa, err := m.Get(la)
		if err != nil {
			continue
		}
		lla := sa.AsLines()[0]
		for lb := range rs.divisions[seg.B] {
			if !alive[lb] || lb == removing || lb == la {
				continue
			}
			sb, err := m.Get(lb)
			if err != nil {
				continue
			}
			llb := sb.AsLines()[0]
			if lla.Intersects(llb, tol) == geometry.NoIntersection {
				continue
			}
			ip, ok := lla.IntersectionPoint(llb)
			if !ok {
				continue
			}
			v := ip.Sub(seg.Corner)
			if math.Hypot(v.X, v.Y) <= tol {
				continue
			}
			ang := v.Angle()
			if ang > loA+radialAngleQuantum && ang < hiA-radialAngleQuantum {
				return true
			}
		}
	}
	return false
}

// wedgeBlocked reports whether removing a would leave some radial segment
// a currently covers with zero coverage and no vital pair-cover.
func wedgeBlocked(m *AllLineMap, rs *radialState, alive map[shapemap.Ref]bool, a shapemap.Ref) bool {
	for _, seg := range rs.segments {
		if !rs.covers(seg, a) {
			continue
		}
		if rs.coverage(seg, alive) > 1 {
			continue // another alive line still covers the wedge outright
		}
		if !rs.checkVital(m, seg, alive, a) {
			return true
		}
	}
	return false
}

// keyVertexBlocked reports whether removing a would leave one of its key
// vertices with no surviving line through it.
func keyVertexBlocked(g *shapegraph.ShapeGraph, alive map[shapemap.Ref]bool, a shapemap.Ref) bool {
	for p := range g.KeyVertices[a] {
		orphaned := true
		for other, verts := range g.KeyVertices {
			if other == a || !alive[other] {
				continue
			}
			if verts[p] > 0 {
				orphaned = false
				break
			}
		}
		if orphaned {
			return true
		}
	}
	return false
}

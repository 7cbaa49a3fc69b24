package shapegraph

import (
	"math"
	"sort"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/shapemap"
)

// BuildSegments derives a segment ShapeGraph from an axial ShapeGraph: each
// axial line is cut at every point where another axial line crosses it,
// producing the "segments"; segment-to-segment adjacency at
// each junction is recorded with an angular cost in [0,2] half-turns via
// the 1-cos(turn angle) formula.
//
// axial.MakeConnections must have already been run.
func BuildSegments(axial *ShapeGraph, tol float64) (*ShapeGraph, error) {
	if !axial.Axial {
		return nil, ErrNotSegmentGraph
	}
	seg, err := NewSegment(axial.Region, axial.bucketSpacingOf())
	if err != nil {
		return nil, err
	}

	// junction collects, per world point (quantized to tol), every segment
	// end (ref, direction, direction-vector) meeting there.
	type segEnd struct {
		ref SegDir
		seg shapemap.Ref
		vec geometry.Point
	}
	junctions := make(map[geometry.Point][]segEnd)
	key := func(p geometry.Point) geometry.Point {
		return geometry.Point{X: math.Round(p.X / tol) * tol, Y: math.Round(p.Y / tol) * tol}
	}

	for _, axRef := range axial.Refs() {
		shape, err := axial.Get(axRef)
		if err != nil {
			return nil, err
		}
		line := shape.AsLines()[0]
		params := splitParams(axial, axRef, line, tol)

		a, b := line.Start(), line.End()
		vec := b.Sub(a)
		for i := 0; i+1 < len(params); i++ {
			p0 := a.Add(vec.Scale(params[i]))
			p1 := a.Add(vec.Scale(params[i+1]))
			segLine := geometry.NewLine(p0, p1)
			if segLine.Length() <= tol {
				continue
			}
			segRef := seg.AddLine(segLine, 0)
			seg.Connectors[segRef].AxialRef = axRef

			dir := segLine.End().Sub(segLine.Start())
			junctions[key(p0)] = append(junctions[key(p0)], segEnd{ref: DirForward, seg: segRef, vec: dir})
			junctions[key(p1)] = append(junctions[key(p1)], segEnd{ref: DirBackward, seg: segRef, vec: dir.Scale(-1)})
		}
	}

	for _, ends := range junctions {
		for i := range ends {
			for j := range ends {
				if i == j {
					continue
				}
				from, to := ends[i], ends[j]
				// from.vec points away from the junction; reversed, it is
				// the direction of arrival
				weight := angularCost(from.vec.Scale(-1), to.vec)
				other := SegmentRef{Dir: to.ref, Ref: to.seg}
				if from.ref == DirForward {
					seg.Connectors[from.seg].Forward[other] = weight
				} else {
					seg.Connectors[from.seg].Back[other] = weight
				}
			}
		}
	}
	return seg, nil
}

// bucketSpacingOf recovers the ShapeMap's original bucket spacing for a
// fresh segment graph; segments.go lives in the same package so it reaches
// past the embedded field rather than exposing a public accessor solely
// for this one internal use.
func (g *ShapeGraph) bucketSpacingOf() float64 {
	return g.ShapeMap.BucketSpacing()
}

// splitParams returns the sorted, deduplicated set of parametric positions
// (0..1 along line) at which axRef's line should be cut: both endpoints
// plus every intersection with a connected axial line.
func splitParams(axial *ShapeGraph, axRef shapemap.Ref, line geometry.Line, tol float64) []float64 {
	params := []float64{0, 1}
	conn := axial.Connectors[axRef]
	for _, other := range conn.Connections {
		os, err := axial.Get(other)
		if err != nil {
			continue
		}
		ol := os.AsLines()[0]
		if line.Intersects(ol, tol) == geometry.NoIntersection {
			continue
		}
		ip, ok := line.IntersectionPoint(ol)
		if !ok {
			continue
		}
		t := paramOf(line, ip)
		if t > 1e-9 && t < 1-1e-9 {
			params = append(params, t)
		}
	}
	sort.Float64s(params)
	out := params[:0:0]
	for i, t := range params {
		if i == 0 || t-out[len(out)-1] > 1e-9 {
			out = append(out, t)
		}
	}
	return out
}

func paramOf(line geometry.Line, p geometry.Point) float64 {
	v := line.Vector()
	len2 := v.Dot(v)
	if len2 == 0 {
		return 0
	}
	return p.Sub(line.Start()).Dot(v) / len2
}

// angularCost returns 1-cos(theta) where theta is the angle between a and
// b, in [0,2]: 0 for continuing straight ahead, 2 for reversing.
func angularCost(a, b geometry.Point) float64 {
	la, lb := math.Hypot(a.X, a.Y), math.Hypot(b.X, b.Y)
	if la == 0 || lb == 0 {
		return 0
	}
	cos := (a.X*b.X + a.Y*b.Y) / (la * lb)
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return 1 - cos
}

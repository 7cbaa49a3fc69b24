// Package pushvalues transfers attribute columns between maps by geometric
// containment: point→shape via point-in-polygon, shape→point
// via line rasterization onto the destination grid (polygons by per-point
// containment), and shape→shape via region-filtered intersection tests.
// Every transfer aggregates with a Reducer and optionally writes a count
// column; layer-visibility filters apply on the shape-map side(s).
package pushvalues

import (
	"errors"
	"math"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
	"github.com/salanous/spacesyntax/shapemap"
)

// ErrSourceColumn indicates the source column does not exist.
var ErrSourceColumn = errors.New("pushvalues: source column not found")

// Reducer selects how multiple source values landing on one destination row
// are combined.
type Reducer int

const (
	ReduceNone Reducer = iota // last writer wins, in source iteration order
	ReduceMin
	ReduceMax
	ReduceAvg
	ReduceTot
)

// acc accumulates source values for one destination row.
type acc struct {
	count int
	sum   float64
	min   float64
	max   float64
	last  float64
}

func (a *acc) add(v float64) {
	if a.count == 0 {
		a.min, a.max = v, v
	} else {
		if v < a.min {
			a.min = v
		}
		if v > a.max {
			a.max = v
		}
	}
	a.count++
	a.sum += v
	a.last = v
}

func (a *acc) value(r Reducer) float64 {
	switch r {
	case ReduceMin:
		return a.min
	case ReduceMax:
		return a.max
	case ReduceAvg:
		return a.sum / float64(a.count)
	case ReduceTot:
		return a.sum
	default:
		return a.last
	}
}

// writeOut merges accumulated values into the destination table under
// dstCol, plus countCol (if non-empty). Destination rows with no
// contributing source are left at NaN.
func writeOut[K comparable](set func(K, string, float64), resetCol func(string) int, accs map[K]*acc, order []K, dstCol, countCol string, r Reducer) {
	resetCol(dstCol)
	if countCol != "" {
		resetCol(countCol)
	}
	for _, key := range order {
		a, ok := accs[key]
		if !ok {
			continue
		}
		set(key, dstCol, a.value(r))
		if countCol != "" {
			set(key, countCol, float64(a.count))
		}
	}
}

// orderedAccs holds the accumulators with their keys in first-touch order,
// so output is deterministic.
type orderedAccs[K comparable] struct {
	accs  map[K]*acc
	order []K
}

func newOrderedAccs[K comparable]() *orderedAccs[K] {
	return &orderedAccs[K]{accs: make(map[K]*acc)}
}

func (o *orderedAccs[K]) add(key K, v float64) {
	a, ok := o.accs[key]
	if !ok {
		a = &acc{}
		o.accs[key] = a
		o.order = append(o.order, key)
	}
	a.add(v)
}

// PointsToShapes pushes srcCol from a PointMap into dstCol of a ShapeMap:
// each filled source cell's value is aggregated into every visible
// destination polygon containing the cell's centre.
func PointsToShapes(src *pointmap.PointMap, srcCol string, dst *shapemap.ShapeMap, dstCol, countCol string, r Reducer, c comm.Communicator) error {
	if c == nil {
		c = comm.Noop{}
	}
	if _, ok := src.Attributes.GetColumnIndex(srcCol); !ok {
		return ErrSourceColumn
	}
	cells := src.FilledCells()
	c.PostMessage(comm.NumRecords, int64(len(cells)))
	out := newOrderedAccs[shapemap.Ref]()
	for i, cell := range cells {
		if c.IsCancelled() {
			return nil
		}
		v, err := src.Attributes.Get(cell, srcCol)
		if err != nil || math.IsNaN(v) {
			continue
		}
		loc := src.At(cell).Location
		for _, ref := range dst.ShapesContaining(loc) {
			if !dst.Visible(ref) {
				continue
			}
			out.add(ref, v)
		}
		c.PostMessage(comm.CurrentRecord, int64(i+1))
	}
	writeOut(dst.Attributes.Set, dst.Attributes.InsertOrResetColumn, out.accs, out.order, dstCol, countCol, r)
	return nil
}

// ShapesToPoints pushes srcCol from a ShapeMap into dstCol of a PointMap.
// Line and polyline shapes are rasterized onto the destination grid with
// the touching variant; polygon shapes contribute to every filled cell
// whose centre they contain; point shapes contribute to their containing
// cell.
func ShapesToPoints(src *shapemap.ShapeMap, srcCol string, dst *pointmap.PointMap, dstCol, countCol string, r Reducer, c comm.Communicator) error {
	if c == nil {
		c = comm.Noop{}
	}
	if _, ok := src.Attributes.GetColumnIndex(srcCol); !ok {
		return ErrSourceColumn
	}
	refs := src.Refs()
	c.PostMessage(comm.NumRecords, int64(len(refs)))
	out := newOrderedAccs[geometry.PixelRef]()

	addCell := func(cell geometry.PixelRef, v float64) {
		if !dst.InBounds(cell) {
			return
		}
		p := dst.At(cell)
		if !p.Filled() || p.Blocked() {
			return
		}
		out.add(cell, v)
	}

	for i, ref := range refs {
		if c.IsCancelled() {
			return nil
		}
		if !src.Visible(ref) {
			continue
		}
		v, err := src.Attributes.Get(ref, srcCol)
		if err != nil || math.IsNaN(v) {
			continue
		}
		shape, err := src.Get(ref)
		if err != nil {
			continue
		}
		switch shape.Kind {
		case shapemap.KindPoint:
			addCell(dst.Grid.Pixelate(shape.Points[0], false), v)
		case shapemap.KindLine, shapemap.KindPolyline:
			seen := make(map[geometry.PixelRef]bool)
			for _, l := range shape.AsLines() {
				for _, cell := range dst.Grid.PixelateLineTouching(l, dst.Spacing/2) {
					if !seen[cell] {
						seen[cell] = true
						addCell(cell, v)
					}
				}
			}
		case shapemap.KindPolygon:
			for _, cell := range dst.FilledCells() {
				p := dst.At(cell)
				if p.Blocked() {
					continue
				}
				if shape.Region.Contains(p.Location) && polygonContains(shape.Points, p.Location) {
					out.add(cell, v)
				}
			}
		}
		c.PostMessage(comm.CurrentRecord, int64(i+1))
	}
	// every filled destination cell gets a row, so a cell no shape reaches
	// reads back as NaN rather than as a missing row
	for _, cell := range dst.FilledCells() {
		dst.Attributes.EnsureRow(cell)
	}
	writeOut(dst.Attributes.Set, dst.Attributes.InsertOrResetColumn, out.accs, out.order, dstCol, countCol, r)
	return nil
}

// ShapesToShapes pushes srcCol between two ShapeMaps: a source shape
// contributes to every visible destination shape it geometrically meets —
// a point source by containment, line/poly sources by edge intersection or
// mutual centroid containment. Axial↔shape and segment↔shape transfers are
// this same operation, since a ShapeGraph embeds a ShapeMap.
func ShapesToShapes(src *shapemap.ShapeMap, srcCol string, dst *shapemap.ShapeMap, dstCol, countCol string, r Reducer, c comm.Communicator) error {
	if c == nil {
		c = comm.Noop{}
	}
	if _, ok := src.Attributes.GetColumnIndex(srcCol); !ok {
		return ErrSourceColumn
	}
	refs := src.Refs()
	c.PostMessage(comm.NumRecords, int64(len(refs)))
	out := newOrderedAccs[shapemap.Ref]()
	tol := dst.BucketSpacing() * 1e-6

	for i, srcRef := range refs {
		if c.IsCancelled() {
			return nil
		}
		if !src.Visible(srcRef) {
			continue
		}
		v, err := src.Attributes.Get(srcRef, srcCol)
		if err != nil || math.IsNaN(v) {
			continue
		}
		shape, err := src.Get(srcRef)
		if err != nil {
			continue
		}
		if shape.Kind == shapemap.KindPoint {
			for _, dstRef := range dst.ShapesContaining(shape.Points[0]) {
				if dst.Visible(dstRef) {
					out.add(dstRef, v)
				}
			}
			c.PostMessage(comm.CurrentRecord, int64(i+1))
			continue
		}
		for _, dstRef := range dst.QueryRegion(shape.Region) {
			if !dst.Visible(dstRef) {
				continue
			}
			dstShape, err := dst.Get(dstRef)
			if err != nil {
				continue
			}
			if shapesMeet(shape, dstShape, tol) {
				out.add(dstRef, v)
			}
		}
		c.PostMessage(comm.CurrentRecord, int64(i+1))
	}
	writeOut(dst.Attributes.Set, dst.Attributes.InsertOrResetColumn, out.accs, out.order, dstCol, countCol, r)
	return nil
}

// shapesMeet reports whether two non-point shapes geometrically meet: any
// pair of their decomposed edges intersects, or one polygon contains the
// other's centroid (covering the fully-nested case no edge test sees).
func shapesMeet(a, b shapemap.SalaShape, tol float64) bool {
	for _, la := range a.AsLines() {
		for _, lb := range b.AsLines() {
			if la.Intersects(lb, tol) != geometry.NoIntersection {
				return true
			}
		}
	}
	if a.Kind == shapemap.KindPolygon && polygonContains(a.Points, b.Centroid) {
		return true
	}
	if b.Kind == shapemap.KindPolygon && polygonContains(b.Points, a.Centroid) {
		return true
	}
	return false
}

// polygonContains is the same even-odd ray cast the shape map's containment
// queries use.
func polygonContains(points []geometry.Point, p geometry.Point) bool {
	inside := false
	n := len(points)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := points[i], points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			xCross := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
			if p.X < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

// Package shapemap implements the shape map: a keyed container of
// arbitrary points/lines/polylines/polygons (SalaShape) with a pixel-bucket
// spatial index, a user attribute table, per-layer visibility, and an undo
// event log.
package shapemap

import (
	"errors"
	"math"
	"sort"

	"github.com/salanous/spacesyntax/attrtable"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pixelgrid"
)

// Sentinel errors for shape-map operations.
var (
	// ErrShapeNotFound indicates a Ref not present in the map.
	ErrShapeNotFound = errors.New("shapemap: shape not found")

	// ErrDegenerateShape indicates a shape with too few points for its type.
	ErrDegenerateShape = errors.New("shapemap: degenerate shape")
)

// Kind is a SalaShape's geometric type, matching the source's SHAPE_POINT /
// SHAPE_LINE / SHAPE_POLY(+SHAPE_CLOSED) flags collapsed into an enum.
type Kind int

const (
	KindPoint Kind = iota
	KindLine
	KindPolyline // open poly
	KindPolygon  // closed poly
)

// Ref is a stable integer shape reference; Ref values are never reused
// within a ShapeMap's lifetime.
type Ref int

// SalaShape is one geometric primitive owned by a ShapeMap: a point, line,
// open polyline, or closed polygon, plus its derived centroid/area/
// perimeter/bounding-region summary.
type SalaShape struct {
	Kind      Kind
	Points    []geometry.Point // 1 point for KindPoint, 2 for KindLine, N for poly*
	CCW       bool             // meaningful only for KindPolygon
	Centroid  geometry.Point
	Region    geometry.Region
	Area      float64
	Perimeter float64
}

// NewPointShape builds a point shape.
func NewPointShape(p geometry.Point) SalaShape {
	s := SalaShape{Kind: KindPoint, Points: []geometry.Point{p}, Centroid: p, Region: geometry.Region{BottomLeft: p, TopRight: p}}
	return s
}

// NewLineShape builds a line shape from a geometry.Line.
func NewLineShape(l geometry.Line) SalaShape {
	a, b := l.Start(), l.End()
	s := SalaShape{Kind: KindLine, Points: []geometry.Point{a, b}, Region: l.Region, Perimeter: l.Length()}
	s.Centroid = l.Region.Centre()
	return s
}

// NewPolyShape builds a polyline (closed=false) or polygon (closed=true)
// from an ordered point list, computing centroid/area/perimeter/region and,
// for a polygon, its CCW flag.
func NewPolyShape(points []geometry.Point, closed bool) (SalaShape, error) {
	if len(points) < 2 {
		return SalaShape{}, ErrDegenerateShape
	}
	kind := KindPolyline
	if closed {
		kind = KindPolygon
	}
	s := SalaShape{Kind: kind, Points: append([]geometry.Point(nil), points...)}
	s.Region = geometry.Region{BottomLeft: points[0], TopRight: points[0]}
	for _, p := range points[1:] {
		s.Region = s.Region.Encompass(p)
	}
	s.Perimeter = polylineLength(points, closed)
	if closed {
		s.Area, s.CCW = polygonAreaSigned(points)
		s.Centroid = polygonCentroid(points, s.Area)
		s.Area = math.Abs(s.Area)
	} else {
		s.Centroid = s.Region.Centre()
	}
	return s, nil
}

func polylineLength(points []geometry.Point, closed bool) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += points[i-1].Dist(points[i])
	}
	if closed && len(points) > 1 {
		total += points[len(points)-1].Dist(points[0])
	}
	return total
}

// polygonAreaSigned returns the shoelace-formula signed area (positive for
// CCW vertex order) and whether the polygon winds CCW.
func polygonAreaSigned(points []geometry.Point) (float64, bool) {
	var sum float64
	n := len(points)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	signed := sum / 2
	return signed, signed > 0
}

func polygonCentroid(points []geometry.Point, signedArea float64) geometry.Point {
	n := len(points)
	if signedArea == 0 {
		var c geometry.Point
		for _, p := range points {
			c = c.Add(p)
		}
		return c.Scale(1 / float64(n))
	}
	var cx, cy float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := points[i].X*points[j].Y - points[j].X*points[i].Y
		cx += (points[i].X + points[j].X) * cross
		cy += (points[i].Y + points[j].Y) * cross
	}
	factor := 1 / (6 * signedArea)
	return geometry.Point{X: cx * factor, Y: cy * factor}
}

// AsLines decomposes s into its constituent line segments: empty for a
// point, one segment for a line, N-1 (plus a closing edge for a polygon)
// for a poly shape, matching SalaShape::getAsLines.
func (s SalaShape) AsLines() []geometry.Line {
	switch s.Kind {
	case KindLine:
		return []geometry.Line{geometry.NewLine(s.Points[0], s.Points[1])}
	case KindPolyline, KindPolygon:
		var out []geometry.Line
		for i := 0; i+1 < len(s.Points); i++ {
			out = append(out, geometry.NewLine(s.Points[i], s.Points[i+1]))
		}
		if s.Kind == KindPolygon && len(s.Points) > 1 {
			out = append(out, geometry.NewLine(s.Points[len(s.Points)-1], s.Points[0]))
		}
		return out
	default:
		return nil
	}
}

// UndoKind identifies one entry in a ShapeMap's undo log.
type UndoKind int

const (
	UndoCreate UndoKind = iota
	UndoDelete
	UndoMove
)

// UndoEvent is one logged edit, enough to reverse a create/delete/move.
type UndoEvent struct {
	Kind   UndoKind
	Ref    Ref
	Before SalaShape // valid for Delete/Move
	After  SalaShape // valid for Create/Move
}

// ShapeMap is a keyed container of SalaShapes with a pixel-bucket spatial
// index, a Ref-keyed attribute table, per-layer visibility, and an undo
// log.
type ShapeMap struct {
	Region     geometry.Region
	Attributes *attrtable.Table[Ref]

	shapes   map[Ref]*SalaShape
	order    []Ref
	nextRef  Ref
	layers   map[Ref]int // shape -> layer index
	layerVis map[int]bool

	bucketSpacing float64
	grid          *pixelgrid.PixelBase
	buckets       map[geometry.PixelRef][]Ref

	undo []UndoEvent
}

// New returns an empty ShapeMap covering region, with a pixel-bucket index
// at the given bucket spacing (world units per bucket cell).
func New(region geometry.Region, bucketSpacing float64) (*ShapeMap, error) {
	grid, err := pixelgrid.New(region, bucketSpacing)
	if err != nil {
		return nil, err
	}
	return &ShapeMap{
		Region:        region,
		Attributes:    attrtable.New[Ref](),
		shapes:        make(map[Ref]*SalaShape),
		layers:        make(map[Ref]int),
		layerVis:      map[int]bool{0: true},
		bucketSpacing: bucketSpacing,
		grid:          grid,
		buckets:       make(map[geometry.PixelRef][]Ref),
	}, nil
}

// Add inserts shape under a freshly allocated Ref, indexing it into the
// pixel-bucket grid and logging an UndoCreate event. layer defaults to 0.
func (m *ShapeMap) Add(shape SalaShape, layer int) Ref {
	ref := m.nextRef
	m.nextRef++
	m.shapes[ref] = &shape
	m.order = append(m.order, ref)
	m.layers[ref] = layer
	if _, ok := m.layerVis[layer]; !ok {
		m.layerVis[layer] = true
	}
	m.indexShape(ref, shape)
	m.Attributes.EnsureRow(ref)
	m.undo = append(m.undo, UndoEvent{Kind: UndoCreate, Ref: ref, After: shape})
	return ref
}

// Get returns the shape at ref.
func (m *ShapeMap) Get(ref Ref) (SalaShape, error) {
	s, ok := m.shapes[ref]
	if !ok {
		return SalaShape{}, ErrShapeNotFound
	}
	return *s, nil
}

// Delete removes ref from the map, unindexing it and logging an UndoDelete
// event. The Ref itself is never reused.
func (m *ShapeMap) Delete(ref Ref) error {
	s, ok := m.shapes[ref]
	if !ok {
		return ErrShapeNotFound
	}
	m.unindexShape(ref, *s)
	delete(m.shapes, ref)
	for i, r := range m.order {
		if r == ref {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.undo = append(m.undo, UndoEvent{Kind: UndoDelete, Ref: ref, Before: *s})
	return nil
}

// Move replaces ref's geometry with shape in place, re-indexing it and
// logging an UndoMove event. The Ref and its attribute row are unaffected.
func (m *ShapeMap) Move(ref Ref, shape SalaShape) error {
	old, ok := m.shapes[ref]
	if !ok {
		return ErrShapeNotFound
	}
	before := *old
	m.unindexShape(ref, before)
	*old = shape
	m.indexShape(ref, shape)
	m.undo = append(m.undo, UndoEvent{Kind: UndoMove, Ref: ref, Before: before, After: shape})
	return nil
}

// UndoLog returns every logged edit, oldest first.
func (m *ShapeMap) UndoLog() []UndoEvent { return append([]UndoEvent(nil), m.undo...) }

// Refs returns every shape ref in insertion order.
func (m *ShapeMap) Refs() []Ref { return append([]Ref(nil), m.order...) }

// Len returns the number of live shapes.
func (m *ShapeMap) Len() int { return len(m.shapes) }

// BucketSpacing returns the world-unit spacing of the pixel-bucket index.
func (m *ShapeMap) BucketSpacing() float64 { return m.bucketSpacing }

// Layer returns the layer index ref was added on (0 for unknown refs).
func (m *ShapeMap) Layer(ref Ref) int { return m.layers[ref] }

// SetLayerVisible toggles a layer's visibility mask.
func (m *ShapeMap) SetLayerVisible(layer int, visible bool) { m.layerVis[layer] = visible }

// LayerVisible reports whether layer is currently visible (unknown layers
// default to visible).
func (m *ShapeMap) LayerVisible(layer int) bool {
	v, ok := m.layerVis[layer]
	return !ok || v
}

// Visible reports whether ref's owning layer is currently visible.
func (m *ShapeMap) Visible(ref Ref) bool {
	return m.LayerVisible(m.layers[ref])
}

func (m *ShapeMap) indexShape(ref Ref, s SalaShape) {
	for _, b := range m.bucketsFor(s.Region) {
		m.buckets[b] = append(m.buckets[b], ref)
	}
}

func (m *ShapeMap) unindexShape(ref Ref, s SalaShape) {
	for _, b := range m.bucketsFor(s.Region) {
		list := m.buckets[b]
		for i, r := range list {
			if r == ref {
				m.buckets[b] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// bucketsFor returns every pixel-bucket cell r's region overlaps.
func (m *ShapeMap) bucketsFor(r geometry.Region) []geometry.PixelRef {
	lo := m.grid.Pixelate(r.BottomLeft, true)
	hi := m.grid.Pixelate(r.TopRight, true)
	var out []geometry.PixelRef
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			out = append(out, geometry.PixelRef{X: x, Y: y})
		}
	}
	return out
}

// QueryRegion returns every shape ref whose bounding region overlaps r,
// deduplicated, via the pixel-bucket index.
func (m *ShapeMap) QueryRegion(r geometry.Region) []Ref {
	seen := make(map[Ref]bool)
	var out []Ref
	for _, b := range m.bucketsFor(r) {
		for _, ref := range m.buckets[b] {
			if seen[ref] {
				continue
			}
			s := m.shapes[ref]
			if s.Region.Intersects(r, 1e-9) {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ShapesContaining returns every polygon shape ref whose region contains p,
// via the pixel-bucket index followed by an exact even-odd containment
// test, used by pushvalues' point->shape transfer.
func (m *ShapeMap) ShapesContaining(p geometry.Point) []Ref {
	candidates := m.QueryRegion(geometry.Region{BottomLeft: p, TopRight: p})
	var out []Ref
	for _, ref := range candidates {
		s := m.shapes[ref]
		if s.Kind != KindPolygon {
			continue
		}
		if polygonContains(s.Points, p) {
			out = append(out, ref)
		}
	}
	return out
}

// polygonContains is an even-odd ray-cast point-in-polygon test.
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

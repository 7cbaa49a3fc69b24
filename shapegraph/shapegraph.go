// Package shapegraph implements the axial/segment graph: a ShapeMap whose
// shapes are either axial lines or segments, augmented with a Connector
// table and the tulip bucket-queue choice/integration analysis.
package shapegraph

import (
	"errors"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/shapemap"
)

// ErrNotSegmentGraph indicates an operation that requires a segment graph
// (Axial == false) was called on an axial-line graph, or vice versa.
var ErrNotSegmentGraph = errors.New("shapegraph: operation requires a segment graph")

// SegDir is the direction of travel along a segment.
type SegDir int

const (
	DirForward SegDir = iota
	DirBackward
)

// SegmentRef identifies a directed traversal of one segment — "arrive at
// this segment travelling in this direction" — the key type Connector's
// forward/back maps use.
type SegmentRef struct {
	Dir SegDir
	Ref shapemap.Ref
}

// Connector is one shape's adjacency record. For an axial-line graph,
// Connections lists every intersecting axial ref. For a segment graph,
// Forward/Back map a directed neighbour to the angular cost (half-turns,
// in [0,2]) of turning into it.
type Connector struct {
	AxialRef    shapemap.Ref // owning axial line, for a segment; -1 for axial graphs
	Connections []shapemap.Ref
	Forward     map[SegmentRef]float64
	Back        map[SegmentRef]float64
}

// ShapeGraph is a shapemap.ShapeMap of axial lines or segments, plus a
// per-shape Connector table and, for axial graphs, the key-vertex sets the
// all-line minimiser consumes.
type ShapeGraph struct {
	*shapemap.ShapeMap
	Axial      bool // true: shapes are axial lines; false: segments
	Connectors map[shapemap.Ref]*Connector

	// KeyVertices maps an axial ref to the set of convex-corner points it
	// passes through with a "vital" connection count, used by the
	// fewest-line minimiser's checkVital test.
	KeyVertices map[shapemap.Ref]map[geometry.Point]int
}

// NewAxial returns an empty axial ShapeGraph covering region.
func NewAxial(region geometry.Region, bucketSpacing float64) (*ShapeGraph, error) {
	m, err := shapemap.New(region, bucketSpacing)
	if err != nil {
		return nil, err
	}
	return &ShapeGraph{
		ShapeMap:    m,
		Axial:       true,
		Connectors:  make(map[shapemap.Ref]*Connector),
		KeyVertices: make(map[shapemap.Ref]map[geometry.Point]int),
	}, nil
}

// NewSegment returns an empty segment ShapeGraph covering region.
func NewSegment(region geometry.Region, bucketSpacing float64) (*ShapeGraph, error) {
	m, err := shapemap.New(region, bucketSpacing)
	if err != nil {
		return nil, err
	}
	return &ShapeGraph{
		ShapeMap:   m,
		Axial:      false,
		Connectors: make(map[shapemap.Ref]*Connector),
	}, nil
}

// AddLine adds a line shape and allocates its (initially empty) Connector.
func (g *ShapeGraph) AddLine(l geometry.Line, layer int) shapemap.Ref {
	ref := g.ShapeMap.Add(shapemap.NewLineShape(l), layer)
	g.Connectors[ref] = &Connector{AxialRef: -1, Forward: map[SegmentRef]float64{}, Back: map[SegmentRef]float64{}}
	return ref
}

// MakeConnections computes axial-line intersection adjacency for every pair
// of shapes in an axial graph via the pixel-bucket index.
func (g *ShapeGraph) MakeConnections(tol float64) error {
	if !g.Axial {
		return ErrNotSegmentGraph
	}
	refs := g.ShapeMap.Refs()
	for _, a := range refs {
		g.Connectors[a].Connections = nil // idempotent across re-runs
	}
	for _, a := range refs {
		sa, err := g.ShapeMap.Get(a)
		if err != nil {
			return err
		}
		la := sa.AsLines()[0]
		seen := make(map[shapemap.Ref]bool)
		for _, b := range g.ShapeMap.QueryRegion(sa.Region) {
			if b == a || seen[b] {
				continue
			}
			sb, err := g.ShapeMap.Get(b)
			if err != nil {
				return err
			}
			lb := sb.AsLines()[0]
			if la.Intersects(lb, tol) != geometry.NoIntersection {
				seen[b] = true
				g.Connectors[a].Connections = append(g.Connectors[a].Connections, b)
			}
		}
	}
	return nil
}

// ConnectionCount returns len(Connectors[ref].Connections), the metric the
// fewest-line minimiser sorts axial lines by.
func (g *ShapeGraph) ConnectionCount(ref shapemap.Ref) int {
	c, ok := g.Connectors[ref]
	if !ok {
		return 0
	}
	return len(c.Connections)
}

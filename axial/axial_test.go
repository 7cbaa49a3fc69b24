package axial

import (
	"testing"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/regiontree"
	"github.com/salanous/spacesyntax/shapegraph"
	"github.com/salanous/spacesyntax/shapemap"
)

// buildAxialCross returns an axial ShapeGraph with two crossing lines, each
// a subset of the other's single connection, for exercising Reduce.
func buildAxialCross(t *testing.T, region geometry.Region) *shapegraph.ShapeGraph {
	t.Helper()
	sg, err := shapegraph.NewAxial(region, 5)
	if err != nil {
		t.Fatalf("NewAxial: %v", err)
	}
	sg.AddLine(geometry.NewLine(geometry.Point{X: -10, Y: 0}, geometry.Point{X: 10, Y: 0}), 0)
	sg.AddLine(geometry.NewLine(geometry.Point{X: 0, Y: -10}, geometry.Point{X: 0, Y: 10}), 0)
	if err := sg.MakeConnections(1e-6); err != nil {
		t.Fatalf("MakeConnections: %v", err)
	}
	return sg
}

func TestConvexCorners_LShape(t *testing.T) {
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 10}),
	}
	corners := ConvexCorners(walls, 1e-6)
	if len(corners) != 1 {
		t.Fatalf("expected exactly 1 shared corner, got %d", len(corners))
	}
	got := corners[0].Corner
	want := geometry.Point{X: 10, Y: 0}
	if got.Dist(want) > 1e-6 {
		t.Errorf("corner = %v, want %v", got, want)
	}
}

func TestConvexCorners_IgnoresThreeWayJunctions(t *testing.T) {
	// A T-junction endpoint is shared by three walls, so it is not a simple
	// two-wall corner and should not appear in ConvexCorners' output.
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 20, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 10}),
	}
	corners := ConvexCorners(walls, 1e-6)
	for _, c := range corners {
		if c.Corner.Dist(geometry.Point{X: 10, Y: 0}) < 1e-6 {
			t.Errorf("three-way junction at (10,0) should not be treated as a simple corner")
		}
	}
}

func TestVisibleBetween_WallBlocksLineOfSight(t *testing.T) {
	wall := geometry.NewLine(geometry.Point{X: 5, Y: -5}, geometry.Point{X: 5, Y: 5})
	tree := regiontree.New()
	tree.Insert(wall)

	a := geometry.Point{X: 0, Y: 0}
	b := geometry.Point{X: 10, Y: 0}
	if VisibleBetween(tree, a, b, 1e-6) {
		t.Error("expected the dividing wall to block visibility")
	}
}

func TestVisibleBetween_ClearSight(t *testing.T) {
	wall := geometry.NewLine(geometry.Point{X: 5, Y: -5}, geometry.Point{X: 5, Y: 5})
	tree := regiontree.New()
	tree.Insert(wall)

	a := geometry.Point{X: 0, Y: 0}
	b := geometry.Point{X: 0, Y: 4}
	if !VisibleBetween(tree, a, b, 1e-6) {
		t.Error("expected an unobstructed line of sight on the wall's own side to be visible")
	}
}

func TestBuildAllLineMap_SquareRoom(t *testing.T) {
	region := geometry.Region{BottomLeft: geometry.Point{X: 0, Y: 0}, TopRight: geometry.Point{X: 10, Y: 10}}
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 10}),
		geometry.NewLine(geometry.Point{X: 10, Y: 10}, geometry.Point{X: 0, Y: 10}),
		geometry.NewLine(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 0, Y: 0}),
	}
	seed := geometry.Point{X: 5, Y: 5}

	sg, err := BuildAllLineMap(region, walls, seed, AllLineOptions{}, nil)
	if err != nil {
		t.Fatalf("BuildAllLineMap: %v", err)
	}
	if sg == nil {
		t.Fatal("expected a non-nil ShapeGraph")
	}
	if sg.Len() == 0 {
		t.Error("expected at least one axial line spanning the room")
	}
	for _, ref := range sg.Refs() {
		if sg.ConnectionCount(ref) < 0 {
			t.Errorf("connection count should never be negative, got %d for %v", sg.ConnectionCount(ref), ref)
		}
	}
}

func TestBuildAllLineMap_NoWallsYieldsNoSeedVertex(t *testing.T) {
	region := geometry.Region{BottomLeft: geometry.Point{X: 0, Y: 0}, TopRight: geometry.Point{X: 10, Y: 10}}
	seed := geometry.Point{X: 5, Y: 5}

	_, err := BuildAllLineMap(region, nil, seed, AllLineOptions{}, nil)
	if err != ErrNoSeedVertex {
		t.Errorf("expected ErrNoSeedVertex when no convex corners exist, got %v", err)
	}
}

func TestReduce_CrossGraphDropsRedundantSubset(t *testing.T) {
	region := geometry.Region{BottomLeft: geometry.Point{X: -20, Y: -20}, TopRight: geometry.Point{X: 20, Y: 20}}
	sg := buildAxialCross(t, region)

	result := Reduce(&AllLineMap{ShapeGraph: sg})
	if len(result.Subsets) != 1 {
		t.Fatalf("subsets pass kept %d lines, want 1 (each line's connections are a subset of the other's)", len(result.Subsets))
	}
	if len(result.Minimal) > len(result.Subsets) {
		t.Errorf("fewest-longest pass should never add lines back: minimal=%d subsets=%d", len(result.Minimal), len(result.Subsets))
	}
}

// buildTeeMap models a T-intersection's all-line map: a long bar line
// crossed by two stems whose connection sets are subsets of the bar's (so
// the subset pass would drop them on connectivity grounds alone), plus the
// radial and key-vertex bookkeeping that makes each of the three lines
// vital.
func buildTeeMap(t *testing.T) (*AllLineMap, []shapemap.Ref) {
	t.Helper()
	region := geometry.Region{BottomLeft: geometry.Point{X: 0, Y: 0}, TopRight: geometry.Point{X: 20, Y: 10}}
	sg, err := shapegraph.NewAxial(region, 5)
	if err != nil {
		t.Fatalf("NewAxial: %v", err)
	}
	bar := sg.AddLine(geometry.NewLine(geometry.Point{X: 0, Y: 5}, geometry.Point{X: 20, Y: 5}), 0)
	stemA := sg.AddLine(geometry.NewLine(geometry.Point{X: 5, Y: 0}, geometry.Point{X: 5, Y: 10}), 0)
	stemB := sg.AddLine(geometry.NewLine(geometry.Point{X: 15, Y: 0}, geometry.Point{X: 15, Y: 10}), 0)
	if err := sg.MakeConnections(1e-6); err != nil {
		t.Fatalf("MakeConnections: %v", err)
	}

	// each line passes through a convex corner no other line reaches
	sg.KeyVertices[bar] = map[geometry.Point]int{{X: 0, Y: 5}: 1}
	sg.KeyVertices[stemA] = map[geometry.Point]int{{X: 5, Y: 0}: 1}
	sg.KeyVertices[stemB] = map[geometry.Point]int{{X: 15, Y: 0}: 1}

	// a wedge at stemA's corner whose two bordering radials only stemA
	// cuts, so its removal would drop the wedge's coverage to zero; the
	// bar and stemB lie clear of both radial lines
	vk := VertexKey{WallA: 0, WallB: 1}
	r1 := RadialKey{Vertex: vk, Angle: 0.5}
	r2 := RadialKey{Vertex: vk, Angle: 2.0}
	m := &AllLineMap{
		ShapeGraph: sg,
		Radials: map[RadialKey]RadialLine{
			r1: {Key: r1, Corner: geometry.Point{X: 5, Y: 0}, Line: geometry.NewLine(geometry.Point{X: 4, Y: 2}, geometry.Point{X: 6, Y: 2}), Angle: r1.Angle},
			r2: {Key: r2, Corner: geometry.Point{X: 5, Y: 0}, Line: geometry.NewLine(geometry.Point{X: 4, Y: 7}, geometry.Point{X: 6, Y: 7}), Angle: r2.Angle},
		},
	}
	return m, []shapemap.Ref{bar, stemA, stemB}
}

// TestReduce_TeeAllThreeVital: on a T-intersection all-line map the
// minimal output keeps all three axial lines, and each is marked vital.
func TestReduce_TeeAllThreeVital(t *testing.T) {
	m, refs := buildTeeMap(t)
	result := Reduce(m)

	if len(result.Minimal) != 3 {
		t.Fatalf("minimal output has %d lines, want 3 (removed: %+v)", len(result.Minimal), result.Removed)
	}
	for _, ref := range refs {
		if _, ok := result.Vital[ref]; !ok {
			t.Errorf("line %v not marked vital; vital set: %v", ref, result.Vital)
		}
	}
}

// TestReduce_WedgeCoverageBlocksRemoval: a line that is subset-removable
// on connectivity grounds alone survives when it is the only cover of a
// radial segment.
func TestReduce_WedgeCoverageBlocksRemoval(t *testing.T) {
	m, refs := buildTeeMap(t)
	stemA := refs[1]
	// drop the key-vertex protection so only the wedge guard can save it
	m.KeyVertices[stemA] = nil
	result := Reduce(m)

	for _, ref := range result.Minimal {
		if ref == stemA {
			return
		}
	}
	t.Fatalf("wedge-covered stem was removed; minimal=%v removed=%+v", result.Minimal, result.Removed)
}

// TestReduce_CheckVitalAllowsRemoval: when a pair of surviving lines
// jointly covers the wedge via an intersection inside it, the sole direct
// cover becomes removable again.
func TestReduce_CheckVitalAllowsRemoval(t *testing.T) {
	m, refs := buildTeeMap(t)
	stemA := refs[1]
	m.KeyVertices[stemA] = nil

	// two extra lines crossing at (6,4) — angle ~1.33 rad from the corner
	// (5,0), inside the wedge (0.5, 2.0); diagA cuts only the lower
	// radial, diagB only the upper
	diagA := m.AddLine(geometry.NewLine(geometry.Point{X: 4.5, Y: 1}, geometry.Point{X: 7, Y: 6}), 0)
	diagB := m.AddLine(geometry.NewLine(geometry.Point{X: 4.5, Y: 8.5}, geometry.Point{X: 6.5, Y: 2.5}), 0)
	if err := m.MakeConnections(1e-6); err != nil {
		t.Fatalf("MakeConnections: %v", err)
	}
	// the diagonals carry their own unique key vertices so the passes
	// cannot strip the pair before the stem is considered
	m.KeyVertices[diagA] = map[geometry.Point]int{{X: 4.5, Y: 1}: 1}
	m.KeyVertices[diagB] = map[geometry.Point]int{{X: 4.5, Y: 8.5}: 1}

	result := Reduce(m)
	for _, ref := range result.Minimal {
		if ref == stemA {
			t.Fatalf("checkVital pair cover should have made the stem removable; minimal=%v", result.Minimal)
		}
	}
}

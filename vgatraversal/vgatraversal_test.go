package vgatraversal_test

import (
	"math"
	"testing"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
	"github.com/salanous/spacesyntax/vgatraversal"
)

// buildSingleRoom matches scenario S1: a square boundary whose walls
// rasterize onto the cells just outside a 10x10 open interior, spacing 1.0,
// filled interior, no internal walls.
func buildSingleRoom(t *testing.T) (*pointmap.PointMap, geometry.PixelRef) {
	t.Helper()
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 11, Y: 11})
	pm, err := pointmap.New(region, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	pm.FillRegion(region)
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 11, Y: 0}),
		geometry.NewLine(geometry.Point{X: 11, Y: 0}, geometry.Point{X: 11, Y: 11}),
		geometry.NewLine(geometry.Point{X: 11, Y: 11}, geometry.Point{X: 0, Y: 11}),
		geometry.NewLine(geometry.Point{X: 0, Y: 11}, geometry.Point{X: 0, Y: 0}),
	}
	pm.BlockWalls(walls, 1e-6)
	if err := pm.BuildVisibilityGraph(comm.Noop{}, pointmap.DefaultVisibilityOptions()); err != nil {
		t.Fatal(err)
	}
	centre := geometry.PixelRef{X: 5, Y: 5}
	return pm, centre
}

// TestVisualBFS_SingleRoom covers scenario S1: from the centre
// of a fully visible 10x10-cell room, each of the 99 other cells sits at
// visual depth 1, so mean depth is exactly 1.0.
func TestVisualBFS_SingleRoom(t *testing.T) {
	pm, centre := buildSingleRoom(t)
	res, err := vgatraversal.VisualBFS(pm, centre)
	if err != nil {
		t.Fatal(err)
	}
	if res.NodeCount != 100 {
		t.Errorf("NodeCount = %d, want 100 (origin plus 99 others)", res.NodeCount)
	}
	m := res.Metrics()
	if math.Abs(m.MeanDepth-1.0) > 1e-9 {
		t.Errorf("MeanDepth = %v, want 1.0", m.MeanDepth)
	}
	if m.IntegrationHH <= 0 || math.IsInf(m.IntegrationHH, 0) || math.IsNaN(m.IntegrationHH) {
		t.Errorf("IntegrationHH = %v, want finite positive", m.IntegrationHH)
	}
}

// TestVisualBFS_DepthMonotone: depth never decreases by more than 1 per
// hop from any reached predecessor.
func TestVisualBFS_DepthMonotone(t *testing.T) {
	pm, centre := buildSingleRoom(t)
	res, err := vgatraversal.VisualBFS(pm, centre)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < pm.Rows(); y++ {
		for x := 0; x < pm.Cols(); x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			d := res.Depth[pm.Index(ref)]
			if d < 0 {
				continue
			}
			for _, dir := range geometry.AllDirections() {
				nref, ok := ref.Neighbour(dir)
				if !ok || !pm.InBounds(nref) {
					continue
				}
				nd := res.Depth[pm.Index(nref)]
				if nd < 0 {
					continue
				}
				if nd > d+1 {
					t.Errorf("cell %v depth %d has grid-neighbour %v at depth %d, violating depth[c] <= depth[c']+1", ref, d, nref, nd)
				}
			}
		}
	}
}

func TestVisualBFS_RejectsUnfilledOrigin(t *testing.T) {
	pm, _ := buildSingleRoom(t)
	if _, err := vgatraversal.VisualBFS(pm, geometry.PixelRef{X: 0, Y: 0}); err != vgatraversal.ErrOriginNotFilled {
		t.Fatalf("got %v, want ErrOriginNotFilled for a blocked boundary cell", err)
	}
}

// TestMetricDijkstra_SpacingScaled: within the filled interior, dist
// equals spacing times the straight-line grid distance along an orthogonal
// path, to within 1 ULP-scale tolerance.
func TestMetricDijkstra_SpacingScaled(t *testing.T) {
	pm, centre := buildSingleRoom(t)
	res, err := vgatraversal.MetricDijkstra(pm, centre)
	if err != nil {
		t.Fatal(err)
	}
	target := geometry.PixelRef{X: 5, Y: 1}
	want := pm.Spacing * 4 // 4 straight steps from (5,5) to (5,1)
	got := res.Dist[pm.Index(target)]
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Dist to %v = %v, want %v", target, got, want)
	}
}

func TestMetricDijkstra_LinkCostChargesHop(t *testing.T) {
	pm, centre := buildSingleRoom(t)
	a := geometry.PixelRef{X: 1, Y: 1}
	b := geometry.PixelRef{X: 8, Y: 8}
	if err := pm.AddMergeLink(a, b); err != nil {
		t.Fatal(err)
	}
	free, err := vgatraversal.MetricDijkstra(pm, centre)
	if err != nil {
		t.Fatal(err)
	}
	priced, err := vgatraversal.MetricDijkstra(pm, centre, vgatraversal.WithLinkCost(100))
	if err != nil {
		t.Fatal(err)
	}
	if priced.Dist[pm.Index(b)] < free.Dist[pm.Index(b)] {
		t.Errorf("priced link cost produced a shorter path than free: %v < %v", priced.Dist[pm.Index(b)], free.Dist[pm.Index(b)])
	}
}

// TestMetricDijkstra_Corridor covers scenario S2: along a
// 2x20-cell corridor the metric distance column is monotonic, and the far
// end of the walkable row sits at exactly 19 spacing units.
func TestMetricDijkstra_Corridor(t *testing.T) {
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 21, Y: 3})
	pm, err := pointmap.New(region, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	pm.FillRegion(region)
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 21, Y: 0}),
		geometry.NewLine(geometry.Point{X: 21, Y: 0}, geometry.Point{X: 21, Y: 3}),
		geometry.NewLine(geometry.Point{X: 21, Y: 3}, geometry.Point{X: 0, Y: 3}),
		geometry.NewLine(geometry.Point{X: 0, Y: 3}, geometry.Point{X: 0, Y: 0}),
	}
	pm.BlockWalls(walls, 1e-6)
	if err := pm.BuildVisibilityGraph(comm.Noop{}, pointmap.DefaultVisibilityOptions()); err != nil {
		t.Fatal(err)
	}

	origin := geometry.PixelRef{X: 1, Y: 1}
	res, err := vgatraversal.MetricDijkstra(pm, origin)
	if err != nil {
		t.Fatal(err)
	}
	prev := -1.0
	for x := int16(1); x <= 20; x++ {
		d := res.Dist[pm.Index(geometry.PixelRef{X: x, Y: 1})]
		if d < prev {
			t.Fatalf("distance not monotonic along the corridor at x=%d: %v < %v", x, d, prev)
		}
		prev = d
	}
	far := res.Dist[pm.Index(geometry.PixelRef{X: 20, Y: 1})]
	if math.Abs(far-19.0) > 1e-6 {
		t.Errorf("distance at the corridor's far end = %v, want 19.0", far)
	}
}

// TestMetricDijkstra_MergeLinkShortcut covers scenario S5: two
// disjoint rooms joined only by a zero-cost merge link; the distance to the
// linked cell in room B equals the in-room distance to its partner in room
// A, and cells beyond it cost the in-room-B metric on top.
func TestMetricDijkstra_MergeLinkShortcut(t *testing.T) {
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 13, Y: 7})
	pm, err := pointmap.New(region, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	pm.FillRegion(region)
	roomWalls := func(x0, x1 float64) []geometry.Line {
		return []geometry.Line{
			geometry.NewLine(geometry.Point{X: x0, Y: 0}, geometry.Point{X: x1, Y: 0}),
			geometry.NewLine(geometry.Point{X: x1, Y: 0}, geometry.Point{X: x1, Y: 6}),
			geometry.NewLine(geometry.Point{X: x1, Y: 6}, geometry.Point{X: x0, Y: 6}),
			geometry.NewLine(geometry.Point{X: x0, Y: 6}, geometry.Point{X: x0, Y: 0}),
		}
	}
	pm.BlockWalls(append(roomWalls(0, 6), roomWalls(7, 13)...), 1e-6)
	if err := pm.BuildVisibilityGraph(comm.Noop{}, pointmap.DefaultVisibilityOptions()); err != nil {
		t.Fatal(err)
	}
	linkA := geometry.PixelRef{X: 3, Y: 3}
	linkB := geometry.PixelRef{X: 10, Y: 3}
	if err := pm.AddMergeLink(linkA, linkB); err != nil {
		t.Fatal(err)
	}

	origin := geometry.PixelRef{X: 1, Y: 1}
	res, err := vgatraversal.MetricDijkstra(pm, origin)
	if err != nil {
		t.Fatal(err)
	}
	dA := res.Dist[pm.Index(linkA)]
	dB := res.Dist[pm.Index(linkB)]
	if math.Abs(dA-dB) > 1e-9 {
		t.Errorf("link traversal should be free: dist at %v = %v, at %v = %v", linkA, dA, linkB, dB)
	}
	// (12,5) is two diagonal steps beyond the room-B link cell
	beyond := res.Dist[pm.Index(geometry.PixelRef{X: 12, Y: 5})]
	want := dB + 2*math.Sqrt2
	if math.Abs(beyond-want) > 1e-9 {
		t.Errorf("dist beyond the link = %v, want in-room A + in-room B = %v", beyond, want)
	}
}

func TestAngularBucketQueue_StraightLineIsFree(t *testing.T) {
	pm, centre := buildSingleRoom(t)
	res, err := vgatraversal.AngularBucketQueue(pm, centre)
	if err != nil {
		t.Fatal(err)
	}
	target := geometry.PixelRef{X: 1, Y: 5} // due west of centre: one heading, no turns
	got := res.Cost[pm.Index(target)]
	if got > 1e-9 {
		t.Errorf("Cost to %v along a straight corridor = %v, want ~0", target, got)
	}
}

func TestAngularBucketQueue_RejectsUnfilledOrigin(t *testing.T) {
	pm, _ := buildSingleRoom(t)
	if _, err := vgatraversal.AngularBucketQueue(pm, geometry.PixelRef{X: 0, Y: 0}); err != vgatraversal.ErrOriginNotFilled {
		t.Fatalf("got %v, want ErrOriginNotFilled", err)
	}
}

func TestRunVisualAnalysis_WritesColumns(t *testing.T) {
	pm, _ := buildSingleRoom(t)
	if err := vgatraversal.RunVisualAnalysis(pm, comm.Noop{}, 0, vgatraversal.RunOptions{Workers: 2}); err != nil {
		t.Fatal(err)
	}
	centre := geometry.PixelRef{X: 5, Y: 5}
	v, err := pm.Attributes.Get(centre, "Visual Mean Depth Rn")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(v-1.0) > 1e-9 {
		t.Errorf("Visual Mean Depth Rn at centre = %v, want 1.0", v)
	}
}

package shapegraph_test

import (
	"testing"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/shapegraph"
)

// crossRegion returns a region big enough to hold a horizontal and a
// vertical axial line crossing at the origin.
func crossRegion() geometry.Region {
	return geometry.Region{BottomLeft: geometry.Point{X: -20, Y: -20}, TopRight: geometry.Point{X: 20, Y: 20}}
}

func buildCross(t *testing.T) *shapegraph.ShapeGraph {
	t.Helper()
	g, err := shapegraph.NewAxial(crossRegion(), 5)
	if err != nil {
		t.Fatalf("NewAxial: %v", err)
	}
	g.AddLine(geometry.NewLine(geometry.Point{X: -10, Y: 0}, geometry.Point{X: 10, Y: 0}), 0)
	g.AddLine(geometry.NewLine(geometry.Point{X: 0, Y: -10}, geometry.Point{X: 0, Y: 10}), 0)
	if err := g.MakeConnections(1e-6); err != nil {
		t.Fatalf("MakeConnections: %v", err)
	}
	return g
}

func TestMakeConnections_CrossingLinesConnect(t *testing.T) {
	g := buildCross(t)
	refs := g.Refs()
	if len(refs) != 2 {
		t.Fatalf("expected 2 axial lines, got %d", len(refs))
	}
	for _, r := range refs {
		if g.ConnectionCount(r) != 1 {
			t.Errorf("expected each line to connect to the other, got %d for %v", g.ConnectionCount(r), r)
		}
	}
}

func TestBuildSegments_CrossProducesFourSegments(t *testing.T) {
	axial := buildCross(t)
	seg, err := shapegraph.BuildSegments(axial, 1e-6)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	if seg.Len() != 4 {
		t.Fatalf("expected 4 segments (each axial line split in two by the crossing), got %d", seg.Len())
	}
}

func TestRunTulip_ReachesAllSegments(t *testing.T) {
	axial := buildCross(t)
	seg, err := shapegraph.BuildSegments(axial, 1e-6)
	if err != nil {
		t.Fatalf("BuildSegments: %v", err)
	}
	refs := seg.Refs()
	info, err := seg.RunTulip(refs[0], shapegraph.RadiusUnbounded, 0)
	if err != nil {
		t.Fatalf("RunTulip: %v", err)
	}
	if len(info) != len(refs) {
		t.Errorf("expected every segment reachable from a fully-connected cross, got %d/%d", len(info), len(refs))
	}
}

func TestColumnName_Format(t *testing.T) {
	got := shapegraph.ColumnName(1024, "Choice", "", shapegraph.RadiusMetric, 1000)
	want := "T1024 Choice R1000metric"
	if got != want {
		t.Errorf("ColumnName = %q, want %q", got, want)
	}
}

package pointmap_test

import (
	"testing"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
)

func buildSingleRoom(t *testing.T) *pointmap.PointMap {
	t.Helper()
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 10})
	pm, err := pointmap.New(region, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	pm.FillRegion(region)
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 10}),
		geometry.NewLine(geometry.Point{X: 10, Y: 10}, geometry.Point{X: 0, Y: 10}),
		geometry.NewLine(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 0, Y: 0}),
	}
	pm.BlockWalls(walls, 1e-6)
	if err := pm.BuildVisibilityGraph(comm.Noop{}, pointmap.DefaultVisibilityOptions()); err != nil {
		t.Fatal(err)
	}
	return pm
}

// TestVisibility_BinSymmetry: if B is in A's bin k at distance d, A is in
// B's bin (k+16)%32 at the same distance.
func TestVisibility_BinSymmetry(t *testing.T) {
	pm := buildSingleRoom(t)
	for _, a := range pm.FilledCells() {
		pa := pm.At(a)
		if pa.Blocked() || pa.Node == nil {
			continue
		}
		for bin, b := range pa.Node.Bins {
			for _, run := range b.Vectors {
				target := run.To // any endpoint of the run suffices for the check
				pb := pm.At(target)
				if pb.Node == nil {
					t.Fatalf("cell %v visible from %v has no Node", target, a)
				}
				partnerBin := (bin + pointmap.NumBins/2) % pointmap.NumBins
				found := false
				for _, prun := range pb.Node.Bins[partnerBin].Vectors {
					// a may lie anywhere along a partner run, not only at its ends
					if a.X >= min(prun.From.X, prun.To.X) && a.X <= max(prun.From.X, prun.To.X) &&
						a.Y >= min(prun.From.Y, prun.To.Y) && a.Y <= max(prun.From.Y, prun.To.Y) {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("cell %v sees %v in bin %d, but %v does not see %v back in bin %d", a, target, bin, target, a, partnerBin)
				}
			}
		}
	}
}

func TestMergeLink_RequiresFilled(t *testing.T) {
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 5, Y: 5})
	pm, _ := pointmap.New(region, 1.0)
	a := geometry.PixelRef{X: 0, Y: 0}
	b := geometry.PixelRef{X: 1, Y: 1}
	if err := pm.AddMergeLink(a, b); err != pointmap.ErrInvalidLink {
		t.Fatalf("got %v, want ErrInvalidLink for non-filled cells", err)
	}
}

func TestMergeLink_Reciprocal(t *testing.T) {
	pm := buildSingleRoom(t)
	a := geometry.PixelRef{X: 1, Y: 1}
	b := geometry.PixelRef{X: 8, Y: 8}
	if err := pm.AddMergeLink(a, b); err != nil {
		t.Fatal(err)
	}
	partner, ok := pm.MergePartnerOf(a)
	if !ok || partner != b {
		t.Errorf("MergePartnerOf(a) = %v, %v; want %v, true", partner, ok, b)
	}
	partner2, ok2 := pm.MergePartnerOf(b)
	if !ok2 || partner2 != a {
		t.Errorf("MergePartnerOf(b) = %v, %v; want %v, true", partner2, ok2, a)
	}
}

func TestEnclosedCell_GetsEmptyNode(t *testing.T) {
	// A single filled cell entirely surrounded by blocked cells still gets
	// an allocated Node with all-empty bins.
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 3, Y: 3})
	pm, _ := pointmap.New(region, 1.0)
	pm.FillRegion(region)
	ring := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 3, Y: 0}),
		geometry.NewLine(geometry.Point{X: 3, Y: 0}, geometry.Point{X: 3, Y: 3}),
		geometry.NewLine(geometry.Point{X: 3, Y: 3}, geometry.Point{X: 0, Y: 3}),
		geometry.NewLine(geometry.Point{X: 0, Y: 3}, geometry.Point{X: 0, Y: 0}),
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 2, Y: 2}),
		geometry.NewLine(geometry.Point{X: 2, Y: 0}, geometry.Point{X: 0, Y: 2}),
	}
	pm.BlockWalls(ring, 1e-6)
	_ = pm.BuildVisibilityGraph(comm.Noop{}, pointmap.DefaultVisibilityOptions())
	center := geometry.PixelRef{X: 1, Y: 1}
	p := pm.At(center)
	if p.Blocked() {
		t.Skip("centre cell got blocked by the ring geometry in this tolerance; not the case under test")
	}
	if p.Node == nil {
		t.Fatal("expected an allocated Node even for a poorly-connected cell")
	}
}

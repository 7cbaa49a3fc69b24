package bsptree_test

import (
	"testing"

	"github.com/salanous/spacesyntax/bsptree"
	"github.com/salanous/spacesyntax/geometry"
)

func square() []geometry.Line {
	return []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 10}),
		geometry.NewLine(geometry.Point{X: 10, Y: 10}, geometry.Point{X: 0, Y: 10}),
		geometry.NewLine(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 0, Y: 0}),
	}
}

// TestBuild_NonEmptyFragments: every leaf fragment produced by Build has
// positive length.
func TestBuild_NonEmptyFragments(t *testing.T) {
	t_ := bsptree.Build(square(), 1e-6)
	if t_.Len() == 0 {
		t.Fatal("expected a non-empty tree")
	}
	for i := 0; i < t_.Len(); i++ {
		n := t_.Node(bsptree.NodeIdx(i))
		if n.Line.Length() <= 0 {
			t.Errorf("node %d has non-positive length line %v", i, n.Line)
		}
	}
}

func TestBuild_Empty(t *testing.T) {
	tr := bsptree.Build(nil, 1e-6)
	if tr.Root() != -1 {
		t.Errorf("expected invalid root for empty input, got %v", tr.Root())
	}
}

func TestBuild_ManyCollinearLines_DoesNotPanic(t *testing.T) {
	// A fan of many near-collinear short segments exercises the iterative
	// work-stack path.
	var lines []geometry.Line
	for i := 0; i < 2000; i++ {
		x := float64(i) * 0.01
		lines = append(lines, geometry.NewLine(geometry.Point{X: x, Y: 0}, geometry.Point{X: x + 0.01, Y: 0.0001}))
	}
	tr := bsptree.Build(lines, 1e-9)
	if tr.Len() == 0 {
		t.Fatal("expected a non-empty tree")
	}
}

func TestComputeIsovist_InsideSquare(t *testing.T) {
	tr := bsptree.Build(square(), 1e-6)
	iso := bsptree.ComputeIsovist(tr, geometry.Point{X: 5, Y: 5}, 36, 100)
	if iso.Area <= 0 {
		t.Errorf("expected positive isovist area, got %v", iso.Area)
	}
	if iso.MaxRadial > 10 {
		t.Errorf("max radial %v exceeds the square's diagonal bound", iso.MaxRadial)
	}
}

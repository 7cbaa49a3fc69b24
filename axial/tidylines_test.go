package axial_test

import (
	"testing"

	"github.com/salanous/spacesyntax/axial"
	"github.com/salanous/spacesyntax/geometry"
)

func TestTidyLines_DropsDegenerates(t *testing.T) {
	lines := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 5, Y: 0}),
		geometry.NewLine(geometry.Point{X: 3, Y: 3}, geometry.Point{X: 3, Y: 3.0000001}),
	}
	got := axial.TidyLines(lines, 1e-3)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1 (degenerate dropped)", len(got))
	}
}

func TestTidyLines_MergesCollinearOverlap(t *testing.T) {
	lines := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 6, Y: 0}),
		geometry.NewLine(geometry.Point{X: 4, Y: 0}, geometry.Point{X: 10, Y: 0}),
	}
	got := axial.TidyLines(lines, 1e-6)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1 merged", len(got))
	}
	if got[0].Length() < 10-1e-9 || got[0].Length() > 10+1e-9 {
		t.Errorf("merged length = %v, want 10", got[0].Length())
	}
}

func TestTidyLines_MergesTouchingFragments(t *testing.T) {
	// three fragments of one wall, drawn separately
	lines := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 2}, geometry.Point{X: 3, Y: 2}),
		geometry.NewLine(geometry.Point{X: 3, Y: 2}, geometry.Point{X: 7, Y: 2}),
		geometry.NewLine(geometry.Point{X: 7, Y: 2}, geometry.Point{X: 9, Y: 2}),
	}
	got := axial.TidyLines(lines, 1e-6)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1", len(got))
	}
}

func TestTidyLines_KeepsDistinctWalls(t *testing.T) {
	lines := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 5, Y: 0}),
		geometry.NewLine(geometry.Point{X: 0, Y: 1}, geometry.Point{X: 5, Y: 1}), // parallel, offset
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 0, Y: 5}), // perpendicular
		geometry.NewLine(geometry.Point{X: 7, Y: 0}, geometry.Point{X: 9, Y: 0}), // collinear but disjoint
	}
	got := axial.TidyLines(lines, 1e-6)
	if len(got) != 4 {
		t.Fatalf("got %d lines, want 4 kept distinct", len(got))
	}
}

func TestTidyLines_RemovesDuplicates(t *testing.T) {
	a := geometry.NewLine(geometry.Point{X: 1, Y: 1}, geometry.Point{X: 4, Y: 4})
	b := geometry.NewLine(geometry.Point{X: 4, Y: 4}, geometry.Point{X: 1, Y: 1}) // reversed copy
	got := axial.TidyLines([]geometry.Line{a, b}, 1e-6)
	if len(got) != 1 {
		t.Fatalf("got %d lines, want 1", len(got))
	}
}

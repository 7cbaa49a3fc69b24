package geometry_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/salanous/spacesyntax/geometry"
)

// TestLine_IntersectsSymmetric covers property #3:
// a.Intersects(b) == b.Intersects(a).
func TestLine_IntersectsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b geometry.Line
	}{
		{"crossing", geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 10}),
			geometry.NewLine(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 10, Y: 0})},
		{"disjoint", geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 1, Y: 1}),
			geometry.NewLine(geometry.Point{X: 5, Y: 5}, geometry.Point{X: 6, Y: 6})},
		{"touching", geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 5, Y: 0}),
			geometry.NewLine(geometry.Point{X: 5, Y: 0}, geometry.Point{X: 5, Y: 5})},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ab := c.a.Intersects(c.b, 1e-6)
			ba := c.b.Intersects(c.a, 1e-6)
			if (ab == geometry.NoIntersection) != (ba == geometry.NoIntersection) {
				t.Errorf("asymmetric intersection: a.Intersects(b)=%v b.Intersects(a)=%v", ab, ba)
			}
		})
	}
}

func TestRegion_Union(t *testing.T) {
	a := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 2, Y: 2})
	b := geometry.NewRegion(geometry.Point{X: 1, Y: -1}, geometry.Point{X: 3, Y: 1})
	got := a.Union(b)
	want := geometry.NewRegion(geometry.Point{X: 0, Y: -1}, geometry.Point{X: 3, Y: 2})
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Union mismatch (-want +got):\n%s", diff)
	}
}

func TestPixelRef_PackRoundTrip(t *testing.T) {
	refs := []geometry.PixelRef{{X: 0, Y: 0}, {X: -5, Y: 12}, {X: 1000, Y: -1000}, geometry.EmptyPixelRef}
	for _, r := range refs {
		got := geometry.UnpackPixelRef(r.Pack())
		if got != r {
			t.Errorf("Pack/Unpack round trip: got %v, want %v", got, r)
		}
	}
}

func TestLine_CropToRegion(t *testing.T) {
	l := geometry.NewLine(geometry.Point{X: -5, Y: 0}, geometry.Point{X: 5, Y: 0})
	r := geometry.NewRegion(geometry.Point{X: 0, Y: -1}, geometry.Point{X: 10, Y: 1})
	cropped, ok := l.Crop(r)
	if !ok {
		t.Fatal("expected crop to succeed")
	}
	if cropped.Start().X != 0 || cropped.End().X != 5 {
		t.Errorf("crop = [%v,%v]; want [0,5] on x", cropped.Start(), cropped.End())
	}
}

package shapemap_test

import (
	"math"
	"testing"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/shapemap"
)

func squarePoints() []geometry.Point {
	return []geometry.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	}
}

func TestNewPolyShape_Polygon_AreaAndCentroid(t *testing.T) {
	s, err := shapemap.NewPolyShape(squarePoints(), true)
	if err != nil {
		t.Fatalf("NewPolyShape: %v", err)
	}
	if math.Abs(s.Area-100) > 1e-9 {
		t.Errorf("expected area 100, got %v", s.Area)
	}
	if math.Abs(s.Centroid.X-5) > 1e-9 || math.Abs(s.Centroid.Y-5) > 1e-9 {
		t.Errorf("expected centroid (5,5), got %v", s.Centroid)
	}
	if !s.CCW {
		t.Errorf("expected CCW winding")
	}
}

func TestAsLines_PolygonClosesLoop(t *testing.T) {
	s, _ := shapemap.NewPolyShape(squarePoints(), true)
	lines := s.AsLines()
	if len(lines) != 4 {
		t.Fatalf("expected 4 edges, got %d", len(lines))
	}
}

func TestShapeMap_AddGetDelete(t *testing.T) {
	m, err := shapemap.New(geometry.Region{BottomLeft: geometry.Point{X: -50, Y: -50}, TopRight: geometry.Point{X: 50, Y: 50}}, 5)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	poly, _ := shapemap.NewPolyShape(squarePoints(), true)
	ref := m.Add(poly, 0)
	got, err := m.Get(ref)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != shapemap.KindPolygon {
		t.Errorf("expected KindPolygon, got %v", got.Kind)
	}
	if err := m.Delete(ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ref); err != shapemap.ErrShapeNotFound {
		t.Errorf("expected ErrShapeNotFound after delete, got %v", err)
	}
	log := m.UndoLog()
	if len(log) != 2 || log[0].Kind != shapemap.UndoCreate || log[1].Kind != shapemap.UndoDelete {
		t.Errorf("unexpected undo log: %+v", log)
	}
}

func TestShapeMap_ShapesContaining(t *testing.T) {
	m, _ := shapemap.New(geometry.Region{BottomLeft: geometry.Point{X: -50, Y: -50}, TopRight: geometry.Point{X: 50, Y: 50}}, 5)
	poly, _ := shapemap.NewPolyShape(squarePoints(), true)
	ref := m.Add(poly, 0)
	inside := m.ShapesContaining(geometry.Point{X: 5, Y: 5})
	if len(inside) != 1 || inside[0] != ref {
		t.Errorf("expected [%v], got %v", ref, inside)
	}
	outside := m.ShapesContaining(geometry.Point{X: 500, Y: 500})
	if len(outside) != 0 {
		t.Errorf("expected no containing shape far outside, got %v", outside)
	}
}

func TestShapeMap_QueryRegion(t *testing.T) {
	m, _ := shapemap.New(geometry.Region{BottomLeft: geometry.Point{X: -50, Y: -50}, TopRight: geometry.Point{X: 50, Y: 50}}, 5)
	poly, _ := shapemap.NewPolyShape(squarePoints(), true)
	m.Add(poly, 0)
	near := m.QueryRegion(geometry.Region{BottomLeft: geometry.Point{X: 1, Y: 1}, TopRight: geometry.Point{X: 2, Y: 2}})
	if len(near) != 1 {
		t.Errorf("expected 1 overlapping shape, got %d", len(near))
	}
	far := m.QueryRegion(geometry.Region{BottomLeft: geometry.Point{X: 40, Y: 40}, TopRight: geometry.Point{X: 45, Y: 45}})
	if len(far) != 0 {
		t.Errorf("expected no overlapping shape, got %d", len(far))
	}
}

func TestShapeMap_LayerVisibility(t *testing.T) {
	m, _ := shapemap.New(geometry.Region{BottomLeft: geometry.Point{X: -50, Y: -50}, TopRight: geometry.Point{X: 50, Y: 50}}, 5)
	ref := m.Add(shapemap.NewPointShape(geometry.Point{X: 1, Y: 1}), 2)
	if !m.Visible(ref) {
		t.Errorf("expected default-visible layer")
	}
	m.SetLayerVisible(2, false)
	if m.Visible(ref) {
		t.Errorf("expected layer 2 hidden")
	}
}

// Package pixelgrid implements coordinate-to-cell rasterization: the
// PixelBase grid that every map representation in spacesyntax (PointMap,
// ShapeMap) is built on, and three line-rasterization variants (strict,
// touching, quick).
package pixelgrid

import (
	"errors"
	"math"

	"github.com/salanous/spacesyntax/geometry"
)

// ErrZeroSpacing indicates a PixelBase was constructed with spacing <= 0.
var ErrZeroSpacing = errors.New("pixelgrid: spacing must be positive")

// PixelBase maps world-space points and lines onto a dense rows x cols grid
// of square cells of side Spacing, covering Region.
type PixelBase struct {
	Region       geometry.Region
	Rows, Cols   int
	Spacing      float64
}

// New builds a PixelBase covering region at the given spacing. Rows/Cols are
// derived so that the grid just covers the region.
func New(region geometry.Region, spacing float64) (*PixelBase, error) {
	if spacing <= 0 {
		return nil, ErrZeroSpacing
	}
	cols := int(math.Ceil(region.Width()/spacing)) + 1
	rows := int(math.Ceil(region.Height()/spacing)) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &PixelBase{Region: region, Rows: rows, Cols: cols, Spacing: spacing}, nil
}

// InBounds reports whether r addresses a cell within the grid.
func (pb *PixelBase) InBounds(r geometry.PixelRef) bool {
	return r.X >= 0 && int(r.X) < pb.Cols && r.Y >= 0 && int(r.Y) < pb.Rows
}

// Pixelate maps a world point to its containing cell. If constrain is true,
// the result is clamped to grid bounds; otherwise out-of-range coordinates
// produce an out-of-range PixelRef.
func (pb *PixelBase) Pixelate(p geometry.Point, constrain bool) geometry.PixelRef {
	fx := (p.X - pb.Region.BottomLeft.X) / pb.Spacing
	fy := (p.Y - pb.Region.BottomLeft.Y) / pb.Spacing
	x := int(math.Floor(fx))
	y := int(math.Floor(fy))
	if constrain {
		if x < 0 {
			x = 0
		}
		if x >= pb.Cols {
			x = pb.Cols - 1
		}
		if y < 0 {
			y = 0
		}
		if y >= pb.Rows {
			y = pb.Rows - 1
		}
	}
	return geometry.PixelRef{X: int16(x), Y: int16(y)}
}

// CellCentre returns the world-space centre of cell r.
func (pb *PixelBase) CellCentre(r geometry.PixelRef) geometry.Point {
	return geometry.Point{
		X: pb.Region.BottomLeft.X + (float64(r.X)+0.5)*pb.Spacing,
		Y: pb.Region.BottomLeft.Y + (float64(r.Y)+0.5)*pb.Spacing,
	}
}

// CellRegion returns the world-space bounding box of cell r.
func (pb *PixelBase) CellRegion(r geometry.PixelRef) geometry.Region {
	bl := geometry.Point{X: pb.Region.BottomLeft.X + float64(r.X)*pb.Spacing, Y: pb.Region.BottomLeft.Y + float64(r.Y)*pb.Spacing}
	return geometry.Region{BottomLeft: bl, TopRight: geometry.Point{X: bl.X + pb.Spacing, Y: bl.Y + pb.Spacing}}
}

// step is an internal grid-walk cursor.
type step struct {
	x, y int
}

// PixelateLineStrict returns the minimal connected set of cells visited by
// l: consecutive cells differ by at most one step in x, y, or both.
// Horizontal/vertical lines and zero-length lines are special-cased.
func (pb *PixelBase) PixelateLineStrict(l geometry.Line) []geometry.PixelRef {
	return pb.pixelateLineStrict(l, defaultCornerTol)
}

// defaultCornerTol is the corner-tie window, as a fraction of the line's
// parametric length, used when the caller supplies no tolerance.
const defaultCornerTol = 1e-9

// pixelateLineStrict is PixelateLineStrict with an explicit corner-tie
// window: when the parametric distances to the next x and y cell
// boundaries differ by less than cornerTol the step is treated as an exact
// corner hit and advances diagonally.
func (pb *PixelBase) pixelateLineStrict(l geometry.Line, cornerTol float64) []geometry.PixelRef {
	a := pb.Pixelate(l.Start(), true)
	b := pb.Pixelate(l.End(), true)
	if a == b {
		return []geometry.PixelRef{a}
	}
	out := []geometry.PixelRef{a}
	x, y := int(a.X), int(a.Y)
	tx, ty := int(b.X), int(b.Y)

	if x == tx {
		step := signOf(ty - y)
		for y != ty {
			y += step
			out = append(out, geometry.PixelRef{X: int16(x), Y: int16(y)})
		}
		return out
	}
	if y == ty {
		step := signOf(tx - x)
		for x != tx {
			x += step
			out = append(out, geometry.PixelRef{X: int16(x), Y: int16(y)})
		}
		return out
	}

	// Parametric DDA: walk t from 0 to 1, stepping into whichever of the
	// next x or y cell boundary the line reaches first (both, on an exact
	// corner hit), which guarantees the Chebyshev-distance-1 invariant.
	start, vec := l.Start(), l.Vector()
	sx, sy := signOf(tx-x), signOf(ty-y)
	cellW := pb.Spacing

	for x != tx || y != ty {
		var tX, tY float64 = math.Inf(1), math.Inf(1)
		if x != tx && vec.X != 0 {
			var edgeX float64
			if sx > 0 {
				edgeX = pb.Region.BottomLeft.X + float64(x+1)*cellW
			} else {
				edgeX = pb.Region.BottomLeft.X + float64(x)*cellW
			}
			tX = (edgeX - start.X) / vec.X
		}
		if y != ty && vec.Y != 0 {
			var edgeY float64
			if sy > 0 {
				edgeY = pb.Region.BottomLeft.Y + float64(y+1)*cellW
			} else {
				edgeY = pb.Region.BottomLeft.Y + float64(y)*cellW
			}
			tY = (edgeY - start.Y) / vec.Y
		}
		switch {
		case math.Abs(tX-tY) < cornerTol && !math.IsInf(tX, 1):
			x += sx
			y += sy
		case tX < tY:
			x += sx
		default:
			y += sy
		}
		out = append(out, geometry.PixelRef{X: int16(x), Y: int16(y)})
	}
	return out
}

func signOf(v int) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

// PixelateLineTouching returns every cell l intersects within tol (in world
// units), a superset of PixelateLineStrict: a step within tol of a shared
// corner is treated as crossing it exactly, and both flanking cells are
// emitted, so that visibility tests built on top of it cannot leak through
// touching corners.
func (pb *PixelBase) PixelateLineTouching(l geometry.Line, tol float64) []geometry.PixelRef {
	// tol is in world units; the walker compares parametric distances
	// along the line, so scale by the line's length
	cornerTol := defaultCornerTol
	if length := l.Length(); tol > 0 && length > 0 {
		cornerTol = tol / length
	}
	strict := pb.pixelateLineStrict(l, cornerTol)
	seen := make(map[geometry.PixelRef]bool, len(strict)*2)
	out := make([]geometry.PixelRef, 0, len(strict)*2)
	add := func(r geometry.PixelRef) {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	for _, r := range strict {
		add(r)
	}
	// For every consecutive diagonal step, also emit the two "flanking"
	// cells so a diagonal move across a shared corner cannot silently skip
	// past a cell the line geometrically touches.
	for i := 0; i+1 < len(strict); i++ {
		a, b := strict[i], strict[i+1]
		if a.X != b.X && a.Y != b.Y {
			add(geometry.PixelRef{X: a.X, Y: b.Y})
			add(geometry.PixelRef{X: b.X, Y: a.Y})
		}
	}
	return out
}

// PixelateLineQuick returns a Bresenham-style path whose step count equals
// max(|dx|,|dy|); used for visual overlays where exact coverage does not
// matter but a short, direction-independent path does. For axis-polarity
// boundary steps (pure diagonal moves) both adjacent cells are emitted to
// avoid visual gaps.
func (pb *PixelBase) PixelateLineQuick(l geometry.Line) []geometry.PixelRef {
	a := pb.Pixelate(l.Start(), true)
	b := pb.Pixelate(l.End(), true)
	// walk from the lower cell and reverse afterwards, so both endpoint
	// orders of a line give the same cells
	swapped := b.X < a.X || (b.X == a.X && b.Y < a.Y)
	if swapped {
		a, b = b, a
	}
	x0, y0 := int(a.X), int(a.Y)
	x1, y1 := int(b.X), int(b.Y)
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := signOf(x1-x0), signOf(y1-y0)
	out := []geometry.PixelRef{{X: int16(x0), Y: int16(y0)}}
	err := dx - dy
	x, y := x0, y0
	for x != x1 || y != y1 {
		e2 := 2 * err
		steppedX, steppedY := false, false
		if e2 > -dy {
			err -= dy
			x += sx
			steppedX = true
		}
		if e2 < dx {
			err += dx
			y += sy
			steppedY = true
		}
		if steppedX && steppedY {
			// diagonal step across an axis-polarity boundary: emit both
			// adjacent cells so the overlay does not show a gap.
			out = append(out, geometry.PixelRef{X: int16(x - sx), Y: int16(y)})
			out = append(out, geometry.PixelRef{X: int16(x), Y: int16(y - sy)})
		}
		out = append(out, geometry.PixelRef{X: int16(x), Y: int16(y)})
	}
	if swapped {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

package pointmap

import (
	"errors"

	"github.com/salanous/spacesyntax/attrtable"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pixelgrid"
)

// Sentinel errors for PointMap operations.
var (
	// ErrZeroSpacing indicates spacing <= 0 was supplied.
	ErrZeroSpacing = errors.New("pointmap: spacing must be positive")

	// ErrOutOfRange indicates a PixelRef outside the grid was addressed.
	ErrOutOfRange = errors.New("pointmap: pixel ref out of range")

	// ErrInvalidLink indicates a merge-link endpoint is not on a filled cell,
	// or would overlap an existing link.
	ErrInvalidLink = errors.New("pointmap: invalid merge link")
)

// PointMap is a dense grid of Points covering Region at Spacing world units
// per cell, with an attribute table keyed by PixelRef.
type PointMap struct {
	Grid       *pixelgrid.PixelBase
	Region     geometry.Region
	Spacing    float64
	points     [][]Point // [row][col], row-major by Y then X
	Attributes *attrtable.Table[geometry.PixelRef]
	generation int
}

// New builds an empty PointMap (every cell Empty) covering region at the
// given spacing.
func New(region geometry.Region, spacing float64) (*PointMap, error) {
	if spacing <= 0 {
		return nil, ErrZeroSpacing
	}
	grid, err := pixelgrid.New(region, spacing)
	if err != nil {
		return nil, err
	}
	pm := &PointMap{
		Grid:       grid,
		Region:     region,
		Spacing:    spacing,
		Attributes: attrtable.New[geometry.PixelRef](),
	}
	pm.points = make([][]Point, grid.Rows)
	for y := 0; y < grid.Rows; y++ {
		pm.points[y] = make([]Point, grid.Cols)
		for x := 0; x < grid.Cols; x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			pm.points[y][x] = Point{Flags: Empty, MergePartner: geometry.EmptyPixelRef, Location: grid.CellCentre(ref)}
		}
	}
	return pm, nil
}

// Rows returns the number of grid rows.
func (pm *PointMap) Rows() int { return pm.Grid.Rows }

// Cols returns the number of grid columns.
func (pm *PointMap) Cols() int { return pm.Grid.Cols }

// InBounds reports whether ref addresses a cell within the grid.
func (pm *PointMap) InBounds(ref geometry.PixelRef) bool { return pm.Grid.InBounds(ref) }

// At returns a pointer to the Point at ref. Panics (like an out-of-range
// slice index) if ref is out of bounds; callers must check InBounds first
// when ref is not already known-good. An out-of-range ref is a programmer
// error, not a recoverable condition.
func (pm *PointMap) At(ref geometry.PixelRef) *Point {
	return &pm.points[ref.Y][ref.X]
}

// TryAt is the checked variant of At.
func (pm *PointMap) TryAt(ref geometry.PixelRef) (*Point, error) {
	if !pm.InBounds(ref) {
		return nil, ErrOutOfRange
	}
	return pm.At(ref), nil
}

// Generation returns the map's current generation counter, bumped whenever
// the fill/block state changes in a way that invalidates cached Nodes.
func (pm *PointMap) Generation() int { return pm.generation }

// bumpGeneration invalidates any previously built visibility graph.
func (pm *PointMap) bumpGeneration() {
	pm.generation++
	for y := range pm.points {
		for x := range pm.points[y] {
			pm.points[y][x].Node = nil
		}
	}
}

// FillRegion marks every cell whose centre lies within r as Filled,
// excluding cells already Blocked. Returns the number of cells filled.
func (pm *PointMap) FillRegion(r geometry.Region) int {
	n := 0
	for y := 0; y < pm.Rows(); y++ {
		for x := 0; x < pm.Cols(); x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			p := pm.At(ref)
			if p.Blocked() {
				continue
			}
			if r.Contains(p.Location) {
				p.Flags = (p.Flags &^ Empty) | Filled
				n++
			}
		}
	}
	pm.bumpGeneration()
	return n
}

// BlockWalls rasterizes each wall line with the touching variant and marks every cell it visits Blocked, recording the line
// fragment (cropped to that cell) crossing the cell. A cell that becomes
// Blocked loses Filled and its Node, per the Point invariant "BLOCKED
// implies no Node".
func (pm *PointMap) BlockWalls(walls []geometry.Line, tol float64) {
	for _, wall := range walls {
		cells := pm.Grid.PixelateLineTouching(wall, tol)
		for _, ref := range cells {
			if !pm.InBounds(ref) {
				continue
			}
			p := pm.At(ref)
			p.Flags = (p.Flags &^ (Empty | Filled)) | Blocked
			cellRegion := pm.Grid.CellRegion(ref)
			if frag, ok := wall.Crop(cellRegion); ok {
				p.WallFragments = append(p.WallFragments, frag)
			}
		}
	}
	pm.recomputeGridConnections()
	pm.bumpGeneration()
}

// recomputeGridConnections sets each Filled, non-Blocked cell's
// GridConnections byte to the set of its 8 neighbours that are themselves
// Filled and non-Blocked — the movement graph the agent engine and metric
// Dijkstra's propagation gate both consume.
func (pm *PointMap) recomputeGridConnections() {
	for y := 0; y < pm.Rows(); y++ {
		for x := 0; x < pm.Cols(); x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			p := pm.At(ref)
			p.GridConnections = geometry.DirNone
			if p.Blocked() || !p.Filled() {
				continue
			}
			for _, d := range geometry.AllDirections() {
				nref, _ := ref.Neighbour(d)
				if !pm.InBounds(nref) {
					continue
				}
				np := pm.At(nref)
				if np.Filled() && !np.Blocked() {
					p.GridConnections |= d
				}
			}
		}
	}
}

// AddMergeLink connects a and b as a zero-cost, one-hop merge pair. Both
// must be on Filled, non-Blocked cells, and neither may already carry a
// merge link.
func (pm *PointMap) AddMergeLink(a, b geometry.PixelRef) error {
	if !pm.InBounds(a) || !pm.InBounds(b) {
		return ErrOutOfRange
	}
	pa, pb := pm.At(a), pm.At(b)
	if !pa.Filled() || pa.Blocked() || !pb.Filled() || pb.Blocked() {
		return ErrInvalidLink
	}
	if pa.MergedWith() || pb.MergedWith() {
		return ErrInvalidLink
	}
	pa.Flags |= Merged
	pb.Flags |= Merged
	pa.MergePartner = b
	pb.MergePartner = a
	return nil
}

// MergePartnerOf returns the merge partner of ref and whether one exists.
func (pm *PointMap) MergePartnerOf(ref geometry.PixelRef) (geometry.PixelRef, bool) {
	p := pm.At(ref)
	if !p.MergedWith() {
		return geometry.EmptyPixelRef, false
	}
	return p.MergePartner, true
}

// FilledCells returns every cell currently Filled (regardless of Blocked —
// callers typically also check Blocked) in row-major order.
func (pm *PointMap) FilledCells() []geometry.PixelRef {
	var out []geometry.PixelRef
	for y := 0; y < pm.Rows(); y++ {
		for x := 0; x < pm.Cols(); x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			if pm.At(ref).Filled() {
				out = append(out, ref)
			}
		}
	}
	return out
}

// Index returns a row-major linear index for ref, suitable for use as the
// slot into a dense per-kernel-invocation scratch array.
func (pm *PointMap) Index(ref geometry.PixelRef) int {
	return int(ref.Y)*pm.Cols() + int(ref.X)
}

// RefAt inverts Index.
func (pm *PointMap) RefAt(idx int) geometry.PixelRef {
	return geometry.PixelRef{X: int16(idx % pm.Cols()), Y: int16(idx / pm.Cols())}
}

// CellCount returns Rows()*Cols(), the size every dense scratch array must
// be allocated to.
func (pm *PointMap) CellCount() int { return pm.Rows() * pm.Cols() }

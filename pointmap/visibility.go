package pointmap

import (
	"math"
	"sort"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
)

// VisibilityOptions configures BuildVisibilityGraph.
type VisibilityOptions struct {
	// MaxSightRadius bounds, in grid cells, how far a cell looks for
	// candidate targets. The spec's construction is conceptually unbounded
	// ("cast rays into the set of other FILLED cells") but an O(N^2) full
	// scan is impractical past a few thousand cells; real-world runs bound
	// this the same way the source's octant-scanning implementation
	// effectively does. Zero means unbounded.
	MaxSightRadius int
}

// DefaultVisibilityOptions returns sensible defaults: unbounded sight.
func DefaultVisibilityOptions() VisibilityOptions {
	return VisibilityOptions{MaxSightRadius: 0}
}

// BuildVisibilityGraph computes the Node for every Filled, non-Blocked cell
//: for each candidate pair, a ray is accepted if no Blocked
// cell lies on the quick-rasterized path between them; accepted targets are
// grouped into 32 angular bins, compressed into pixel-vector runs, and each
// bin's farthest-reach and occlusion distance are recorded.
//
// A cell with no visible neighbour still gets an allocated (all-empty)
// Node's "failure mode": analyses then treat it as a
// singleton.
func (pm *PointMap) BuildVisibilityGraph(c comm.Communicator, opts VisibilityOptions) error {
	if c == nil {
		c = comm.Noop{}
	}
	cells := pm.FilledCells()
	c.PostMessage(comm.NumSteps, int64(len(cells)))

	// bin collection buffers, reused per-cell to avoid reallocating 32
	// slices for every one of potentially thousands of cells.
	type collected struct {
		visible   []geometry.PixelRef
		occluders []geometry.PixelRef
		farDist   float64
		occDist   float64
	}

	for i, a := range cells {
		if c.IsCancelled() {
			return nil
		}
		c.PostMessage(comm.CurrentStep, int64(i))
		pa := pm.At(a)
		if pa.Blocked() {
			continue
		}
		node := &Node{}
		buf := make([]collected, NumBins)

		for _, b := range cells {
			if b == a {
				continue
			}
			pb := pm.At(b)
			if pb.Blocked() {
				continue
			}
			if tooFar(a, b, opts.MaxSightRadius) {
				continue
			}
			visible, occluder, distToOccluder := pm.lineOfSight(a, b)
			bin := binOf(a, b)
			if visible {
				d := cellDist(a, b)
				buf[bin].visible = append(buf[bin].visible, b)
				if d > buf[bin].farDist {
					buf[bin].farDist = d
				}
			} else if !occluder.Empty() {
				buf[bin].occluders = append(buf[bin].occluders, occluder)
				if distToOccluder > buf[bin].occDist {
					buf[bin].occDist = distToOccluder
				}
			}
		}

		for b := 0; b < NumBins; b++ {
			node.Bins[b].Dir = geometry.AllDirections()[b/(NumBins/8)]
			node.Bins[b].FarDist = buf[b].farDist
			node.Bins[b].OccDist = buf[b].occDist
			node.Bins[b].Vectors = compressRuns(node.Bins[b].Dir, buf[b].visible)
			node.Bins[b].Occluders = dedupRefs(buf[b].occluders)
		}
		pa.Node = node
	}
	return nil
}

func tooFar(a, b geometry.PixelRef, maxRadius int) bool {
	if maxRadius <= 0 {
		return false
	}
	dx := int(a.X) - int(b.X)
	dy := int(a.Y) - int(b.Y)
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	m := dx
	if dy > m {
		m = dy
	}
	return m > maxRadius
}

// lineOfSight reports whether b is visible from a: no Blocked cell lies on
// the quick-rasterized path strictly between them. If occluded, it also
// returns the first Blocked cell encountered (nearest a) and its distance,
// for occlusion-bin bookkeeping.
func (pm *PointMap) lineOfSight(a, b geometry.PixelRef) (visible bool, occluder geometry.PixelRef, occDist float64) {
	la := pm.Grid.CellCentre(a)
	lb := pm.Grid.CellCentre(b)
	line := geometry.NewLine(la, lb)
	path := pm.Grid.PixelateLineQuick(line)
	for _, ref := range path {
		if ref == a || ref == b {
			continue
		}
		if !pm.InBounds(ref) {
			continue
		}
		if pm.At(ref).Blocked() {
			return false, ref, cellDist(a, ref)
		}
	}
	return true, geometry.EmptyPixelRef, 0
}

// binOf maps the vector from a to b onto one of the 32 angular bins:
// bin width is pi/16 and bin k covers angles [(k-1)*pi/16, k*pi/16), so
// the +x axis opens bin 1 and bin 0 holds the sixteenth-turn just below it.
func binOf(a, b geometry.PixelRef) int {
	dx := float64(b.X) - float64(a.X)
	dy := float64(b.Y) - float64(a.Y)
	angle := math.Atan2(dy, dx)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	bin := int(math.Round(float64(NumBins)*(0.5*angle/math.Pi)+0.5)) % NumBins
	if bin < 0 {
		bin += NumBins
	}
	return bin
}

// cellDist returns the Euclidean distance between two cells, in grid units.
func cellDist(a, b geometry.PixelRef) float64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// compressRuns groups pixels sharing the cross-axis coordinate (relative
// to dir's dominant scan axis) and merges contiguous runs along the scan
// axis, producing the minimal set of pixel-vectors.
func compressRuns(dir geometry.Direction, pixels []geometry.PixelRef) []PixelRun {
	if len(pixels) == 0 {
		return nil
	}
	axisIsX := dir == geometry.DirE || dir == geometry.DirW || dir == geometry.DirNE || dir == geometry.DirSW
	groups := make(map[int16][]geometry.PixelRef)
	for _, p := range pixels {
		var key int16
		if axisIsX {
			key = p.Y
		} else {
			key = p.X
		}
		groups[key] = append(groups[key], p)
	}
	var runs []PixelRun
	for _, g := range groups {
		sort.Slice(g, func(i, j int) bool {
			if axisIsX {
				return g[i].X < g[j].X
			}
			return g[i].Y < g[j].Y
		})
		start := 0
		for i := 1; i <= len(g); i++ {
			broke := i == len(g)
			if !broke {
				var gap int16
				if axisIsX {
					gap = g[i].X - g[i-1].X
				} else {
					gap = g[i].Y - g[i-1].Y
				}
				broke = gap > 1
			}
			if broke {
				runs = append(runs, PixelRun{From: g[start], To: g[i-1]})
				start = i
			}
		}
	}
	return runs
}

func dedupRefs(refs []geometry.PixelRef) []geometry.PixelRef {
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[geometry.PixelRef]bool, len(refs))
	out := make([]geometry.PixelRef, 0, len(refs))
	for _, r := range refs {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

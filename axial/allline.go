package axial

import (
	"math"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/regiontree"
	"github.com/salanous/spacesyntax/shapegraph"
	"github.com/salanous/spacesyntax/shapemap"
)

// allLineGrow/allLineCrop are inherited, undiagnosed behaviour: rays are
// cast inside the input region grown by 1.30x about its centre, and the
// resulting axial graph is placed in the input region scaled by 0.99x.
// Each factor applies to the input region itself, not one after the
// other, so the graph's region ends 1% smaller than the input; preserved
// as-is rather than "fixed".
const (
	allLineGrow = 1.30
	allLineCrop = 0.99
)

// AllLineOptions configures BuildAllLineMap.
type AllLineOptions struct {
	Tolerance float64 // endpoint/intersection tolerance in world units
}

func (o AllLineOptions) tol() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return 1e-6
}

// BuildAllLineMap builds the all-line map: starting from the convex
// corner nearest seed, it floods axial half-lines from every newly
// revealed open vertex, extends each to where it first meets a wall on
// both ends, deduplicates coincident lines, and returns the resulting
// axial graph (intersection adjacency already computed) together with the
// RadialLine / PolyConnector / key-vertex bookkeeping the fewest-line
// minimiser needs.
func BuildAllLineMap(region geometry.Region, walls []geometry.Line, seed geometry.Point, opts AllLineOptions, c comm.Communicator) (*AllLineMap, error) {
	if c == nil {
		c = comm.Noop{}
	}
	tol := opts.tol()
	grown := region.ScaleAbout(allLineGrow)

	tree := regiontree.New()
	for _, w := range walls {
		tree.Insert(w)
	}

	corners := ConvexCorners(walls, tol)
	if len(corners) == 0 {
		return nil, ErrNoSeedVertex
	}

	rootIdx := -1
	rootDist := math.Inf(1)
	for i, v := range corners {
		if !VisibleBetween(tree, seed, v.Corner, tol) {
			continue
		}
		d := seed.Dist(v.Corner)
		if d < rootDist {
			rootDist, rootIdx = d, i
		}
	}
	if rootIdx == -1 {
		return nil, ErrNoSeedVertex
	}

	open := []int{rootIdx}
	visited := make([]bool, len(corners))
	visited[rootIdx] = true

	type dedupKey struct{ ax, ay, bx, by float64 }
	scale := math.Max(grown.Width(), grown.Height())
	if scale == 0 {
		scale = 1
	}
	dedupTol := tol * scale
	round := func(v float64) float64 { return math.Round(v/dedupTol) * dedupTol }
	keyOf := func(l geometry.Line) dedupKey {
		a, b := l.Start(), l.End()
		k1 := dedupKey{round(a.X), round(a.Y), round(b.X), round(b.Y)}
		k2 := dedupKey{round(b.X), round(b.Y), round(a.X), round(a.Y)}
		if k1.ax < k2.ax || (k1.ax == k2.ax && k1.ay < k2.ay) {
			return k1
		}
		return k2
	}

	seen := make(map[dedupKey]int) // dedup key -> index into lines
	var lines []geometry.Line
	radials := make(map[RadialKey]RadialLine)
	type rawConnector struct {
		lineIdx int
		key     RadialKey
	}
	var rawConnectors []rawConnector
	keyVerts := make(map[int]map[geometry.Point]int) // line index -> corner counts

	c.PostMessage(comm.NumSteps, int64(len(corners)))
	processed := 0
	for len(open) > 0 {
		if c.IsCancelled() {
			return nil, nil
		}
		vi := open[0]
		open = open[1:]
		v := corners[vi]
		processed++
		c.PostMessage(comm.CurrentStep, int64(processed))

		for wi := range corners {
			if wi == vi {
				continue
			}
			w := corners[wi]
			if !VisibleBetween(tree, v.OpenPoint, w.OpenPoint, tol) {
				continue
			}
			dir := w.Corner.Sub(v.Corner)
			if dir.X == 0 && dir.Y == 0 {
				continue
			}
			dir = normalize(dir)
			p1 := castRay(tree, grown, v.Corner, dir, tol)
			p2 := castRay(tree, grown, v.Corner, dir.Scale(-1), tol)
			line := geometry.NewLine(p1, p2)
			if line.Length() <= tol {
				continue
			}
			k := keyOf(line)
			idx, ok := seen[k]
			if !ok {
				idx = len(lines)
				seen[k] = idx
				lines = append(lines, line)
			}

			// the radial at the originating vertex, cropped to its first
			// wall hit, keyed by quantized angle
			rkey := RadialKey{Vertex: v.Key, Angle: quantAngle(dir.Angle())}
			if _, have := radials[rkey]; !have {
				radials[rkey] = RadialLine{
					Key:    rkey,
					Corner: v.Corner,
					Line:   geometry.NewLine(v.Corner, p1),
					Angle:  rkey.Angle,
				}
			}
			rawConnectors = append(rawConnectors, rawConnector{lineIdx: idx, key: rkey})

			// both convex corners the cast passed through are key vertices
			// of the axial line
			if keyVerts[idx] == nil {
				keyVerts[idx] = make(map[geometry.Point]int)
			}
			keyVerts[idx][endpointTag(v.Corner, tol)]++
			keyVerts[idx][endpointTag(w.Corner, tol)]++

			if !visited[wi] {
				visited[wi] = true
				open = append(open, wi)
			}
		}
	}

	cropped := region.ScaleAbout(allLineCrop)
	bucketSpacing := math.Max(cropped.Width(), cropped.Height()) / 50
	if bucketSpacing <= 0 {
		bucketSpacing = 1
	}
	sg, err := shapegraph.NewAxial(cropped, bucketSpacing)
	if err != nil {
		return nil, err
	}
	lineRefs := make([]shapemap.Ref, len(lines))
	for i, l := range lines {
		lineRefs[i] = sg.AddLine(l, 0)
	}
	if err := sg.MakeConnections(tol); err != nil {
		return nil, err
	}
	for idx, verts := range keyVerts {
		sg.KeyVertices[lineRefs[idx]] = verts
	}

	m := &AllLineMap{ShapeGraph: sg, Radials: radials, Tolerance: tol}
	for _, rc := range rawConnectors {
		m.PolyConnectors = append(m.PolyConnectors, PolyConnector{
			Ref:  lineRefs[rc.lineIdx],
			Line: lines[rc.lineIdx],
			Key:  rc.key,
		})
	}
	return m, nil
}

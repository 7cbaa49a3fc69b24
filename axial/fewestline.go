package axial

import (
	"sort"

	"github.com/salanous/spacesyntax/shapegraph"
	"github.com/salanous/spacesyntax/shapemap"
)

// ReductionResult holds the two independent fewest-line reductions
// produced from the same all-line map.
type ReductionResult struct {
	// Subsets is the "fewest-line (subsets)" output: survivors of the
	// subset-removal pass.
	Subsets []shapemap.Ref
	// Minimal is the "fewest-line (minimal)" output: survivors of the
	// subsequent fewest-longest pass over Subsets.
	Minimal []shapemap.Ref
	// Removed records, in removal order, which line each pass dropped and
	// why, for diagnostics.
	Removed []RemovalEvent
	// Vital maps each Minimal survivor that cannot be removed to the
	// reason: removing it would disconnect the graph, uncover a radial
	// segment, or orphan a key vertex.
	Vital map[shapemap.Ref]string
}

// RemovalEvent logs one line's removal during reduction.
type RemovalEvent struct {
	Ref   shapemap.Ref
	Pass  string // "subsets" or "fewest-longest"
	Cause string
}

// Reduce reduces an all-line map (with MakeConnections already computed):
// a subset-removal pass followed by a fewest-longest pass.
//
// A line whose connection set is a subset of a connected neighbour's
// (ignoring their shared edge) is removable only if removal leaves every
// radial segment it covers with non-zero coverage — when coverage would
// drop to zero, the stricter checkVital test asks whether a pair of
// surviving lines jointly covers the wedge via an intersection inside it —
// and leaves no key vertex without a surviving line through it. The
// fewest-longest pass additionally refuses removals that would leave a
// neighbour with two or fewer connections.
func Reduce(m *AllLineMap) ReductionResult {
	g := m.ShapeGraph
	refs := g.Refs()
	alive := make(map[shapemap.Ref]bool, len(refs))
	for _, r := range refs {
		alive[r] = true
	}
	rs := m.computeRadialState()

	var removed []RemovalEvent

	// guardCause names the guard that blocks removing a, or "" if none.
	guardCause := func(a shapemap.Ref) string {
		if wedgeBlocked(m, rs, alive, a) {
			return "removal would uncover a radial segment"
		}
		if keyVertexBlocked(g, alive, a) {
			return "removal would orphan a key vertex"
		}
		return ""
	}

	subsetPass := func() bool {
		order := filterAlive(append([]shapemap.Ref(nil), refs...), alive)
		sort.Slice(order, func(i, j int) bool {
			ci, cj := g.ConnectionCount(order[i]), g.ConnectionCount(order[j])
			if ci != cj {
				return ci < cj
			}
			return lineLength(g, order[i]) > lineLength(g, order[j])
		})
		changed := false
		for _, a := range order {
			if !alive[a] {
				continue
			}
			if !isSubsetOfNeighbour(g, alive, a) {
				continue
			}
			if guardCause(a) != "" {
				continue
			}
			alive[a] = false
			removed = append(removed, RemovalEvent{Ref: a, Pass: "subsets", Cause: "connections subset of a connected neighbour"})
			changed = true
		}
		return changed
	}
	for subsetPass() {
	}
	subsets := aliveRefs(refs, alive)

	fewestLongestPass := func() bool {
		order := filterAlive(append([]shapemap.Ref(nil), refs...), alive)
		sort.Slice(order, func(i, j int) bool {
			ci, cj := g.ConnectionCount(order[i]), g.ConnectionCount(order[j])
			if ci != cj {
				return ci < cj
			}
			return lineLength(g, order[i]) < lineLength(g, order[j])
		})
		changed := false
		for _, a := range order {
			if !alive[a] {
				continue
			}
			if !isSubsetOfNeighbour(g, alive, a) {
				continue
			}
			if leavesNeighbourTooSparse(g, alive, a) {
				continue
			}
			if guardCause(a) != "" {
				continue
			}
			alive[a] = false
			removed = append(removed, RemovalEvent{Ref: a, Pass: "fewest-longest", Cause: "connections subset of a connected neighbour"})
			changed = true
		}
		return changed
	}
	for fewestLongestPass() {
	}
	minimal := aliveRefs(refs, alive)

	// classify each survivor: what would break if it were also removed
	vital := make(map[shapemap.Ref]string, len(minimal))
	for _, a := range minimal {
		if cause := guardCause(a); cause != "" {
			vital[a] = cause
			continue
		}
		if !preservesConnectivity(g, alive, a) {
			vital[a] = "removal would disconnect the axial graph"
		}
	}

	return ReductionResult{Subsets: subsets, Minimal: minimal, Removed: removed, Vital: vital}
}

func filterAlive(refs []shapemap.Ref, alive map[shapemap.Ref]bool) []shapemap.Ref {
	out := refs[:0:0]
	for _, r := range refs {
		if alive[r] {
			out = append(out, r)
		}
	}
	return out
}

func aliveRefs(all []shapemap.Ref, alive map[shapemap.Ref]bool) []shapemap.Ref {
	var out []shapemap.Ref
	for _, r := range all {
		if alive[r] {
			out = append(out, r)
		}
	}
	return out
}

func lineLength(g *shapegraph.ShapeGraph, ref shapemap.Ref) float64 {
	s, err := g.Get(ref)
	if err != nil {
		return 0
	}
	return s.Perimeter
}

// isSubsetOfNeighbour reports whether a's surviving connection set is a
// subset of some connected, surviving neighbour b's connection set, with
// the a<->b edge ignored on both sides.
func isSubsetOfNeighbour(g *shapegraph.ShapeGraph, alive map[shapemap.Ref]bool, a shapemap.Ref) bool {
	aConns := aliveConnSet(g, alive, a)
	for _, b := range g.Connectors[a].Connections {
		if !alive[b] {
			continue
		}
		bConns := aliveConnSet(g, alive, b)
		delete(bConns, a)
		aMinus := make(map[shapemap.Ref]bool, len(aConns))
		for r := range aConns {
			if r != b {
				aMinus[r] = true
			}
		}
		if isSubset(aMinus, bConns) {
			return true
		}
	}
	return false
}

func aliveConnSet(g *shapegraph.ShapeGraph, alive map[shapemap.Ref]bool, ref shapemap.Ref) map[shapemap.Ref]bool {
	set := make(map[shapemap.Ref]bool)
	for _, c := range g.Connectors[ref].Connections {
		if alive[c] && c != ref {
			set[c] = true
		}
	}
	return set
}

func isSubset(a, b map[shapemap.Ref]bool) bool {
	for r := range a {
		if !b[r] {
			return false
		}
	}
	return true
}

// leavesNeighbourTooSparse reports whether removing a would leave any
// surviving neighbour with <= 2 connections, the fewest-longest pass's
// additional guard.
func leavesNeighbourTooSparse(g *shapegraph.ShapeGraph, alive map[shapemap.Ref]bool, a shapemap.Ref) bool {
	for _, b := range g.Connectors[a].Connections {
		if !alive[b] {
			continue
		}
		count := 0
		for _, c := range g.Connectors[b].Connections {
			if alive[c] && c != a {
				count++
			}
		}
		if count <= 2 {
			return true
		}
	}
	return false
}

// preservesConnectivity reports whether the surviving-lines graph remains
// as connected without a as it was with a present; used when classifying
// survivors as vital.
func preservesConnectivity(g *shapegraph.ShapeGraph, alive map[shapemap.Ref]bool, a shapemap.Ref) bool {
	before := componentSizes(g, alive)
	alive[a] = false
	after := componentSizes(g, alive)
	alive[a] = true
	return len(before) == len(after)
}

func componentSizes(g *shapegraph.ShapeGraph, alive map[shapemap.Ref]bool) [][]shapemap.Ref {
	visited := make(map[shapemap.Ref]bool)
	var comps [][]shapemap.Ref
	for ref, ok := range alive {
		if !ok || visited[ref] {
			continue
		}
		var comp []shapemap.Ref
		stack := []shapemap.Ref{ref}
		visited[ref] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, n := range g.Connectors[cur].Connections {
				if alive[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

// Package bsptree implements the binary space partition used for isovist
// point-location over a set of boundary lines.
//
// Nodes are arena-allocated and addressed by integer NodeIdx rather than
// owning pointers, which also makes the iterative, explicit-work-stack
// build straightforward: pushing a NodeIdx onto a stack has no lifetime
// concerns.
package bsptree

import (
	"math"

	"github.com/salanous/spacesyntax/geometry"
)

// NodeIdx addresses a Node within a Tree's arena. Valid indices start at 0
// once a Tree has at least one node; invalidNode (-1) marks no node.
type NodeIdx int

// invalidNode marks an absent child.
const invalidNode NodeIdx = -1

// Node is one partition of the BSP tree: the splitter line for this
// partition, plus its left/right children (by cross-product sign relative
// to the splitter).
type Node struct {
	Line  geometry.Line
	Left  NodeIdx
	Right NodeIdx
}

// Tree is an arena of Nodes forming a binary space partition.
type Tree struct {
	nodes []Node
	root  NodeIdx
}

// Root returns the index of the tree's root node, or invalidNode if Build
// was given no lines.
func (t *Tree) Root() NodeIdx { return t.root }

// Node returns the node at idx.
func (t *Tree) Node(idx NodeIdx) Node { return t.nodes[idx] }

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

type pendingWork struct {
	verPref bool // preferred splitter orientation (vertical if true)
	lines   []geometry.Line
	// where to record the new node's index once created; the arena slice
	// reallocates as it grows, so children are addressed by parent index
	// and side rather than by pointer into the arena.
	parent NodeIdx // invalidNode for the root
	isLeft bool
}

// Build constructs a BSP tree over lines using an explicit work-stack:
// recursion depth is otherwise unbounded for near-collinear line fans.
// tol is the absolute length a fragment produced by splitting must exceed
// to be kept; shorter slivers are discarded.
func Build(lines []geometry.Line, tol float64) *Tree {
	t := &Tree{root: invalidNode}
	if len(lines) == 0 {
		return t
	}

	stack := []pendingWork{{lines: lines, verPref: true, parent: invalidNode}}
	for len(stack) > 0 {
		w := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(w.lines) == 0 {
			continue
		}

		splitterIdx := pickSplitter(w.lines, w.verPref)
		splitter := w.lines[splitterIdx]
		left, right := classify(w.lines, splitterIdx, splitter, tol)

		idx := NodeIdx(len(t.nodes))
		t.nodes = append(t.nodes, Node{Line: splitter, Left: invalidNode, Right: invalidNode})
		if w.parent == invalidNode {
			t.root = idx
		} else if w.isLeft {
			t.nodes[w.parent].Left = idx
		} else {
			t.nodes[w.parent].Right = idx
		}

		// Child splitter preference alternates x/y from the parent's own
		// orientation.
		childVerPref := splitter.Region.Width() > splitter.Region.Height()

		if len(left) > 0 {
			stack = append(stack, pendingWork{lines: left, verPref: childVerPref, parent: idx, isLeft: true})
		}
		if len(right) > 0 {
			stack = append(stack, pendingWork{lines: right, verPref: childVerPref, parent: idx, isLeft: false})
		}
	}
	return t
}

// pickSplitter chooses the splitter line for a partition step. For more
// than 3 lines, it picks the line whose midpoint is closest to the set's
// centroid among lines whose orientation matches verPref (falling back to
// any line if none match); for <= 3 lines it deterministically picks the
// first.
func pickSplitter(lines []geometry.Line, verPref bool) int {
	if len(lines) <= 3 {
		return 0
	}
	var mid geometry.Point
	for _, l := range lines {
		mid = mid.Add(l.Start()).Add(l.End())
	}
	mid = mid.Scale(1.0 / (2.0 * float64(len(lines))))

	chosen := -1
	chosenDist := math.Inf(1)
	matches := func(l geometry.Line) bool {
		if verPref {
			return l.Region.Height() > l.Region.Width()
		}
		return l.Region.Width() > l.Region.Height()
	}
	for i, l := range lines {
		if !matches(l) {
			continue
		}
		mp := l.Start().Add(l.End()).Scale(0.5)
		d := mp.Dist(mid)
		if chosen == -1 || d < chosenDist {
			chosen, chosenDist = i, d
		}
	}
	if chosen != -1 {
		return chosen
	}
	for i, l := range lines {
		mp := l.Start().Add(l.End()).Scale(0.5)
		d := mp.Dist(mid)
		if chosen == -1 || d < chosenDist {
			chosen, chosenDist = i, d
		}
	}
	return chosen
}

// classify splits every line other than lines[splitterIdx] into left/right
// by the sign of the cross product of its endpoints relative to the
// splitter's direction, cropping straddling lines at the intersection and
// discarding fragments shorter than tol.
func classify(lines []geometry.Line, splitterIdx int, splitter geometry.Line, tol float64) (left, right []geometry.Line) {
	a, b := splitter.Start(), splitter.End()
	sideOf := func(p geometry.Point) float64 {
		return b.Sub(a).Cross(p.Sub(a))
	}
	for i, l := range lines {
		if i == splitterIdx {
			continue
		}
		ds, de := sideOf(l.Start()), sideOf(l.End())
		switch {
		case ds >= 0 && de >= 0:
			left = append(left, l)
		case ds <= 0 && de <= 0:
			right = append(right, l)
		default:
			// straddles: split at the intersection point.
			ip, ok := splitter.IntersectionPoint(l)
			if !ok {
				left = append(left, l)
				continue
			}
			frag1 := geometry.NewLine(l.Start(), ip)
			frag2 := geometry.NewLine(ip, l.End())
			if frag1.Length() > tol {
				if sideOf(l.Start()) >= 0 {
					left = append(left, frag1)
				} else {
					right = append(right, frag1)
				}
			}
			if frag2.Length() > tol {
				if sideOf(l.End()) >= 0 {
					left = append(left, frag2)
				} else {
					right = append(right, frag2)
				}
			}
		}
	}
	return left, right
}

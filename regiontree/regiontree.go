// Package regiontree implements a balanced-insertion binary tree of
// line-carrying leaves used for fast line-intersection and
// polygon-containment queries: every internal node stores the union region
// of its subtree, and insertion position is derived from the bit pattern
// of the running insertion count rather than by explicit rebalancing.
package regiontree

import (
	"math/bits"

	"github.com/salanous/spacesyntax/geometry"
)

// NodeIdx addresses a Node within a Tree's arena.
type NodeIdx int

const invalidNode NodeIdx = -1

// Node is one slot of the tree: its subtree's union region, an optional
// carried line, and its two children.
type Node struct {
	Region    geometry.Region
	hasRegion bool
	Line      geometry.Line
	HasLine   bool
	Left      NodeIdx
	Right     NodeIdx
}

// Tree is an arena-addressed region tree.
type Tree struct {
	nodes []Node
	root  NodeIdx
	count int
}

// New returns an empty Tree.
func New() *Tree {
	return &Tree{root: invalidNode}
}

// Len returns the number of lines inserted.
func (t *Tree) Len() int { return t.count }

// Root returns the index of the tree's root, or invalidNode if empty.
func (t *Tree) Root() NodeIdx { return t.root }

// Node returns the node at idx.
func (t *Tree) Node(idx NodeIdx) Node { return t.nodes[idx] }

func (t *Tree) newNode() NodeIdx {
	idx := NodeIdx(len(t.nodes))
	t.nodes = append(t.nodes, Node{Left: invalidNode, Right: invalidNode})
	return idx
}

// Insert adds line to the tree. The (1-based) position of the n-th
// insertion is read as a binary path from the root — bit i (below the
// leading bit) selects left (0) or right (1) at depth i — so successive
// insertions land at the positions of a complete binary tree without any
// rebalancing pass.
func (t *Tree) Insert(line geometry.Line) NodeIdx {
	t.count++
	idx := t.count
	depth := bits.Len(uint(idx)) - 1

	if t.root == invalidNode {
		t.root = t.newNode()
	}
	path := make([]NodeIdx, 0, depth+1)
	cur := t.root
	path = append(path, cur)
	for level := depth - 1; level >= 0; level-- {
		bit := (idx >> uint(level)) & 1
		child := t.nodes[cur].Left
		if bit == 1 {
			child = t.nodes[cur].Right
		}
		if child == invalidNode {
			// newNode may reallocate the arena, so the child link is
			// written through a fresh index, never a held pointer.
			child = t.newNode()
			if bit == 1 {
				t.nodes[cur].Right = child
			} else {
				t.nodes[cur].Left = child
			}
		}
		cur = child
		path = append(path, cur)
	}
	t.nodes[cur].Line = line
	t.nodes[cur].HasLine = true

	for _, p := range path {
		n := &t.nodes[p]
		if n.hasRegion {
			n.Region = n.Region.Union(line.Region)
		} else {
			n.Region = line.Region
			n.hasRegion = true
		}
	}
	return cur
}

// Query returns every carried line whose region intersects r within tol,
// pruning subtrees whose union region does not intersect r at all.
func (t *Tree) Query(r geometry.Region, tol float64) []geometry.Line {
	var out []geometry.Line
	var walk func(idx NodeIdx)
	walk = func(idx NodeIdx) {
		if idx == invalidNode {
			return
		}
		n := t.nodes[idx]
		if n.hasRegion && !n.Region.Intersects(r, tol) {
			return
		}
		if n.HasLine && n.Line.Region.Intersects(r, tol) {
			out = append(out, n.Line)
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(t.root)
	return out
}

// Intersecting returns every carried line that intersects probe within tol,
// using Query against probe's own region as a cheap pre-filter before the
// exact Line.Intersects test.
func (t *Tree) Intersecting(probe geometry.Line, tol float64) []geometry.Line {
	var out []geometry.Line
	for _, l := range t.Query(probe.Region, tol) {
		if probe.Intersects(l, tol) != geometry.NoIntersection {
			out = append(out, l)
		}
	}
	return out
}

// Containment is the three-valued result of a point-in-polygon test.
type Containment int

const (
	Outside Containment = iota
	OnEdge
	Inside
)

// ContainsPoint tests whether p lies inside the polygon implied by the
// lines stored in t, by counting crossings of a rightward ray from p
// against every stored line (even-odd rule). A line lying within tol of p
// reports OnEdge rather than contributing to the crossing count.
func (t *Tree) ContainsPoint(p geometry.Point, tol float64) Containment {
	probeRegion := geometry.Region{
		BottomLeft: p,
		TopRight:   geometry.Point{X: maxX(t), Y: p.Y},
	}
	crossings := 0
	for _, l := range t.Query(probeRegion.Grow(tol), tol) {
		if pointNearLine(p, l, tol) {
			return OnEdge
		}
		a, b := l.Start(), l.End()
		if (a.Y > p.Y) == (b.Y > p.Y) {
			continue // line does not straddle p's horizontal ray
		}
		xCross := a.X + (p.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
		if xCross > p.X {
			crossings++
		}
	}
	if crossings%2 == 1 {
		return Inside
	}
	return Outside
}

func maxX(t *Tree) float64 {
	if t.root == invalidNode || !t.nodes[t.root].hasRegion {
		return 0
	}
	return t.nodes[t.root].Region.TopRight.X + 1
}

func pointNearLine(p geometry.Point, l geometry.Line, tol float64) bool {
	a, b := l.Start(), l.End()
	ab := b.Sub(a)
	len2 := ab.Dot(ab)
	if len2 == 0 {
		return p.Dist(a) <= tol
	}
	tt := p.Sub(a).Dot(ab) / len2
	if tt < 0 {
		tt = 0
	}
	if tt > 1 {
		tt = 1
	}
	proj := a.Add(ab.Scale(tt))
	return p.Dist(proj) <= tol
}

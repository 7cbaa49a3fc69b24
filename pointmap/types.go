// Package pointmap implements the raster visibility graph: a dense grid of
// Points, each owning at most one Node of 32 directional visibility bins,
// plus merge-link semantics for non-planar adjacency. Per-cell traversal
// scratch lives in dense arrays owned by each kernel invocation (package
// vgatraversal), never on the cells themselves.
package pointmap

import (
	"github.com/salanous/spacesyntax/geometry"
)

// Flags is a bitmask of a Point's state.
type Flags uint16

const (
	Empty         Flags = 1 << iota // no analysis data; outside the domain
	Filled                          // part of the open-space analysis domain
	Blocked                         // a wall cell; never carries a Node
	ContextFilled                   // filled for display/context but excluded from some traversals
	Edge                           // a boundary cell of the filled region
	Merged                          // has a merge-link partner
	Agent                           // currently occupied by a live agent
)

// Bin is one of a Node's 32 angular sectors.
type Bin struct {
	Dir       geometry.Direction // dominant move direction for this sector
	FarDist   float64            // farthest visible distance, in grid units
	OccDist   float64            // occlusion distance, in grid units
	Vectors   []PixelRun         // compressed visible-pixel runs
	Occluders []geometry.PixelRef
}

// PixelRun is a contiguous range of visible pixels along a bin's scan axis.
type PixelRun struct {
	From, To geometry.PixelRef
}

// NumBins is the number of angular sectors per Node.
const NumBins = 32

// Node is the per-cell visibility record: 32 bins of visible-pixel runs,
// each with a farthest-reach distance and an occlusion record.
type Node struct {
	Bins [NumBins]Bin
}

// Visible reports whether any bin of n has recorded a visible pixel.
func (n *Node) Visible() bool {
	if n == nil {
		return false
	}
	for i := range n.Bins {
		if len(n.Bins[i].Vectors) > 0 {
			return true
		}
	}
	return false
}

// Point is one grid cell: state flags, grid-connection byte, optional
// merge partner, cached world location, wall-line fragments crossing the
// cell, and the owned Node (nil unless Filled && !Blocked).
type Point struct {
	Flags           Flags
	GridConnections geometry.Direction
	MergePartner    geometry.PixelRef // EmptyPixelRef if unmerged
	Location        geometry.Point
	WallFragments   []geometry.Line
	Node            *Node
}

// HasFlag reports whether f is set.
func (p *Point) HasFlag(f Flags) bool { return p.Flags&f != 0 }

// Blocked reports whether p is a wall cell.
func (p *Point) Blocked() bool { return p.HasFlag(Blocked) }

// Filled reports whether p is part of the analysis domain.
func (p *Point) Filled() bool { return p.HasFlag(Filled) }

// MergedWith reports whether p has a merge partner.
func (p *Point) MergedWith() bool { return p.HasFlag(Merged) }

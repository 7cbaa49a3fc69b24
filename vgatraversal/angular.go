package vgatraversal

import (
	"context"
	"math"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
)

// TulipBins is the number of angular-cost buckets the bucket-queue kernel
// quantizes turn penalties into.
const TulipBins = 1024

// AngularOptions configures AngularBucketQueue.
type AngularOptions struct {
	Ctx       context.Context
	MaxAngle  float64 // cumulative-turn cutoff in half-turns (0..1 per full reversal); 0 = unbounded
	Bins      int     // bucket count; 0 defaults to TulipBins
}

// AngularOption is a functional option over AngularOptions.
type AngularOption func(*AngularOptions)

// WithAngularCutoff bounds the search to cumulative angular cost <= a.
func WithAngularCutoff(a float64) AngularOption { return func(o *AngularOptions) { o.MaxAngle = a } }

// WithTulipBins overrides the bucket count.
func WithTulipBins(n int) AngularOption { return func(o *AngularOptions) { o.Bins = n } }

func defaultAngularOptions() AngularOptions {
	return AngularOptions{Ctx: context.Background(), Bins: TulipBins}
}

// AngularResult holds one origin's angular bucket-queue outcome: for each
// reached cell, the cumulative turn cost (in half-turns, where a full
// reversal costs 1.0) and the number of segment/cell hops taken.
type AngularResult struct {
	Origin geometry.PixelRef
	Cost   []float64 // CellCount()-sized, math.Inf(1) = unreached
	Hops   []int32
	Count  int
}

// tulipQueue is a bucket priority queue over [0, maxCost] split into Bins
// buckets, each a FIFO ring of pending indices; entries that would fall
// beyond the current bucket's span wrap into bucket 0 of the next full
// pass, per the original's tulip design that trades exactness for O(1)
// amortized pop at the cost of bin-granularity weight duplication.
type tulipQueue struct {
	bins     [][]int
	bins2    [][]float64 // parallel cost-at-enqueue-time, since a bucket can hold several distinct costs
	n        int
	spanSize float64
	cur      int
	remaining int
}

func newTulipQueue(bins int, span float64) *tulipQueue {
	return &tulipQueue{
		bins:     make([][]int, bins),
		bins2:    make([][]float64, bins),
		n:        bins,
		spanSize: span,
	}
}

func (q *tulipQueue) bucketOf(cost float64) int {
	if q.spanSize <= 0 {
		return 0
	}
	b := int(cost / q.spanSize * float64(q.n))
	b %= q.n
	if b < 0 {
		b += q.n
	}
	return b
}

func (q *tulipQueue) push(idx int, cost float64) {
	b := q.bucketOf(cost)
	q.bins[b] = append(q.bins[b], idx)
	q.bins2[b] = append(q.bins2[b], cost)
	q.remaining++
}

func (q *tulipQueue) empty() bool { return q.remaining == 0 }

// pop scans forward from the current bucket (wrapping) for the next
// non-empty bucket and returns its oldest entry. Because several
// distinct costs can land in one bucket, entries within a bucket are
// popped in insertion order — a documented approximation, not a strict
// global minimum, matching the original tulip's bucket granularity.
func (q *tulipQueue) pop() (idx int, cost float64) {
	for i := 0; i < q.n; i++ {
		b := (q.cur + i) % q.n
		if len(q.bins[b]) > 0 {
			q.cur = b
			idx = q.bins[b][0]
			cost = q.bins2[b][0]
			q.bins[b] = q.bins[b][1:]
			q.bins2[b] = q.bins2[b][1:]
			q.remaining--
			return idx, cost
		}
	}
	return -1, 0
}

// AngularBucketQueue runs the angular-cost traversal from origin over the
// grid-connection graph, weighting each hop by the turn it takes relative
// to the incoming direction: 0 for continuing straight, up to 1.0 (a full
// reversal) for doubling back, linearly interpolated in between. Diagonal steps are treated as 45-degree turns from straight.
func AngularBucketQueue(pm *pointmap.PointMap, origin geometry.PixelRef, opts ...AngularOption) (*AngularResult, error) {
	if pm == nil {
		return nil, ErrNilMap
	}
	o := defaultAngularOptions()
	for _, f := range opts {
		f(&o)
	}
	if o.Bins <= 0 {
		o.Bins = TulipBins
	}
	if !pm.InBounds(origin) || !pm.At(origin).Filled() || pm.At(origin).Blocked() {
		return nil, ErrOriginNotFilled
	}

	n := pm.CellCount()
	cost := make([]float64, n)
	hops := make([]int32, n)
	lastDir := make([]geometry.Direction, n)
	for i := range cost {
		cost[i] = posInf
	}
	oi := pm.Index(origin)
	cost[oi] = 0

	span := o.MaxAngle
	if span <= 0 {
		span = 8 // enough half-turn units to span any realistic path without excess wraparound
	}
	q := newTulipQueue(o.Bins, span)
	q.push(oi, 0)
	res := &AngularResult{Origin: origin, Cost: cost, Hops: hops, Count: 1}

	for !q.empty() {
		select {
		case <-o.Ctx.Done():
			return res, o.Ctx.Err()
		default:
		}
		idx, c := q.pop()
		if c > cost[idx] {
			continue
		}
		ref := pm.RefAt(idx)
		if o.MaxAngle > 0 && c > o.MaxAngle {
			continue
		}
		p := pm.At(ref)
		for _, d := range geometry.AllDirections() {
			if p.GridConnections&d == 0 {
				continue
			}
			nref, _ := ref.Neighbour(d)
			if !pm.InBounds(nref) {
				continue
			}
			np := pm.At(nref)
			if !np.Filled() || np.Blocked() {
				continue
			}
			turn := turnCost(lastDir[idx], d, idx == oi)
			ni := pm.Index(nref)
			nc := c + turn
			if o.MaxAngle > 0 && nc > o.MaxAngle {
				continue
			}
			if nc < cost[ni] {
				if cost[ni] == posInf {
					res.Count++
				}
				cost[ni] = nc
				hops[ni] = hops[idx] + 1
				lastDir[ni] = d
				q.push(ni, nc)
			}
		}
	}
	return res, nil
}

// turnCost returns the angular penalty, in half-turns, of moving in
// direction to immediately after direction from (or 0 if this is the
// origin's first step, which has no incoming direction to turn from).
func turnCost(from, to geometry.Direction, isOrigin bool) float64 {
	if isOrigin {
		return 0
	}
	fa := dirAngle(from)
	ta := dirAngle(to)
	diff := math.Abs(ta - fa)
	if diff > math.Pi {
		diff = 2*math.Pi - diff
	}
	return diff / math.Pi
}

func dirAngle(d geometry.Direction) float64 {
	switch d {
	case geometry.DirE:
		return 0
	case geometry.DirNE:
		return math.Pi / 4
	case geometry.DirN:
		return math.Pi / 2
	case geometry.DirNW:
		return 3 * math.Pi / 4
	case geometry.DirW:
		return math.Pi
	case geometry.DirSW:
		return 5 * math.Pi / 4
	case geometry.DirS:
		return 3 * math.Pi / 2
	case geometry.DirSE:
		return 7 * math.Pi / 4
	default:
		return 0
	}
}

package shapegraph

import (
	"fmt"
	"math"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/shapemap"
)

// TulipBins is the number of angular-cost buckets the bucket-queue kernel
// quantizes turn penalties into, matching vgatraversal.TulipBins.
const TulipBins = 1024

// RadiusKind selects which of the three radius semantics bounds a tulip
// run: angular cost, metric (segment-length) distance, or topological
// (hop count).
type RadiusKind int

const (
	RadiusAngular RadiusKind = iota
	RadiusMetric
	RadiusTopological
	RadiusUnbounded
)

func (k RadiusKind) suffix() string {
	switch k {
	case RadiusAngular:
		return "angular"
	case RadiusMetric:
		return "metric"
	case RadiusTopological:
		return ""
	default:
		return "n"
	}
}

// AnalysisInfo is one segment's record from a single tulip run: its
// reached depth, predecessor in the shortest-angular-path tree, and
// accumulated choice/weighted-choice counts.
type AnalysisInfo struct {
	Hops           int
	AngularDepth   float64
	Choice         float64
	WeightedChoice float64
	HasPred        bool
	Pred           shapemap.Ref
}

// neighbours returns every segment reachable from ref in one hop, merging
// its Forward and Back connector maps (travel direction does not further
// constrain which segment can be entered next; it only fixed the angular
// cost already baked into the map, per BuildSegments).
func (g *ShapeGraph) neighbours(ref shapemap.Ref) map[shapemap.Ref]float64 {
	out := make(map[shapemap.Ref]float64)
	c := g.Connectors[ref]
	if c == nil {
		return out
	}
	for sr, w := range c.Forward {
		if cur, ok := out[sr.Ref]; !ok || w < cur {
			out[sr.Ref] = w
		}
	}
	for sr, w := range c.Back {
		if cur, ok := out[sr.Ref]; !ok || w < cur {
			out[sr.Ref] = w
		}
	}
	return out
}

// tulipBucketQueue is a circular array of FIFO buckets spanning
// [0, maxAngular] in TulipBins steps, giving O(1) amortized pop order by
// increasing angular cost.
type tulipBucketQueue struct {
	buckets [][]shapemap.Ref
	span    float64
	cur     int
	pending int
}

func newTulipBucketQueue(bins int, maxAngular float64) *tulipBucketQueue {
	if maxAngular <= 0 {
		maxAngular = 4 // generous default span in half-turns; costs are in [0,2] per hop
	}
	return &tulipBucketQueue{buckets: make([][]shapemap.Ref, bins), span: maxAngular / float64(bins)}
}

func (q *tulipBucketQueue) bucketFor(cost float64) int {
	if q.span <= 0 {
		return q.cur
	}
	offset := int(cost / q.span)
	return (q.cur + offset) % len(q.buckets)
}

func (q *tulipBucketQueue) push(cost float64, ref shapemap.Ref) {
	b := q.bucketFor(cost)
	q.buckets[b] = append(q.buckets[b], ref)
	q.pending++
}

func (q *tulipBucketQueue) pop() (shapemap.Ref, bool) {
	for q.pending > 0 {
		if len(q.buckets[q.cur]) > 0 {
			ref := q.buckets[q.cur][0]
			q.buckets[q.cur] = q.buckets[q.cur][1:]
			q.pending--
			return ref, true
		}
		q.cur = (q.cur + 1) % len(q.buckets)
	}
	return 0, false
}

// RunTulip runs the angular bucket-queue traversal from root over a segment
// graph, bounded by kind/radius, and returns the per-segment AnalysisInfo.
func (g *ShapeGraph) RunTulip(root shapemap.Ref, kind RadiusKind, radius float64) (map[shapemap.Ref]*AnalysisInfo, error) {
	if g.Axial {
		return nil, ErrNotSegmentGraph
	}
	maxAngular := 0.0
	if kind == RadiusAngular && radius > 0 {
		maxAngular = radius
	}
	q := newTulipBucketQueue(TulipBins, maxAngular)
	info := map[shapemap.Ref]*AnalysisInfo{root: {}}
	q.push(0, root)

	for {
		ref, ok := q.pop()
		if !ok {
			break
		}
		cur := info[ref]
		for n, w := range g.neighbours(ref) {
			hops := cur.Hops + 1
			depth := cur.AngularDepth + w
			switch kind {
			case RadiusAngular:
				if radius > 0 && depth > radius {
					continue
				}
			case RadiusTopological:
				if radius > 0 && float64(hops) > radius {
					continue
				}
			}
			if existing, seen := info[n]; seen {
				if existing.AngularDepth <= depth {
					continue
				}
			}
			info[n] = &AnalysisInfo{Hops: hops, AngularDepth: depth, HasPred: true, Pred: ref}
			q.push(depth, n)
		}
	}
	return info, nil
}

// AccumulateChoice walks the predecessor chain of every leaf (a reached
// segment that is never itself a predecessor) back to root, incrementing
// each intermediate segment's Choice by 1 and WeightedChoice by
// weight(root)*weight(leaf). weightOf may be nil, in which
// case every segment weighs 1.
func AccumulateChoice(info map[shapemap.Ref]*AnalysisInfo, root shapemap.Ref, weightOf func(shapemap.Ref) float64) {
	if weightOf == nil {
		weightOf = func(shapemap.Ref) float64 { return 1 }
	}
	isPred := make(map[shapemap.Ref]bool, len(info))
	for _, inf := range info {
		if inf.HasPred {
			isPred[inf.Pred] = true
		}
	}
	rootWeight := weightOf(root)
	for leaf := range info {
		if leaf == root || isPred[leaf] {
			continue
		}
		leafWeight := weightOf(leaf)
		cur := leaf
		for {
			ci := info[cur]
			if !ci.HasPred {
				break
			}
			prev := ci.Pred
			if prev != root {
				info[prev].Choice++
				info[prev].WeightedChoice += rootWeight * leafWeight
			}
			if prev == root {
				break
			}
			cur = prev
		}
	}
}

// ColumnName renders the canonical tulip column name:
// "T<bins> <metric> [<weightCol>] R<value><type>".
func ColumnName(bins int, metric, weightCol string, kind RadiusKind, radius float64) string {
	name := fmt.Sprintf("T%d %s", bins, metric)
	if weightCol != "" {
		name += " " + weightCol
	}
	suffix := kind.suffix()
	if kind == RadiusTopological && radius <= 0 {
		return name + " Rn"
	}
	if suffix == "" {
		return fmt.Sprintf("%s R%g", name, radius)
	}
	return fmt.Sprintf("%s R%g%s", name, radius, suffix)
}

// RunChoiceAnalysis runs RunTulip + AccumulateChoice from every root in
// roots and writes NodeCount/TotalDepth/MeanDepth/Integration/Choice/
// WeightedChoice columns into g.Attributes, named per ColumnName. weightCol
// names an existing attribute column to use as the per-segment weight for
// WeightedChoice, or "" for an unweighted run.
func (g *ShapeGraph) RunChoiceAnalysis(c comm.Communicator, roots []shapemap.Ref, kind RadiusKind, radius float64, weightCol string) error {
	if c == nil {
		c = comm.Noop{}
	}
	colNodeCount := ColumnName(TulipBins, "NodeCount", weightCol, kind, radius)
	colTotalDepth := ColumnName(TulipBins, "TotalDepth", weightCol, kind, radius)
	colMeanDepth := ColumnName(TulipBins, "MeanDepth", weightCol, kind, radius)
	colIntegration := ColumnName(TulipBins, "Integration", weightCol, kind, radius)
	colChoice := ColumnName(TulipBins, "Choice", weightCol, kind, radius)
	colWChoice := ColumnName(TulipBins, "WeightedChoice", weightCol, kind, radius)
	for _, name := range []string{colNodeCount, colTotalDepth, colMeanDepth, colIntegration, colChoice, colWChoice} {
		g.Attributes.InsertOrResetColumn(name)
	}

	var weightOf func(shapemap.Ref) float64
	if weightCol != "" {
		weightOf = func(ref shapemap.Ref) float64 {
			v, err := g.Attributes.Get(ref, weightCol)
			if err != nil || math.IsNaN(v) {
				return 1
			}
			return v
		}
	}

	c.PostMessage(comm.NumSteps, int64(len(roots)))
	totalChoice := make(map[shapemap.Ref]float64)
	totalWChoice := make(map[shapemap.Ref]float64)

	for i, root := range roots {
		if c.IsCancelled() {
			return nil
		}
		info, err := g.RunTulip(root, kind, radius)
		if err != nil {
			return err
		}
		AccumulateChoice(info, root, weightOf)
		for ref, inf := range info {
			totalChoice[ref] += inf.Choice
			totalWChoice[ref] += inf.WeightedChoice
		}

		n := len(info)
		var totalDepth float64
		for _, inf := range info {
			totalDepth += inf.AngularDepth
		}
		meanDepth := 0.0
		if n > 1 {
			meanDepth = totalDepth / float64(n-1)
		}
		g.Attributes.Set(root, colNodeCount, float64(n))
		g.Attributes.Set(root, colTotalDepth, totalDepth)
		g.Attributes.Set(root, colMeanDepth, meanDepth)
		if meanDepth > 0 {
			g.Attributes.Set(root, colIntegration, 1/meanDepth)
		} else {
			g.Attributes.Set(root, colIntegration, 0)
		}
		c.PostMessage(comm.CurrentStep, int64(i+1))
	}
	for ref, v := range totalChoice {
		g.Attributes.Set(ref, colChoice, v)
	}
	for ref, v := range totalWChoice {
		g.Attributes.Set(ref, colWChoice, v)
	}
	return nil
}

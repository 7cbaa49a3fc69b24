// Package vgatraversal implements the traversal kernels that run over a
// pointmap.PointMap's Node graph: topological visual BFS, metric Dijkstra,
// and the angular bucket-queue kernel.
//
// Each kernel takes functional options, returns sentinel errors, and runs
// over dense int-indexed scratch arrays: per-cell scratch is a flat array
// owned by the kernel invocation so that per-origin runs can be
// parallelised without sharing mutable state.
package vgatraversal

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
)

// Sentinel errors for traversal kernels.
var (
	ErrNilMap          = errors.New("vgatraversal: map is nil")
	ErrNoOrigins       = errors.New("vgatraversal: no origin cells supplied")
	ErrOriginNotFilled = errors.New("vgatraversal: origin cell is not filled")
)

// Radius bounds a kernel's expansion. Exactly one of the fields should be
// set; Unbounded (the zero value) means no limit, matching the "Rn"
// (unbounded) column-naming convention
type Radius struct {
	Topological int     // steps; 0 = unbounded
	Metric      float64 // world units; 0 = unbounded
	Angular     float64 // half-turns; 0 = unbounded
}

// Unbounded is the zero Radius: no limit on any dimension.
var Unbounded = Radius{}

// RadiusSuffix renders r as the "R<value><type>" column-name suffix.
func (r Radius) RadiusSuffix() string {
	switch {
	case r.Topological > 0:
		return radiusStr(float64(r.Topological), "")
	case r.Metric > 0:
		return radiusStr(r.Metric, "metric")
	case r.Angular > 0:
		return radiusStr(r.Angular, "angular")
	default:
		return "Rn"
	}
}

func radiusStr(v float64, typ string) string {
	s := "R"
	s += trimFloat(v)
	s += typ
	return s
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// VisualOptions configures VisualBFS.
type VisualOptions struct {
	Ctx    context.Context
	Radius int // topological radius; 0 = unbounded
	// ContextCoarsening re-expands CONTEXTFILLED cells only when their
	// x-coordinate is even, a domain-specific coarse
	// sampling rule; disabled by default since most callers never mark
	// ContextFilled cells.
	ContextCoarsening bool
}

// VisualOption is a functional option over VisualOptions.
type VisualOption func(*VisualOptions)

// WithVisualRadius sets a topological radius bound.
func WithVisualRadius(r int) VisualOption { return func(o *VisualOptions) { o.Radius = r } }

// WithContextCoarsening enables the x-even CONTEXTFILLED re-expansion rule.
func WithContextCoarsening() VisualOption { return func(o *VisualOptions) { o.ContextCoarsening = true } }

// DefaultVisualOptions returns unbounded-radius defaults.
func DefaultVisualOptions() VisualOptions {
	return VisualOptions{Ctx: context.Background()}
}

// VisualResult holds one origin's topological BFS outcome.
type VisualResult struct {
	Origin    geometry.PixelRef
	Depth     []int32 // CellCount()-sized, -1 = unreached
	NodeCount int
	TotalDepth int64
	LevelPop  map[int]int
}

// VisualMetrics are the scalar columns derived from a VisualResult, named
//
type VisualMetrics struct {
	NodeCount     int
	MeanDepth     float64
	IntegrationHH float64
	IntegrationP  float64
	IntegrationTekl float64
	Entropy       float64
	RelEntropy    float64
}

// VisualBFS runs the topological visual BFS from a single origin cell,
// expanding via the Node graph's 32-bin visible-pixel neighbours. When
// reaching a MERGED cell, its partner is also visited at the same depth
// (zero cost)
func VisualBFS(pm *pointmap.PointMap, origin geometry.PixelRef, opts ...VisualOption) (*VisualResult, error) {
	if pm == nil {
		return nil, ErrNilMap
	}
	o := DefaultVisualOptions()
	for _, f := range opts {
		f(&o)
	}
	if !pm.InBounds(origin) || !pm.At(origin).Filled() || pm.At(origin).Blocked() {
		return nil, ErrOriginNotFilled
	}

	n := pm.CellCount()
	depth := make([]int32, n)
	for i := range depth {
		depth[i] = -1
	}
	oi := pm.Index(origin)
	depth[oi] = 0
	queue := []geometry.PixelRef{origin}
	res := &VisualResult{Origin: origin, Depth: depth, LevelPop: map[int]int{0: 1}, NodeCount: 1}

	visitMerged := func(ref geometry.PixelRef, d int32) {
		if partner, ok := pm.MergePartnerOf(ref); ok {
			pi := pm.Index(partner)
			if depth[pi] == -1 {
				depth[pi] = d
				res.NodeCount++
				res.LevelPop[int(d)]++
				queue = append(queue, partner)
			}
		}
	}
	visitMerged(origin, 0)

	for len(queue) > 0 {
		select {
		case <-o.Ctx.Done():
			return res, o.Ctx.Err()
		default:
		}
		cur := queue[0]
		queue = queue[1:]
		ci := pm.Index(cur)
		d := depth[ci]
		if o.Radius > 0 && int(d) >= o.Radius {
			continue
		}
		p := pm.At(cur)
		if p.Node == nil {
			continue
		}
		for _, bin := range p.Node.Bins {
			for _, run := range bin.Vectors {
				forEachInRun(run, bin.Dir, func(ref geometry.PixelRef) {
					if !pm.InBounds(ref) {
						return
					}
					np := pm.At(ref)
					if o.ContextCoarsening && np.HasFlag(pointmap.ContextFilled) && ref.X%2 != 0 {
						return
					}
					ri := pm.Index(ref)
					if depth[ri] != -1 {
						return
					}
					depth[ri] = d + 1
					res.NodeCount++
					res.TotalDepth += int64(d + 1)
					res.LevelPop[int(d+1)]++
					queue = append(queue, ref)
					visitMerged(ref, d+1)
				})
			}
		}
	}
	return res, nil
}

// forEachInRun iterates every PixelRef in a compressed run along its scan
// axis.
func forEachInRun(run pointmap.PixelRun, dir geometry.Direction, f func(geometry.PixelRef)) {
	axisIsX := dir == geometry.DirE || dir == geometry.DirW || dir == geometry.DirNE || dir == geometry.DirSW
	if axisIsX {
		lo, hi := run.From.X, run.To.X
		if lo > hi {
			lo, hi = hi, lo
		}
		for x := lo; x <= hi; x++ {
			f(geometry.PixelRef{X: x, Y: run.From.Y})
		}
		return
	}
	lo, hi := run.From.Y, run.To.Y
	if lo > hi {
		lo, hi = hi, lo
	}
	for y := lo; y <= hi; y++ {
		f(geometry.PixelRef{X: run.From.X, Y: y})
	}
}

// Metrics computes the scalar columns from a VisualResult.
func (r *VisualResult) Metrics() VisualMetrics {
	n := r.NodeCount
	m := VisualMetrics{NodeCount: n}
	if n <= 1 {
		return m
	}
	meanDepth := float64(r.TotalDepth) / float64(n-1)
	m.MeanDepth = meanDepth

	if n > 2 {
		ra := 2 * (meanDepth - 1) / float64(n-2)
		dn := 2*(float64(n)*(log2((float64(n)+2)/3)-1)+1) / (float64(n-1) * float64(n-2))
		if ra != 0 {
			m.IntegrationHH = dn / ra
		}
		m.IntegrationP = pValueIntegration(n, meanDepth)
		m.IntegrationTekl = teklIntegration(n, meanDepth)
	}

	total := 0.0
	for _, pop := range r.LevelPop {
		total += float64(pop)
	}
	var entropy float64
	for _, pop := range r.LevelPop {
		if pop == 0 {
			continue
		}
		pk := float64(pop) / total
		entropy -= pk * log2(pk)
	}
	m.Entropy = entropy
	m.RelEntropy = entropy - poissonEntropyRef(r.LevelPop, meanDepth)
	return m
}

func log2(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log2(v)
}

// pValueIntegration is the "P-value" normalization of mean depth used
// alongside Hillier-Hanson integration: an empirical rescaling against the
// same root-n asymptote.
func pValueIntegration(n int, meanDepth float64) float64 {
	if meanDepth <= 0 {
		return 0
	}
	return float64(n) / (meanDepth * math.Log2(float64(n)))
}

// teklIntegration is the Teklenburg normalization of mean depth.
func teklIntegration(n int, meanDepth float64) float64 {
	ra := 2 * (meanDepth - 1) / float64(n-2)
	if ra == 0 {
		return 0
	}
	return 1 / ra
}

// poissonEntropyRef computes the entropy of a Poisson distribution with the
// given mean, truncated to the levels actually populated, as the reference
// for relative entropy.
func poissonEntropyRef(levelPop map[int]int, mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	var entropy float64
	var total float64
	probs := make([]float64, 0, len(levelPop))
	for l := range levelPop {
		p := poissonPMF(mean, l)
		probs = append(probs, p)
		total += p
	}
	if total == 0 {
		return 0
	}
	for _, p := range probs {
		pk := p / total
		if pk > 0 {
			entropy -= pk * log2(pk)
		}
	}
	return entropy
}

func poissonPMF(mean float64, k int) float64 {
	if k < 0 {
		return 0
	}
	logP := -mean + float64(k)*math.Log(mean) - lgamma(float64(k+1))
	return math.Exp(logP)
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

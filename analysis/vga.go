package analysis

import (
	"math"
	"sort"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
	"github.com/salanous/spacesyntax/vgatraversal"
)

// VisualAnalysis runs the topological visual BFS from every filled cell
// and produces the depth/integration/entropy columns.
type VisualAnalysis struct {
	Map     *pointmap.PointMap
	Radius  int // topological radius; 0 = unbounded
	Workers int
}

// Name implements Analysis.
func (a VisualAnalysis) Name() string { return "Visibility Graph Analysis (visual)" }

// Run implements Analysis.
func (a VisualAnalysis) Run(c comm.Communicator) (Result[geometry.PixelRef], error) {
	suffix := vgatraversal.Radius{Topological: a.Radius}.RadiusSuffix()
	cols := []string{
		"Visual Mean Depth " + suffix,
		"Visual Integration [HH] " + suffix,
		"Visual Integration [P-value] " + suffix,
		"Visual Integration [Tekl] " + suffix,
		"Visual Entropy " + suffix,
		"Visual Relativised Entropy " + suffix,
		"Visual Node Count " + suffix,
	}
	return runPerOrigin(c, a.Map.FilledCells(), cols, a.Workers, func(origin geometry.PixelRef) ([]float64, error) {
		res, err := vgatraversal.VisualBFS(a.Map, origin, vgatraversal.WithVisualRadius(a.Radius))
		if err != nil {
			return nil, err
		}
		m := res.Metrics()
		return []float64{m.MeanDepth, m.IntegrationHH, m.IntegrationP, m.IntegrationTekl, m.Entropy, m.RelEntropy, float64(m.NodeCount)}, nil
	})
}

// MetricAnalysis runs the metric Dijkstra from every filled cell and produces the shortest-path distance/angle/length columns.
type MetricAnalysis struct {
	Map       *pointmap.PointMap
	MaxRadius float64 // world-unit cutoff; 0 = unbounded
	LinkCost  float64 // merge-link traversal cost; 0 = free
	Workers   int
}

// Name implements Analysis.
func (a MetricAnalysis) Name() string { return "Visibility Graph Analysis (metric)" }

// Run implements Analysis.
func (a MetricAnalysis) Run(c comm.Communicator) (Result[geometry.PixelRef], error) {
	suffix := vgatraversal.Radius{Metric: a.MaxRadius}.RadiusSuffix()
	cols := []string{
		"Metric Mean Shortest-Path Distance " + suffix,
		"Metric Mean Shortest-Path Angle " + suffix,
		"Metric Mean Shortest-Path Length " + suffix,
		"Metric Node Count " + suffix,
	}
	return runPerOrigin(c, a.Map.FilledCells(), cols, a.Workers, func(origin geometry.PixelRef) ([]float64, error) {
		res, err := vgatraversal.MetricDijkstra(a.Map, origin,
			vgatraversal.WithMetricRadius(a.MaxRadius), vgatraversal.WithLinkCost(a.LinkCost))
		if err != nil {
			return nil, err
		}
		return []float64{res.MeanMetricDepth(), res.MeanPennAngle(), res.MeanPathLength(), float64(res.Count)}, nil
	})
}

// AngularAnalysis runs the angular bucket queue from a single origin and
// produces the "Angular Shortest Path" and "Angular Shortest Path Order"
// columns.
type AngularAnalysis struct {
	Map    *pointmap.PointMap
	Origin geometry.PixelRef
	Bins   int // tulip bins; 0 = default (1024)
}

// Name implements Analysis.
func (a AngularAnalysis) Name() string { return "Visibility Graph Analysis (angular)" }

// Run implements Analysis.
func (a AngularAnalysis) Run(c comm.Communicator) (Result[geometry.PixelRef], error) {
	if c == nil {
		c = comm.Noop{}
	}
	if c.IsCancelled() {
		return Result[geometry.PixelRef]{}, ErrCancelled
	}
	opts := []vgatraversal.AngularOption{}
	if a.Bins > 0 {
		opts = append(opts, vgatraversal.WithTulipBins(a.Bins))
	}
	res, err := vgatraversal.AngularBucketQueue(a.Map, a.Origin, opts...)
	if err != nil {
		return Result[geometry.PixelRef]{}, err
	}

	pathCol := Column[geometry.PixelRef]{Name: "Angular Shortest Path", Values: make(map[geometry.PixelRef]float64)}
	orderCol := Column[geometry.PixelRef]{Name: "Angular Shortest Path Order", Values: make(map[geometry.PixelRef]float64)}

	type reached struct {
		idx  int
		cost float64
	}
	var all []reached
	for idx, cost := range res.Cost {
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			continue
		}
		if !a.Map.At(a.Map.RefAt(idx)).Filled() {
			continue
		}
		all = append(all, reached{idx, cost})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].cost != all[j].cost {
			return all[i].cost < all[j].cost
		}
		return all[i].idx < all[j].idx
	})
	for order, r := range all {
		ref := a.Map.RefAt(r.idx)
		pathCol.Values[ref] = r.cost
		orderCol.Values[ref] = float64(order)
	}
	return Result[geometry.PixelRef]{Columns: []Column[geometry.PixelRef]{pathCol, orderCol}, Completed: true}, nil
}

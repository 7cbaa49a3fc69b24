package vgatraversal

import (
	"runtime"
	"sync"

	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
)

// RunOptions configures the per-origin parallel analyses below.
type RunOptions struct {
	// Workers bounds concurrent origin runs; 0 defaults to GOMAXPROCS.
	Workers int
}

func (o RunOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// RunVisualAnalysis runs VisualBFS from every filled, unblocked cell in
// parallel and writes the resulting columns into pm.Attributes
// ("Visual Mean Depth R<radius>" etc).
func RunVisualAnalysis(pm *pointmap.PointMap, c comm.Communicator, radius int, ro RunOptions) error {
	if c == nil {
		c = comm.Noop{}
	}
	origins := pm.FilledCells()
	suffix := Radius{Topological: radius}.RadiusSuffix()
	cols := []string{
		"Visual Mean Depth " + suffix,
		"Visual Integration [HH] " + suffix,
		"Visual Integration [P-value] " + suffix,
		"Visual Integration [Tekl] " + suffix,
		"Visual Entropy " + suffix,
		"Visual Relativised Entropy " + suffix,
		"Visual Node Count " + suffix,
	}
	for _, name := range cols {
		pm.Attributes.InsertOrResetColumn(name)
	}

	c.PostMessage(comm.NumSteps, int64(len(origins)))
	jobs := make(chan geometry.PixelRef)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex
	var done int64
	var doneMu sync.Mutex

	worker := func() {
		defer wg.Done()
		for origin := range jobs {
			if c.IsCancelled() {
				continue
			}
			res, err := VisualBFS(pm, origin, WithVisualRadius(radius))
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				continue
			}
			m := res.Metrics()
			pm.Attributes.Set(origin, cols[0], m.MeanDepth)
			pm.Attributes.Set(origin, cols[1], m.IntegrationHH)
			pm.Attributes.Set(origin, cols[2], m.IntegrationP)
			pm.Attributes.Set(origin, cols[3], m.IntegrationTekl)
			pm.Attributes.Set(origin, cols[4], m.Entropy)
			pm.Attributes.Set(origin, cols[5], m.RelEntropy)
			pm.Attributes.Set(origin, cols[6], float64(m.NodeCount))

			doneMu.Lock()
			done++
			c.PostMessage(comm.CurrentStep, done)
			doneMu.Unlock()
		}
	}

	n := ro.workers()
	wg.Add(n)
	for i := 0; i < n; i++ {
		go worker()
	}
	for _, o := range origins {
		jobs <- o
	}
	close(jobs)
	wg.Wait()
	return firstErr
}

// RunMetricAnalysis runs MetricDijkstra from every filled, unblocked cell
// in parallel and writes the mean-metric-depth column.
func RunMetricAnalysis(pm *pointmap.PointMap, c comm.Communicator, maxRadius float64, ro RunOptions) error {
	if c == nil {
		c = comm.Noop{}
	}
	origins := pm.FilledCells()
	suffix := Radius{Metric: maxRadius}.RadiusSuffix()
	colDist := "Metric Mean Shortest-Path Distance " + suffix
	colAngle := "Metric Mean Shortest-Path Angle " + suffix
	colLen := "Metric Mean Shortest-Path Length " + suffix
	colCount := "Metric Node Count " + suffix
	for _, c := range []string{colDist, colAngle, colLen, colCount} {
		pm.Attributes.InsertOrResetColumn(c)
	}

	c.PostMessage(comm.NumSteps, int64(len(origins)))
	jobs := make(chan geometry.PixelRef)
	var wg sync.WaitGroup
	var firstErr error
	var errMu sync.Mutex

	worker := func() {
		defer wg.Done()
		for origin := range jobs {
			if c.IsCancelled() {
				continue
			}
			res, err := MetricDijkstra(pm, origin, WithMetricRadius(maxRadius))
			if err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				continue
			}
			pm.Attributes.Set(origin, colDist, res.MeanMetricDepth())
			pm.Attributes.Set(origin, colAngle, res.MeanPennAngle())
			pm.Attributes.Set(origin, colLen, res.MeanPathLength())
			pm.Attributes.Set(origin, colCount, float64(res.Count))
		}
	}
	n := ro.workers()
	wg.Add(n)
	for i := 0; i < n; i++ {
		go worker()
	}
	for _, o := range origins {
		jobs <- o
	}
	close(jobs)
	wg.Wait()
	return firstErr
}

package analysis

import (
	"math"

	"github.com/salanous/spacesyntax/agents"
	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/shapegraph"
	"github.com/salanous/spacesyntax/shapemap"
)

// TulipAnalysis runs the segment tulip choice/integration analysis from every segment (or the supplied Roots subset), producing the
// canonical "T<bins> <Metric> [<weight>] R<radius><type>" columns. Unlike
// ShapeGraph.RunChoiceAnalysis, this wrapper is pure: the graph's own
// attribute table is only read (for WeightCol), never written.
type TulipAnalysis struct {
	Graph     *shapegraph.ShapeGraph
	Kind      shapegraph.RadiusKind
	Radius    float64
	WeightCol string        // "" for unweighted
	Roots     []shapemap.Ref // nil = every segment
}

// Name implements Analysis.
func (a TulipAnalysis) Name() string { return "Segment Analysis (tulip)" }

// Run implements Analysis.
func (a TulipAnalysis) Run(c comm.Communicator) (Result[shapemap.Ref], error) {
	if c == nil {
		c = comm.Noop{}
	}
	roots := a.Roots
	if roots == nil {
		roots = a.Graph.Refs()
	}

	var weightOf func(shapemap.Ref) float64
	if a.WeightCol != "" {
		weightOf = func(ref shapemap.Ref) float64 {
			v, err := a.Graph.Attributes.Get(ref, a.WeightCol)
			if err != nil || math.IsNaN(v) {
				return 1
			}
			return v
		}
	}

	mk := func(metric string) Column[shapemap.Ref] {
		return Column[shapemap.Ref]{
			Name:   shapegraph.ColumnName(shapegraph.TulipBins, metric, a.WeightCol, a.Kind, a.Radius),
			Values: make(map[shapemap.Ref]float64, len(roots)),
		}
	}
	colNodeCount := mk("NodeCount")
	colTotalDepth := mk("TotalDepth")
	colMeanDepth := mk("MeanDepth")
	colIntegration := mk("Integration")
	colChoice := mk("Choice")
	colWChoice := mk("WeightedChoice")

	c.PostMessage(comm.NumSteps, int64(len(roots)))
	for i, root := range roots {
		if c.IsCancelled() {
			return Result[shapemap.Ref]{}, ErrCancelled
		}
		info, err := a.Graph.RunTulip(root, a.Kind, a.Radius)
		if err != nil {
			return Result[shapemap.Ref]{}, err
		}
		shapegraph.AccumulateChoice(info, root, weightOf)

		n := len(info)
		var totalDepth float64
		for ref, inf := range info {
			totalDepth += inf.AngularDepth
			colChoice.Values[ref] += inf.Choice
			colWChoice.Values[ref] += inf.WeightedChoice
		}
		meanDepth := 0.0
		if n > 1 {
			meanDepth = totalDepth / float64(n-1)
		}
		colNodeCount.Values[root] = float64(n)
		colTotalDepth.Values[root] = totalDepth
		colMeanDepth.Values[root] = meanDepth
		if meanDepth > 0 {
			colIntegration.Values[root] = 1 / meanDepth
		} else {
			colIntegration.Values[root] = 0
		}
		c.PostMessage(comm.CurrentStep, int64(i+1))
	}
	return Result[shapemap.Ref]{
		Columns:   []Column[shapemap.Ref]{colNodeCount, colTotalDepth, colMeanDepth, colIntegration, colChoice, colWChoice},
		Completed: true,
	}, nil
}

// AgentAnalysis steps an agent engine for Steps frames and produces the
// "Gate Counts" column: how many times any agent occupied each cell.
type AgentAnalysis struct {
	Engine *agents.AgentEngine
	Steps  int
}

// Name implements Analysis.
func (a AgentAnalysis) Name() string { return "Agent Analysis" }

// Run implements Analysis.
func (a AgentAnalysis) Run(c comm.Communicator) (Result[geometry.PixelRef], error) {
	if c == nil {
		c = comm.Noop{}
	}
	counts := make(map[geometry.PixelRef]float64)
	c.PostMessage(comm.NumSteps, int64(a.Steps))
	for step := 0; step < a.Steps; step++ {
		if c.IsCancelled() {
			return Result[geometry.PixelRef]{}, ErrCancelled
		}
		if err := a.Engine.Step(); err != nil {
			return Result[geometry.PixelRef]{}, err
		}
		for _, set := range a.Engine.Sets {
			for _, agent := range set.Live() {
				counts[agent.Pos]++
			}
		}
		c.PostMessage(comm.CurrentStep, int64(step+1))
	}
	return Result[geometry.PixelRef]{
		Columns:   []Column[geometry.PixelRef]{{Name: "Gate Counts", Values: counts}},
		Completed: true,
	}, nil
}

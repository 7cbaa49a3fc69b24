package agents_test

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/salanous/spacesyntax/agents"
	"github.com/salanous/spacesyntax/comm"
	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
	"github.com/salanous/spacesyntax/shapemap"
)

func buildRoom(t *testing.T) *pointmap.PointMap {
	t.Helper()
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 10})
	pm, err := pointmap.New(region, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	pm.FillRegion(region)
	walls := []geometry.Line{
		geometry.NewLine(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 0}),
		geometry.NewLine(geometry.Point{X: 10, Y: 0}, geometry.Point{X: 10, Y: 10}),
		geometry.NewLine(geometry.Point{X: 10, Y: 10}, geometry.Point{X: 0, Y: 10}),
		geometry.NewLine(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 0, Y: 0}),
	}
	pm.BlockWalls(walls, 1e-6)
	if err := pm.BuildVisibilityGraph(comm.Noop{}, pointmap.DefaultVisibilityOptions()); err != nil {
		t.Fatal(err)
	}
	return pm
}

// runSim releases agents at a fixed rate for steps frames with the given
// seed and returns every live agent's final position, per set order.
func runSim(t *testing.T, pm *pointmap.PointMap, seed int64, look agents.LookRule, steps int) []geometry.PixelRef {
	t.Helper()
	set := agents.NewSet(0.5, steps+1) // no expiry during the run
	set.Look = look
	engine := agents.NewEngine(pm, agents.WithRand(rand.New(rand.NewSource(seed))))
	engine.AddSet(set)
	for i := 0; i < steps; i++ {
		if err := engine.Step(); err != nil {
			t.Fatal(err)
		}
	}
	var out []geometry.PixelRef
	for _, a := range set.Live() {
		out = append(out, a.Pos)
	}
	return out
}

// TestDeterminism covers scenario S6: two runs with the same
// PRNG seed leave every agent at the same final position.
func TestDeterminism(t *testing.T) {
	pm := buildRoom(t)
	for _, look := range []agents.LookRule{agents.LookStandard, agents.LookLoSWeighted, agents.LookOcclusion} {
		a := runSim(t, pm, 42, look, 200)
		b := runSim(t, pm, 42, look, 200)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("look rule %v: same seed diverged (-first +second):\n%s", look, diff)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	pm := buildRoom(t)
	a := runSim(t, pm, 1, agents.LookStandard, 200)
	b := runSim(t, pm, 2, agents.LookStandard, 200)
	if cmp.Diff(a, b) == "" {
		t.Error("two different seeds produced identical runs; PRNG is not being used")
	}
}

func TestAgentsStayInBounds(t *testing.T) {
	pm := buildRoom(t)
	set := agents.NewSet(1.0, 500)
	engine := agents.NewEngine(pm, agents.WithRand(rand.New(rand.NewSource(7))))
	engine.AddSet(set)
	for i := 0; i < 300; i++ {
		if err := engine.Step(); err != nil {
			t.Fatal(err)
		}
		for _, a := range set.Live() {
			p, err := pm.TryAt(a.Pos)
			if err != nil {
				t.Fatalf("agent escaped the grid at %v", a.Pos)
			}
			if !p.Filled() || p.Blocked() {
				t.Fatalf("agent stands on a non-walkable cell %v", a.Pos)
			}
		}
	}
}

// TestTrailDeterminism completes scenario S6: same seed, same trail
// polylines.
func TestTrailDeterminism(t *testing.T) {
	pm := buildRoom(t)
	region := geometry.NewRegion(geometry.Point{X: 0, Y: 0}, geometry.Point{X: 10, Y: 10})

	run := func() []shapemap.SalaShape {
		trails, err := shapemap.New(region, 1.0)
		if err != nil {
			t.Fatal(err)
		}
		set := agents.NewSet(0.5, 40)
		engine := agents.NewEngine(pm,
			agents.WithRand(rand.New(rand.NewSource(42))),
			agents.WithTrails(trails, 10))
		engine.AddSet(set)
		for i := 0; i < 120; i++ {
			if err := engine.Step(); err != nil {
				t.Fatal(err)
			}
		}
		engine.FlushTrails()
		var out []shapemap.SalaShape
		for _, ref := range trails.Refs() {
			s, err := trails.Get(ref)
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, s)
		}
		return out
	}

	a := run()
	b := run()
	if len(a) == 0 {
		t.Fatal("no trails recorded")
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("same seed produced different trails (-first +second):\n%s", diff)
	}
}

func TestLifetimeExpiry(t *testing.T) {
	pm := buildRoom(t)
	set := agents.NewSet(2.0, 10)
	engine := agents.NewEngine(pm, agents.WithRand(rand.New(rand.NewSource(3))))
	engine.AddSet(set)
	for i := 0; i < 50; i++ {
		if err := engine.Step(); err != nil {
			t.Fatal(err)
		}
		for _, a := range set.Live() {
			if a.Frame >= 10 {
				t.Fatalf("agent outlived its lifetime: frame %d", a.Frame)
			}
		}
	}
}

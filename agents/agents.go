// Package agents implements the visibility-graph agent engine: Poisson
// release of short-lived agents that walk the grid by repeatedly looking
// (picking a new heading from the current cell's Node) and stepping
// (translating one cell along that heading, falling back to a +-45 degree
// diagonal, or stopping for the frame). Engines take an explicit
// *rand.Rand; there is no hidden global RNG.
package agents

import (
	"errors"
	"math"
	"math/rand"

	"github.com/salanous/spacesyntax/geometry"
	"github.com/salanous/spacesyntax/pointmap"
	"github.com/salanous/spacesyntax/shapemap"
)

// ErrNoFilledCells indicates an AgentSet could not find any candidate
// release cell in its PointMap.
var ErrNoFilledCells = errors.New("agents: no filled cells available for release")

// LookRule selects which pluggable heading-selection strategy an AgentSet
// uses.
type LookRule int

const (
	LookStandard LookRule = iota
	LookLoSWeighted
	LookOcclusion
	LookGibsonian
	LookGibsonian2
)

// GibsonianRule selects one of the four parameterised Gibsonian feeler
// rules used when Look == LookGibsonian.
type GibsonianRule int

const (
	GibsonLength GibsonianRule = iota
	GibsonOpticFlow
	GibsonComparativeLength
	GibsonComparativeOpticFlow
)

// numFeelers is the width of the Gibsonian last_los/curr_los arrays: the
// ahead feeler plus four to each side.
const numFeelers = 9

// Agent is one live walker: its current cell, heading (in the Node's 32-bin
// sector space), frame counter, optional locked target, and the rolling
// feeler-distance buffers the Gibsonian rules consume.
type Agent struct {
	Pos          geometry.PixelRef
	HeadingBin   int
	Frame        int
	TargetLocked bool
	Target       geometry.PixelRef

	pflipper         bool
	seenOccluders    [2]map[geometry.PixelRef]bool
	lastLOS, currLOS [numFeelers]float64
}

// AgentSet groups agents released at a shared rate with a shared lifetime,
// look program, and vision cone.
type AgentSet struct {
	ReleaseRate    float64 // Poisson mean agents released per Step
	Lifetime       int     // frames before an agent expires
	Look           LookRule
	VisionHalfBins int // +-vbin either side of heading counts as "in cone"
	Gibson         GibsonianRule
	GibsonProb     float64 // probability a Gibsonian rule's offset is applied
	DestBearing    *int    // optional destination heading bin for LoS-weighted look
	DeadEndDist    float64 // Gibsonian-2 dead-end detection threshold, in grid units

	ReleaseCells []geometry.PixelRef // candidate release cells; nil means "any filled cell"

	agents []*Agent
}

// NewSet returns an AgentSet with the given release rate and lifetime and
// zero-value look parameters (LookStandard, no vision restriction).
func NewSet(releaseRate float64, lifetime int) *AgentSet {
	return &AgentSet{ReleaseRate: releaseRate, Lifetime: lifetime, VisionHalfBins: pointmap.NumBins / 2}
}

// Live returns the set's currently live agents.
func (s *AgentSet) Live() []*Agent { return s.agents }

// EngineOption configures an AgentEngine.
type EngineOption func(*AgentEngine)

// WithRand sets the engine's PRNG source explicitly; NewEngine otherwise
// seeds from rand.NewSource(1) so runs are reproducible by
// default, never from a hidden global generator.
func WithRand(rng *rand.Rand) EngineOption {
	return func(e *AgentEngine) {
		if rng != nil {
			e.rng = rng
		}
	}
}

// WithTrails enables trail recording for up to count agents into dst.
func WithTrails(dst *shapemap.ShapeMap, count int) EngineOption {
	return func(e *AgentEngine) {
		e.trails = dst
		e.trailCount = count
	}
}

// AgentEngine owns one or more AgentSets and steps them all against a
// shared PointMap.
type AgentEngine struct {
	PointMap *pointmap.PointMap
	Sets     []*AgentSet

	rng        *rand.Rand
	trails     *shapemap.ShapeMap
	trailCount int
	step       int

	trailOf    map[*Agent]*trail
	trailOrder []*Agent
}

// trail is one tracked agent's recorded walk.
type trail struct {
	points  []geometry.Point
	flushed bool
}

// NewEngine returns an AgentEngine walking pm.
func NewEngine(pm *pointmap.PointMap, opts ...EngineOption) *AgentEngine {
	e := &AgentEngine{PointMap: pm, rng: rand.New(rand.NewSource(1))}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddSet registers set with the engine.
func (e *AgentEngine) AddSet(set *AgentSet) { e.Sets = append(e.Sets, set) }

// Step advances the simulation by one frame: releases new agents per set,
// moves every live agent, expires agents past their lifetime, and records
// trails if enabled.
func (e *AgentEngine) Step() error {
	e.step++
	for _, set := range e.Sets {
		if err := e.release(set); err != nil {
			return err
		}
	}
	for _, set := range e.Sets {
		for _, a := range set.agents {
			e.onMove(set, a)
		}
	}
	for _, set := range e.Sets {
		e.expire(set)
	}
	if e.trails != nil {
		e.recordTrails()
	}
	return nil
}

func (e *AgentEngine) release(set *AgentSet) error {
	q := poissonSample(e.rng, set.ReleaseRate)
	for i := 0; i < q; i++ {
		cell, err := e.pickReleaseCell(set)
		if err != nil {
			return err
		}
		set.agents = append(set.agents, &Agent{
			Pos:        cell,
			HeadingBin: e.rng.Intn(pointmap.NumBins),
			seenOccluders: [2]map[geometry.PixelRef]bool{
				make(map[geometry.PixelRef]bool), make(map[geometry.PixelRef]bool),
			},
		})
	}
	return nil
}

func (e *AgentEngine) pickReleaseCell(set *AgentSet) (geometry.PixelRef, error) {
	candidates := set.ReleaseCells
	if len(candidates) == 0 {
		candidates = e.PointMap.FilledCells()
	}
	if len(candidates) == 0 {
		return geometry.PixelRef{}, ErrNoFilledCells
	}
	return candidates[e.rng.Intn(len(candidates))], nil
}

// onMove advances one agent by a frame: possibly re-look, then step.
func (e *AgentEngine) onMove(set *AgentSet, a *Agent) {
	a.Frame++
	if !a.TargetLocked {
		lookProb := 1.0
		if set.Lifetime > 0 {
			lookProb = 1.0 / float64(set.Lifetime)
		}
		if e.rng.Float64() < lookProb {
			e.onLook(set, a)
		}
	}
	e.onStep(set, a)
}

// onLook dispatches to the configured look rule and updates a's heading.
func (e *AgentEngine) onLook(set *AgentSet, a *Agent) {
	p, err := e.PointMap.TryAt(a.Pos)
	if err != nil || p.Node == nil {
		return
	}
	switch set.Look {
	case LookStandard:
		a.HeadingBin = lookStandard(e.rng, p.Node, a.HeadingBin, set.VisionHalfBins)
	case LookLoSWeighted:
		a.HeadingBin = lookLoSWeighted(e.rng, p.Node, a.HeadingBin, set.VisionHalfBins, set.DestBearing)
	case LookOcclusion:
		a.HeadingBin = lookOcclusion(e.rng, p.Node, a, set.VisionHalfBins)
	case LookGibsonian:
		sampleFeelers(p.Node, a)
		a.HeadingBin = lookGibsonian(e.rng, set.Gibson, set.GibsonProb, a)
	case LookGibsonian2:
		sampleFeelers(p.Node, a)
		a.HeadingBin = lookGibsonian2(e.rng, set.GibsonProb, set.DeadEndDist, a)
	}
}

// onStep implements the translate/commit/diagonal-step/stop state machine.
func (e *AgentEngine) onStep(set *AgentSet, a *Agent) {
	p := e.PointMap.At(a.Pos)
	if e.tryStep(a, a.HeadingBin) {
		return
	}
	diagBins := pointmap.NumBins / 8 // 45 degrees in 32-bin units
	if e.rng.Intn(2) == 0 {
		if e.tryStep(a, a.HeadingBin+diagBins) {
			return
		}
		e.tryStep(a, a.HeadingBin-diagBins)
		return
	}
	if e.tryStep(a, a.HeadingBin-diagBins) {
		return
	}
	e.tryStep(a, a.HeadingBin+diagBins)
	_ = p // stop this frame: no branch above committed a move
}

// tryStep attempts to move a one cell in the 8-connectivity direction
// nearest bin, committing only if the current cell's GridConnections byte
// permits it.
func (e *AgentEngine) tryStep(a *Agent, bin int) bool {
	dir := binToDirection(bin)
	p := e.PointMap.At(a.Pos)
	if p.GridConnections&dir == 0 {
		return false
	}
	next, ok := a.Pos.Neighbour(dir)
	if !ok || !e.PointMap.InBounds(next) {
		return false
	}
	np := e.PointMap.At(next)
	if !np.Filled() || np.Blocked() {
		return false
	}
	a.Pos = next
	return true
}

func (e *AgentEngine) expire(set *AgentSet) {
	if set.Lifetime <= 0 {
		return
	}
	alive := set.agents[:0]
	for _, a := range set.agents {
		if a.Frame < set.Lifetime {
			alive = append(alive, a)
		}
	}
	set.agents = alive
}

// recordTrails appends each tracked agent's current world location to its
// trail, starts tracking new agents while fewer than trailCount are
// tracked, and flushes the trail of any agent that has expired.
func (e *AgentEngine) recordTrails() {
	if e.trailOf == nil {
		e.trailOf = make(map[*Agent]*trail)
	}
	live := make(map[*Agent]bool)
	for _, set := range e.Sets {
		for _, a := range set.agents {
			live[a] = true
			tr, ok := e.trailOf[a]
			if !ok {
				if len(e.trailOrder) >= e.trailCount {
					continue
				}
				tr = &trail{}
				e.trailOf[a] = tr
				e.trailOrder = append(e.trailOrder, a)
			}
			tr.points = append(tr.points, e.PointMap.At(a.Pos).Location)
		}
	}
	for _, a := range e.trailOrder {
		tr := e.trailOf[a]
		if !tr.flushed && !live[a] {
			e.flushTrail(tr)
		}
	}
}

// flushTrail writes one finished trail into the trail shape map as an open
// polyline, with a "Trail Steps" attribute for the recorded frame count.
func (e *AgentEngine) flushTrail(tr *trail) {
	tr.flushed = true
	if len(tr.points) < 2 {
		return
	}
	shape, err := shapemap.NewPolyShape(tr.points, false)
	if err != nil {
		return
	}
	ref := e.trails.Add(shape, 0)
	e.trails.Attributes.Set(ref, "Trail Steps", float64(len(tr.points)))
}

// FlushTrails writes every still-recording trail into the trail shape map.
// Call once after the final Step; without it, trails of agents that never
// expire are lost.
func (e *AgentEngine) FlushTrails() {
	if e.trails == nil {
		return
	}
	for _, a := range e.trailOrder {
		tr := e.trailOf[a]
		if !tr.flushed {
			e.flushTrail(tr)
		}
	}
}

// binToDirection maps one of the Node's 32 fine angular bins to the
// nearest of the 8 grid-connectivity directions geometry.AllDirections
// enumerates in E, NE, N, NW, W, SW, S, SE order at 45 degree spacing.
func binToDirection(bin int) geometry.Direction {
	bin = ((bin % pointmap.NumBins) + pointmap.NumBins) % pointmap.NumBins
	idx := int(math.Round(float64(bin)/4.0)) % 8
	return geometry.AllDirections()[idx]
}

// poissonSample draws one sample from Poisson(lambda) via Knuth's
// multiplicative method, adequate for the small release rates a look-and-
// step simulation uses per frame.
func poissonSample(rng *rand.Rand, lambda float64) int {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

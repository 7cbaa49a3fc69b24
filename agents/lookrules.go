package agents

import (
	"math"
	"math/rand"

	"github.com/salanous/spacesyntax/pointmap"
)

// feelerOffsets are the bin offsets from heading sampled into an Agent's
// last_los/curr_los arrays: the dead-ahead feeler plus four symmetric
// feelers to each side, spread across a 180 degree forward cone.
var feelerOffsets = [numFeelers]int{-8, -6, -4, -2, 0, 2, 4, 6, 8}

// inCone reports whether bin lies within halfBins of heading, wrapping
// around the 32-bin circle.
func inCone(bin, heading, halfBins int) bool {
	d := bin - heading
	d = ((d % pointmap.NumBins) + pointmap.NumBins) % pointmap.NumBins
	if d > pointmap.NumBins/2 {
		d = pointmap.NumBins - d
	}
	return d <= halfBins
}

func wrapBin(bin int) int {
	return ((bin % pointmap.NumBins) + pointmap.NumBins) % pointmap.NumBins
}

// lookStandard picks a uniformly-random bin within the vision cone that has
// at least one visible pixel run recorded.
func lookStandard(rng *rand.Rand, node *pointmap.Node, heading, halfBins int) int {
	var candidates []int
	for b := 0; b < pointmap.NumBins; b++ {
		if inCone(b, heading, halfBins) && len(node.Bins[b].Vectors) > 0 {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return heading
	}
	return candidates[rng.Intn(len(candidates))]
}

// lookLoSWeighted samples a bin in the cone with probability proportional
// to its farthest visible distance, optionally scaled by cosine proximity
// to a destination bearing.
func lookLoSWeighted(rng *rand.Rand, node *pointmap.Node, heading, halfBins int, destBearing *int) int {
	weights := make(map[int]float64)
	total := 0.0
	for b := 0; b < pointmap.NumBins; b++ {
		if !inCone(b, heading, halfBins) || len(node.Bins[b].Vectors) == 0 {
			continue
		}
		w := node.Bins[b].FarDist
		if destBearing != nil {
			w *= cosineProximity(b, *destBearing)
		}
		if w <= 0 {
			continue
		}
		weights[b] = w
		total += w
	}
	if total <= 0 {
		return heading
	}
	return weightedChoice(rng, weights, total, heading)
}

// lookOcclusion picks a bin from the occlusion-bin set weighted by
// occlusion distance, excluding occluders seen on the previous look via the
// pflipper double buffer.
func lookOcclusion(rng *rand.Rand, node *pointmap.Node, a *Agent, halfBins int) int {
	prev := a.seenOccluders[boolToInt(!a.pflipper)]
	curr := a.seenOccluders[boolToInt(a.pflipper)]
	for k := range curr {
		delete(curr, k)
	}

	weights := make(map[int]float64)
	total := 0.0
	for b := 0; b < pointmap.NumBins; b++ {
		bin := node.Bins[b]
		if !inCone(b, a.HeadingBin, halfBins) || len(bin.Occluders) == 0 {
			continue
		}
		fresh := false
		for _, occ := range bin.Occluders {
			curr[occ] = true
			if !prev[occ] {
				fresh = true
			}
		}
		if !fresh {
			continue
		}
		w := bin.OccDist
		if w <= 0 {
			continue
		}
		weights[b] = w
		total += w
	}
	a.pflipper = !a.pflipper
	if total <= 0 {
		return a.HeadingBin
	}
	return weightedChoice(rng, weights, total, a.HeadingBin)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func weightedChoice(rng *rand.Rand, weights map[int]float64, total float64, fallback int) int {
	r := rng.Float64() * total
	// bins in index order, so a seeded run is reproducible
	for b := 0; b < pointmap.NumBins; b++ {
		w, ok := weights[b]
		if !ok {
			continue
		}
		r -= w
		if r <= 0 {
			return b
		}
	}
	return fallback
}

// cosineProximity returns (1+cos(theta))/2 in [0,1], theta the angular
// difference between two bins, so exact alignment weighs 1 and the
// opposite bearing weighs 0.
func cosineProximity(bin, bearing int) float64 {
	a := binAngle(bin)
	b := binAngle(bearing)
	return (1 + math.Cos(a-b)) / 2
}

func binAngle(bin int) float64 {
	return float64(bin) * (2 * math.Pi / float64(pointmap.NumBins))
}

// sampleFeelers rotates curr_los into last_los and refills curr_los from
// node's FarDist at the agent's current heading plus each feeler offset.
func sampleFeelers(node *pointmap.Node, a *Agent) {
	a.lastLOS = a.currLOS
	for i, off := range feelerOffsets {
		b := wrapBin(a.HeadingBin + off)
		a.currLOS[i] = node.Bins[b].FarDist
	}
}

const centerFeeler = numFeelers / 2

// lookGibsonian applies one of the four parameterised feeler rules with
// probability prob, otherwise holds the current heading.
func lookGibsonian(rng *rand.Rand, rule GibsonianRule, prob float64, a *Agent) int {
	if rng.Float64() >= prob {
		return a.HeadingBin
	}
	switch rule {
	case GibsonLength:
		return a.HeadingBin + feelerOffsets[argmax(a.currLOS[:])]
	case GibsonOpticFlow:
		flow := make([]float64, numFeelers)
		for i := range flow {
			flow[i] = a.currLOS[i] - a.lastLOS[i]
		}
		return a.HeadingBin + feelerOffsets[argmax(flow)]
	case GibsonComparativeLength:
		left, right := sumHalves(a.currLOS[:])
		if left > right {
			return a.HeadingBin + feelerOffsets[0]
		}
		return a.HeadingBin + feelerOffsets[numFeelers-1]
	case GibsonComparativeOpticFlow:
		flow := make([]float64, numFeelers)
		for i := range flow {
			flow[i] = a.currLOS[i] - a.lastLOS[i]
		}
		left, right := sumHalves(flow)
		if left > right {
			return a.HeadingBin + feelerOffsets[0]
		}
		return a.HeadingBin + feelerOffsets[numFeelers-1]
	default:
		return a.HeadingBin
	}
}

// lookGibsonian2 behaves like GibsonLength but first checks for a dead end
// (every feeler shorter than deadEndDist), in which case it reverses
// heading.
func lookGibsonian2(rng *rand.Rand, prob float64, deadEndDist float64, a *Agent) int {
	deadEnd := true
	for _, v := range a.currLOS {
		if v >= deadEndDist {
			deadEnd = false
			break
		}
	}
	if deadEnd {
		return wrapBin(a.HeadingBin + pointmap.NumBins/2)
	}
	if rng.Float64() >= prob {
		return a.HeadingBin
	}
	return a.HeadingBin + feelerOffsets[argmax(a.currLOS[:])]
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func sumHalves(v []float64) (left, right float64) {
	for i := 0; i < centerFeeler; i++ {
		left += v[i]
	}
	for i := centerFeeler + 1; i < len(v); i++ {
		right += v[i]
	}
	return left, right
}

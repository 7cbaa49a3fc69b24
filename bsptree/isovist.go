package bsptree

import (
	"math"

	"github.com/salanous/spacesyntax/geometry"
)

// Isovist is the viewshed polygon visible from a point, plus the derived
// scalar metrics used by isovist analysis.
type Isovist struct {
	Origin    geometry.Point
	Polygon   []geometry.Point
	Area      float64
	Perimeter float64
	MinRadial float64
	MaxRadial float64
	Occlusivity float64 // fraction of boundary rays that terminated on an occluding edge short of MaxRadial
}

// ComputeIsovist casts rays (count evenly spaced over 2π) from origin and
// clips each against the nearest line in t that the ray crosses, walking
// the BSP using the line's own partition to prune far branches. maxRadius
// bounds any ray that hits nothing.
func ComputeIsovist(t *Tree, origin geometry.Point, count int, maxRadius float64) Isovist {
	iso := Isovist{Origin: origin, MinRadial: math.Inf(1)}
	if count <= 0 {
		count = 1
	}
	poly := make([]geometry.Point, 0, count)
	occluded := 0
	for i := 0; i < count; i++ {
		theta := 2 * math.Pi * float64(i) / float64(count)
		dir := geometry.Point{X: math.Cos(theta), Y: math.Sin(theta)}
		far := geometry.Point{X: origin.X + dir.X*maxRadius, Y: origin.Y + dir.Y*maxRadius}
		ray := geometry.NewLine(origin, far)

		hitDist := maxRadius
		hitPoint := far
		hit := false
		if t.Root() != invalidNode {
			walkNearestHit(t, t.Root(), ray, origin, &hitDist, &hitPoint, &hit)
		}
		if hit {
			occluded++
		}
		poly = append(poly, hitPoint)
		if hitDist < iso.MinRadial {
			iso.MinRadial = hitDist
		}
		if hitDist > iso.MaxRadial {
			iso.MaxRadial = hitDist
		}
	}
	iso.Polygon = poly
	iso.Area = polygonArea(poly)
	iso.Perimeter = polygonPerimeter(poly, origin)
	if count > 0 {
		iso.Occlusivity = float64(occluded) / float64(count)
	}
	if math.IsInf(iso.MinRadial, 1) {
		iso.MinRadial = 0
	}
	return iso
}

// walkNearestHit keeps the closest crossing of ray with a tree line that
// lies strictly between origin and the current best hit distance,
// descending only into the splitter sides the ray actually reaches: the
// left child holds lines classified on the splitter's left, so a ray
// entirely on the right can skip it, and vice versa.
func walkNearestHit(t *Tree, idx NodeIdx, ray geometry.Line, origin geometry.Point, bestDist *float64, bestPoint *geometry.Point, hit *bool) {
	if idx == invalidNode {
		return
	}
	n := t.Node(idx)
	if ray.Intersects(n.Line, 1e-9) != geometry.NoIntersection {
		if ip, ok := ray.IntersectionPoint(n.Line); ok {
			d := origin.Dist(ip)
			if d < *bestDist && d > 1e-9 {
				*bestDist = d
				*bestPoint = ip
				*hit = true
			}
		}
	}
	a, b := n.Line.Start(), n.Line.End()
	dir := b.Sub(a)
	s1 := dir.Cross(ray.Start().Sub(a))
	s2 := dir.Cross(ray.End().Sub(a))
	const eps = 1e-9
	if s1 > -eps || s2 > -eps {
		walkNearestHit(t, n.Left, ray, origin, bestDist, bestPoint, hit)
	}
	if s1 < eps || s2 < eps {
		walkNearestHit(t, n.Right, ray, origin, bestDist, bestPoint, hit)
	}
}

func polygonArea(poly []geometry.Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(sum) / 2
}

func polygonPerimeter(poly []geometry.Point, _ geometry.Point) float64 {
	if len(poly) < 2 {
		return 0
	}
	var sum float64
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].Dist(poly[j])
	}
	return sum
}

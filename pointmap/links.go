package pointmap

import "github.com/salanous/spacesyntax/geometry"

// Link is one merge link as a world-space line between its two cells'
// locations, the representation ExtractLinks returns for exposing merge
// links back out as shape-map lines.
type Link struct {
	A, B geometry.PixelRef
	Line geometry.Line
}

// ExtractLinks returns every merge link currently on the map, each
// reported once (A < B by row-major order) as a world-space line between
// the two cells' locations.
func (pm *PointMap) ExtractLinks() []Link {
	var out []Link
	for y := 0; y < pm.Rows(); y++ {
		for x := 0; x < pm.Cols(); x++ {
			ref := geometry.PixelRef{X: int16(x), Y: int16(y)}
			p := pm.At(ref)
			if !p.MergedWith() {
				continue
			}
			partner := p.MergePartner
			if pm.Index(partner) < pm.Index(ref) {
				continue // report each link once, from its lower-indexed end
			}
			out = append(out, Link{
				A:    ref,
				B:    partner,
				Line: geometry.NewLine(p.Location, pm.At(partner).Location),
			})
		}
	}
	return out
}

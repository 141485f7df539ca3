package geomconv

import "github.com/sells-group/shapecodec/internal/shp"

// SignedArea returns twice the signed area of a ring. It is negative for
// clockwise rings, which ESRI uses for outer shells.
func SignedArea(ring []shp.Coordinate) float64 {
	var sum float64
	for i := range ring {
		j := (i + 1) % len(ring)
		sum += ring[i].X*ring[j].Y - ring[j].X*ring[i].Y
	}
	return sum
}

// IsHole reports whether ring winds counter-clockwise.
func IsHole(ring []shp.Coordinate) bool {
	return SignedArea(ring) > 0
}

// GroupRings splits a shapefile polygon's rings into polygons: each shell
// followed by its holes. A hole joins the first shell that contains its
// first vertex, or the latest shell when none does. Holes with no shell at
// all are kept as shells.
func GroupRings(rings [][]shp.Coordinate) [][][]shp.Coordinate {
	var groups [][][]shp.Coordinate
	var holes [][]shp.Coordinate
	for _, ring := range rings {
		if len(ring) == 0 {
			continue
		}
		if IsHole(ring) {
			holes = append(holes, ring)
			continue
		}
		groups = append(groups, [][]shp.Coordinate{ring})
	}

	for _, hole := range holes {
		if len(groups) == 0 {
			groups = append(groups, [][]shp.Coordinate{hole})
			continue
		}
		owner := len(groups) - 1
		for i, g := range groups {
			if contains(g[0], hole[0]) {
				owner = i
				break
			}
		}
		groups[owner] = append(groups[owner], hole)
	}
	return groups
}

// contains is an even-odd ray cast of p against ring.
func contains(ring []shp.Coordinate, p shp.Coordinate) bool {
	in := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			in = !in
		}
	}
	return in
}

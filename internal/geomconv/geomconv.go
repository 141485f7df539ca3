// Package geomconv converts decoded shapefile geometries to go-geom values
// and the interchange encodings built on them.
package geomconv

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
	"go.uber.org/zap"

	"github.com/sells-group/shapecodec/internal/shp"
)

// DefaultSRID is WGS 84, the CRS of Census TIGER/Line shapefiles.
const DefaultSRID = 4326

// Options controls conversion.
type Options struct {
	SRID  int  // 0 leaves the SRID unset
	DropM bool // drop measures, for encodings that cannot carry them
}

// ToGeom converts g, decoded from a file of shape type t, to a go-geom
// geometry. Polylines become MultiLineStrings and polygons MultiPolygons.
// Null and empty geometries return nil, nil.
func ToGeom(g shp.Geometry, t shp.ShapeType, opts Options) (geom.T, error) {
	if shp.IsEmpty(g) {
		return nil, nil
	}
	layout := layoutFor(t, shp.Coordinates(g), opts.DropM)

	var out geom.T
	switch g := g.(type) {
	case shp.Point:
		out = geom.NewPointFlat(layout, flatCoords(layout, []shp.Coordinate{g.Coordinate})).SetSRID(opts.SRID)
	case shp.MultiPoint:
		out = geom.NewMultiPointFlat(layout, flatCoords(layout, g.Points)).SetSRID(opts.SRID)
	case shp.PolyLine:
		mls, err := toMultiLineString(layout, g.Parts)
		if err != nil {
			return nil, err
		}
		out = mls.SetSRID(opts.SRID)
	case shp.Polygon:
		mp, err := toMultiPolygon(layout, g.Rings)
		if err != nil {
			return nil, err
		}
		out = mp.SetSRID(opts.SRID)
	default:
		return nil, eris.Errorf("geomconv: unsupported geometry %T", g)
	}
	return out, nil
}

// layoutFor picks the go-geom layout for a shape type. Z files only get an M
// ordinate when some coordinate carries a measure.
func layoutFor(t shp.ShapeType, coords []shp.Coordinate, dropM bool) geom.Layout {
	hasM := false
	if !dropM {
		for _, c := range coords {
			if shp.HasMeasure(c.M) {
				hasM = true
				break
			}
		}
	}
	switch {
	case t.HasZ() && hasM:
		return geom.XYZM
	case t.HasZ():
		return geom.XYZ
	case t.HasM() && !dropM:
		return geom.XYM
	default:
		return geom.XY
	}
}

// flatCoords lays coordinates out flat for go-geom. Missing Z becomes 0 and
// missing M becomes NaN.
func flatCoords(layout geom.Layout, coords []shp.Coordinate) []float64 {
	flat := make([]float64, 0, len(coords)*layout.Stride())
	for _, c := range coords {
		flat = append(flat, c.X, c.Y)
		if layout.ZIndex() >= 0 {
			z := c.Z
			if math.IsNaN(z) {
				z = 0
			}
			flat = append(flat, z)
		}
		if layout.MIndex() >= 0 {
			m := c.M
			if !shp.HasMeasure(m) {
				m = math.NaN()
			}
			flat = append(flat, m)
		}
	}
	return flat
}

func toMultiLineString(layout geom.Layout, parts [][]shp.Coordinate) (*geom.MultiLineString, error) {
	mls := geom.NewMultiLineString(layout)
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		ls := geom.NewLineStringFlat(layout, flatCoords(layout, part))
		if err := mls.Push(ls); err != nil {
			zap.L().Debug("geomconv: skipping malformed linestring part", zap.Int("part", i), zap.Error(err))
			continue
		}
	}
	if mls.NumLineStrings() == 0 {
		return nil, eris.New("geomconv: polyline has no usable parts")
	}
	return mls, nil
}

func toMultiPolygon(layout geom.Layout, rings [][]shp.Coordinate) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(layout)
	for i, group := range GroupRings(rings) {
		poly := geom.NewPolygon(layout)
		for _, ring := range group {
			if err := poly.Push(geom.NewLinearRingFlat(layout, flatCoords(layout, ring))); err != nil {
				return nil, eris.Wrapf(err, "geomconv: polygon %d", i)
			}
		}
		if err := mp.Push(poly); err != nil {
			return nil, eris.Wrapf(err, "geomconv: polygon %d", i)
		}
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.New("geomconv: polygon has no usable rings")
	}
	return mp, nil
}

// EncodeWKB returns g as little-endian EWKB. Null geometries return nil, nil.
func EncodeWKB(g shp.Geometry, t shp.ShapeType, srid int) ([]byte, error) {
	gt, err := ToGeom(g, t, Options{SRID: srid})
	if err != nil || gt == nil {
		return nil, err
	}
	data, err := ewkb.Marshal(gt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "geomconv: encode WKB")
	}
	return data, nil
}

// EncodeWKT returns g as WKT. Null geometries return "".
func EncodeWKT(g shp.Geometry, t shp.ShapeType) (string, error) {
	gt, err := ToGeom(g, t, Options{})
	if err != nil || gt == nil {
		return "", err
	}
	s, err := wkt.Marshal(gt)
	if err != nil {
		return "", eris.Wrap(err, "geomconv: encode WKT")
	}
	return s, nil
}

// EncodeGeoJSON returns g as a GeoJSON geometry object. Measures are dropped.
// Null geometries encode as JSON null.
func EncodeGeoJSON(g shp.Geometry, t shp.ShapeType) ([]byte, error) {
	gt, err := ToGeom(g, t, Options{DropM: true})
	if err != nil {
		return nil, err
	}
	if gt == nil {
		return []byte("null"), nil
	}
	data, err := geojson.Marshal(gt)
	if err != nil {
		return nil, eris.Wrap(err, "geomconv: encode GeoJSON")
	}
	return data, nil
}

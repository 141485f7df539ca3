package shp

import "math"

// NoMeasure is the value written for a missing M. Readers treat anything
// below -1e38 as missing.
const NoMeasure = -1.0e40

const noDataThreshold = -1.0e38

// HasMeasure reports whether m is a real measure rather than the no-data
// sentinel.
func HasMeasure(m float64) bool {
	return !math.IsNaN(m) && m > noDataThreshold
}

// Coordinate is a position with optional Z and M. Z is NaN when absent and M
// is NoMeasure when absent.
type Coordinate struct {
	X, Y, Z, M float64
}

// XY returns a two-dimensional coordinate.
func XY(x, y float64) Coordinate {
	return Coordinate{X: x, Y: y, Z: math.NaN(), M: NoMeasure}
}

// XYZ returns a coordinate with elevation and no measure.
func XYZ(x, y, z float64) Coordinate {
	return Coordinate{X: x, Y: y, Z: z, M: NoMeasure}
}

// XYM returns a measured coordinate without elevation.
func XYM(x, y, m float64) Coordinate {
	return Coordinate{X: x, Y: y, Z: math.NaN(), M: m}
}

// XYZM returns a coordinate with all four ordinates.
func XYZM(x, y, z, m float64) Coordinate {
	return Coordinate{X: x, Y: y, Z: z, M: m}
}

// Geometry is one decoded record. The set of implementations is closed:
// Null, Point, MultiPoint, PolyLine and Polygon.
type Geometry interface {
	Kind() Kind
	geometry()
}

// Null is the empty geometry. Every handler decodes a type 0 record to Null
// and encodes Null as a bare type marker.
type Null struct{}

// Point is a single coordinate.
type Point struct {
	Coordinate
}

// MultiPoint is an unordered set of coordinates.
type MultiPoint struct {
	Points []Coordinate
}

// PolyLine is an ordered list of line strings.
type PolyLine struct {
	Parts [][]Coordinate
}

// Polygon is an ordered list of linear rings. Which rings are shells and
// which are holes is left to the caller.
type Polygon struct {
	Rings [][]Coordinate
}

func (Null) Kind() Kind { return KindNull }
func (Point) Kind() Kind { return KindPoint }
func (MultiPoint) Kind() Kind { return KindMultiPoint }
func (PolyLine) Kind() Kind { return KindPolyLine }
func (Polygon) Kind() Kind { return KindPolygon }

func (Null) geometry() {}
func (Point) geometry() {}
func (MultiPoint) geometry() {}
func (PolyLine) geometry() {}
func (Polygon) geometry() {}

// IsEmpty reports whether g encodes as a null record.
func IsEmpty(g Geometry) bool {
	switch g := g.(type) {
	case nil, Null:
		return true
	case Point:
		return false
	case MultiPoint:
		return len(g.Points) == 0
	case PolyLine:
		return countPoints(g.Parts) == 0
	case Polygon:
		return countPoints(g.Rings) == 0
	default:
		return true
	}
}

// Coordinates returns the points of g in wire order, flattening parts.
func Coordinates(g Geometry) []Coordinate {
	switch g := g.(type) {
	case Point:
		return []Coordinate{g.Coordinate}
	case MultiPoint:
		return g.Points
	case PolyLine:
		return flatten(g.Parts)
	case Polygon:
		return flatten(g.Rings)
	default:
		return nil
	}
}

func countPoints(parts [][]Coordinate) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n
}

func flatten(parts [][]Coordinate) []Coordinate {
	out := make([]Coordinate, 0, countPoints(parts))
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Envelope is an axis-aligned bounding box.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
}

// Range is a min/max pair for Z or M.
type Range struct {
	Min, Max float64
}

// extent accumulates bounds over coordinates. Z values that are NaN count as
// 0 because that is what gets written; M values only count when present.
type extent struct {
	xy    Envelope
	z, m  Range
	hasXY bool
	hasZ  bool
	hasM  bool
}

func (e *extent) add(c Coordinate) {
	if !e.hasXY {
		e.xy = Envelope{MinX: c.X, MinY: c.Y, MaxX: c.X, MaxY: c.Y}
		e.hasXY = true
	} else {
		e.xy.MinX = math.Min(e.xy.MinX, c.X)
		e.xy.MinY = math.Min(e.xy.MinY, c.Y)
		e.xy.MaxX = math.Max(e.xy.MaxX, c.X)
		e.xy.MaxY = math.Max(e.xy.MaxY, c.Y)
	}

	z := zValue(c.Z)
	if !e.hasZ {
		e.z = Range{Min: z, Max: z}
		e.hasZ = true
	} else {
		e.z.Min = math.Min(e.z.Min, z)
		e.z.Max = math.Max(e.z.Max, z)
	}

	if HasMeasure(c.M) {
		if !e.hasM {
			e.m = Range{Min: c.M, Max: c.M}
			e.hasM = true
		} else {
			e.m.Min = math.Min(e.m.Min, c.M)
			e.m.Max = math.Max(e.m.Max, c.M)
		}
	}
}

func (e *extent) addAll(cs []Coordinate) {
	for _, c := range cs {
		e.add(c)
	}
}

// measureRange returns the M range, or the no-data sentinel for both ends
// when no coordinate carries a measure.
func (e *extent) measureRange() Range {
	if !e.hasM {
		return Range{Min: NoMeasure, Max: NoMeasure}
	}
	return e.m
}

// Bounds returns the XY envelope of g. Empty geometries have a zero
// envelope.
func Bounds(g Geometry) Envelope {
	var e extent
	e.addAll(Coordinates(g))
	return e.xy
}

func zValue(z float64) float64 {
	if math.IsNaN(z) {
		return 0
	}
	return z
}

func mValue(m float64) float64 {
	if !HasMeasure(m) {
		return NoMeasure
	}
	return m
}

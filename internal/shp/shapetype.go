package shp

import "fmt"

// ShapeType is the integer code identifying a geometry kind and its
// dimensionality.
type ShapeType int32

// Shape types defined by the ESRI Shapefile Technical Description.
const (
	TypeNull        ShapeType = 0
	TypePoint       ShapeType = 1
	TypePolyLine    ShapeType = 3
	TypePolygon     ShapeType = 5
	TypeMultiPoint  ShapeType = 8
	TypePointZ      ShapeType = 11
	TypePolyLineZ   ShapeType = 13
	TypePolygonZ    ShapeType = 15
	TypeMultiPointZ ShapeType = 18
	TypePointM      ShapeType = 21
	TypePolyLineM   ShapeType = 23
	TypePolygonM    ShapeType = 25
	TypeMultiPointM ShapeType = 28
	TypeMultiPatch  ShapeType = 31
)

// Kind groups shape types that share a wire layout.
type Kind int

// Geometry kinds.
const (
	KindUnknown Kind = iota
	KindNull
	KindPoint
	KindMultiPoint
	KindPolyLine
	KindPolygon
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindPoint:
		return "point"
	case KindMultiPoint:
		return "multipoint"
	case KindPolyLine:
		return "polyline"
	case KindPolygon:
		return "polygon"
	default:
		return "unknown"
	}
}

// Kind returns the wire layout family of t.
func (t ShapeType) Kind() Kind {
	switch t {
	case TypeNull:
		return KindNull
	case TypePoint, TypePointZ, TypePointM:
		return KindPoint
	case TypeMultiPoint, TypeMultiPointZ, TypeMultiPointM:
		return KindMultiPoint
	case TypePolyLine, TypePolyLineZ, TypePolyLineM:
		return KindPolyLine
	case TypePolygon, TypePolygonZ, TypePolygonM:
		return KindPolygon
	default:
		return KindUnknown
	}
}

// Valid reports whether t has a handler.
func (t ShapeType) Valid() bool {
	return t.Kind() != KindUnknown
}

// HasZ reports whether records of type t carry Z values.
func (t ShapeType) HasZ() bool {
	switch t {
	case TypePointZ, TypePolyLineZ, TypePolygonZ, TypeMultiPointZ:
		return true
	}
	return false
}

// HasM reports whether records of type t always carry an M block. Z types may
// carry one too, depending on the record length.
func (t ShapeType) HasM() bool {
	switch t {
	case TypePointM, TypePolyLineM, TypePolygonM, TypeMultiPointM:
		return true
	}
	return false
}

func (t ShapeType) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypePoint:
		return "Point"
	case TypePolyLine:
		return "PolyLine"
	case TypePolygon:
		return "Polygon"
	case TypeMultiPoint:
		return "MultiPoint"
	case TypePointZ:
		return "PointZ"
	case TypePolyLineZ:
		return "PolyLineZ"
	case TypePolygonZ:
		return "PolygonZ"
	case TypeMultiPointZ:
		return "MultiPointZ"
	case TypePointM:
		return "PointM"
	case TypePolyLineM:
		return "PolyLineM"
	case TypePolygonM:
		return "PolygonM"
	case TypeMultiPointM:
		return "MultiPointM"
	case TypeMultiPatch:
		return "MultiPatch"
	default:
		return fmt.Sprintf("ShapeType(%d)", int32(t))
	}
}

package shp

import (
	"encoding/binary"

	"go.uber.org/zap"
)

// Header constants from the ESRI Shapefile Technical Description.
const (
	FileCode    = 9994
	Version     = 1000
	HeaderBytes = 100
	HeaderWords = HeaderBytes / 2

	// recordHeaderWords is the size of a record number plus content length.
	recordHeaderWords = 4
)

// Header is the 100-byte header shared by .shp and .shx files. Lengths are
// in 16-bit words. ZRange and MRange are advisory.
type Header struct {
	FileCode   int32
	FileLength int32
	Version    int32
	ShapeType  ShapeType
	Bounds     Envelope
	ZRange     Range
	MRange     Range
}

// NewHeader computes the .shp header for geoms written as type t. It scans
// the geometries once for the bounds, the Z and M ranges and the file
// length.
func NewHeader(t ShapeType, geoms []Geometry) Header {
	h := Handler{Type: t}
	length := int64(HeaderWords)
	var e extent
	for _, g := range geoms {
		length += recordHeaderWords + int64(h.Length(g))
		if !IsEmpty(g) {
			e.addAll(Coordinates(g))
		}
	}

	hdr := Header{
		FileCode:   FileCode,
		FileLength: int32(length),
		Version:    Version,
		ShapeType:  t,
		Bounds:     e.xy,
		MRange:     e.measureRange(),
	}
	if t.HasZ() {
		hdr.ZRange = e.z
	}
	if !t.HasZ() && !t.HasM() {
		hdr.MRange = Range{}
	}
	return hdr
}

// IndexHeader returns the .shx header matching a .shp header for count
// records.
func (h Header) IndexHeader(count int) Header {
	h.FileLength = int32(HeaderWords + recordHeaderWords*count)
	return h
}

// ReadHeader decodes a 100-byte header from s. A file code other than 9994 is
// logged and otherwise ignored. s is left in little-endian order.
func ReadHeader(s *Stream) (Header, error) {
	var h Header
	var err error

	s.SetOrder(binary.BigEndian)
	if h.FileCode, err = s.ReadInt32(); err != nil {
		return h, err
	}
	if h.FileCode != FileCode {
		zap.L().Warn("shp: unexpected file code",
			zap.Int32("file_code", h.FileCode),
			zap.Int32("want", FileCode),
		)
	}
	for i := 0; i < 5; i++ {
		if _, err := s.ReadInt32(); err != nil {
			return h, err
		}
	}
	if h.FileLength, err = s.ReadInt32(); err != nil {
		return h, err
	}

	s.SetOrder(binary.LittleEndian)
	if h.Version, err = s.ReadInt32(); err != nil {
		return h, err
	}
	t, err := s.ReadInt32()
	if err != nil {
		return h, err
	}
	h.ShapeType = ShapeType(t)

	vs, err := readFloats(s, 8)
	if err != nil {
		return h, err
	}
	h.Bounds = Envelope{MinX: vs[0], MinY: vs[1], MaxX: vs[2], MaxY: vs[3]}
	h.ZRange = Range{Min: vs[4], Max: vs[5]}
	h.MRange = Range{Min: vs[6], Max: vs[7]}
	return h, nil
}

// WriteHeader encodes h to w. The file code and version are always the
// standard values. w is left in little-endian order.
func WriteHeader(w *StreamWriter, h Header) error {
	w.SetOrder(binary.BigEndian)
	w.WriteInt32(FileCode)
	for i := 0; i < 5; i++ {
		w.WriteInt32(0)
	}
	w.WriteInt32(h.FileLength)

	w.SetOrder(binary.LittleEndian)
	w.WriteInt32(Version)
	w.WriteInt32(int32(h.ShapeType))
	for _, v := range []float64{
		h.Bounds.MinX, h.Bounds.MinY, h.Bounds.MaxX, h.Bounds.MaxY,
		h.ZRange.Min, h.ZRange.Max, h.MRange.Min, h.MRange.Max,
	} {
		w.WriteFloat64(v)
	}
	return w.Err()
}

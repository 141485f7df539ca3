package shp

import "encoding/binary"

// Handler decodes and encodes the content of records of one shape type.
// The zero value handles null records.
type Handler struct {
	Type ShapeType
}

// HandlerFor returns the handler for t.
func HandlerFor(t ShapeType) (Handler, error) {
	if !t.Valid() {
		return Handler{}, &UnsupportedShapeTypeError{Type: t}
	}
	return Handler{Type: t}, nil
}

// Empty returns the geometry a failed or null record degrades to.
func (h Handler) Empty() Geometry {
	return Null{}
}

// Decode reads one record's content of contentWords 16-bit words from s.
// Exactly contentWords words are consumed unless s ends first: anything the
// layout does not account for is skipped 16 bits at a time.
func (h Handler) Decode(s *Stream, contentWords int32) (Geometry, error) {
	if contentWords < 0 {
		return nil, malformed("negative content length %d", contentWords)
	}
	sub := s.section(int64(contentWords) * 2)
	defer s.absorb(sub)

	g, err := h.decodeContent(sub, contentWords)
	for err == nil && sub.Words() < int64(contentWords) {
		err = sub.Skip16()
	}
	if err != nil {
		// Leave s at the next record boundary even when the content is bad.
		if derr := sub.drain(); derr != nil {
			return nil, derr
		}
		return nil, err
	}
	return g, nil
}

func (h Handler) decodeContent(s *Stream, contentWords int32) (Geometry, error) {
	raw, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	t := ShapeType(raw)
	if t == TypeNull {
		return h.Empty(), nil
	}
	if t != h.Type {
		return nil, &ShapeTypeMismatchError{Want: h.Type, Got: t}
	}

	switch h.Type.Kind() {
	case KindPoint:
		return h.decodePoint(s, contentWords)
	case KindMultiPoint:
		return h.decodeMultiPoint(s, contentWords)
	case KindPolyLine, KindPolygon:
		return h.decodePoly(s, contentWords)
	default:
		return nil, &UnsupportedShapeTypeError{Type: h.Type}
	}
}

func (h Handler) decodePoint(s *Stream, contentWords int32) (Geometry, error) {
	xy, err := readFloats(s, 2)
	if err != nil {
		return nil, err
	}
	c := XY(xy[0], xy[1])

	base := pointBytes
	if h.Type.HasZ() {
		if c.Z, err = s.ReadFloat64(); err != nil {
			return nil, err
		}
		base += ordinateBytes
	}

	if h.Type.HasM() || (h.Type.HasZ() && optionalBlock(contentWords, base, ordinateBytes, 1, false)) {
		m, err := s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		c.M = mValue(m)
	}
	return Point{Coordinate: c}, nil
}

func (h Handler) decodeMultiPoint(s *Stream, contentWords int32) (Geometry, error) {
	if _, err := readFloats(s, 4); err != nil {
		return nil, err
	}
	n, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, malformed("negative point count %d", n)
	}
	base := multiPointBase + 16*int(n)
	if int64(base) > int64(contentWords)*2 {
		return nil, malformed("%d points do not fit in %d words", n, contentWords)
	}

	points, err := readXYs(s, int(n))
	if err != nil {
		return nil, err
	}
	if err := h.decodeZM(s, contentWords, base, points); err != nil {
		return nil, err
	}
	if n == 0 {
		return h.Empty(), nil
	}
	return MultiPoint{Points: points}, nil
}

func (h Handler) decodePoly(s *Stream, contentWords int32) (Geometry, error) {
	if _, err := readFloats(s, 4); err != nil {
		return nil, err
	}
	numParts, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	numPoints, err := s.ReadInt32()
	if err != nil {
		return nil, err
	}
	if numParts < 0 || numPoints < 0 {
		return nil, malformed("negative counts: %d parts, %d points", numParts, numPoints)
	}
	base := polyBase + 4*int(numParts) + 16*int(numPoints)
	if int64(base) > int64(contentWords)*2 {
		return nil, malformed("%d parts and %d points do not fit in %d words", numParts, numPoints, contentWords)
	}
	if numParts == 0 && numPoints > 0 {
		return nil, malformed("%d points without parts", numPoints)
	}

	starts := make([]int, 0, min(int(numParts), maxPrealloc))
	for range numParts {
		v, err := s.ReadInt32()
		if err != nil {
			return nil, err
		}
		starts = append(starts, int(v))
	}
	if err := checkParts(starts, int(numPoints)); err != nil {
		return nil, err
	}

	points, err := readXYs(s, int(numPoints))
	if err != nil {
		return nil, err
	}
	if err := h.decodeZM(s, contentWords, base, points); err != nil {
		return nil, err
	}
	if numPoints == 0 {
		return h.Empty(), nil
	}

	parts := splitParts(points, starts)
	if h.Type.Kind() == KindPolygon {
		return Polygon{Rings: parts}, nil
	}
	return PolyLine{Parts: parts}, nil
}

// decodeZM reads the Z block of Z records and, when the declared length has
// room for it, the M block of Z and M records. base is the size of
// everything before the Z block.
func (h Handler) decodeZM(s *Stream, contentWords int32, base int, points []Coordinate) error {
	n := len(points)
	if h.Type.HasZ() {
		zs, err := readBlock(s, n)
		if err != nil {
			return err
		}
		for i, z := range zs {
			points[i].Z = z
		}
		base += blockBytes(n)
	}
	if !h.Type.HasZ() && !h.Type.HasM() {
		return nil
	}
	if !optionalBlock(contentWords, base, ordinateBytes, n, true) {
		return nil
	}
	ms, err := readBlock(s, n)
	if err != nil {
		return err
	}
	for i, m := range ms {
		points[i].M = mValue(m)
	}
	return nil
}

func checkParts(starts []int, numPoints int) error {
	for i, start := range starts {
		switch {
		case i == 0 && start != 0:
			return malformed("first part starts at %d", start)
		case start < 0 || start > numPoints:
			return malformed("part %d starts at %d of %d points", i, start, numPoints)
		case i > 0 && start < starts[i-1]:
			return malformed("part %d starts before part %d", i, i-1)
		}
	}
	return nil
}

// splitParts cuts the flat point array at each start; the last part runs to
// the end.
func splitParts(points []Coordinate, starts []int) [][]Coordinate {
	parts := make([][]Coordinate, len(starts))
	for i, start := range starts {
		end := len(points)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		parts[i] = points[start:end:end]
	}
	return parts
}

// maxPrealloc caps slice capacity taken from counts in record content, so a
// forged count runs into the end of the stream before memory is committed.
const maxPrealloc = 1 << 16

func readFloats(s *Stream, n int) ([]float64, error) {
	out := make([]float64, 0, min(n, maxPrealloc))
	for range n {
		v, err := s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func readXYs(s *Stream, n int) ([]Coordinate, error) {
	points := make([]Coordinate, 0, min(n, maxPrealloc))
	for range n {
		x, err := s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		y, err := s.ReadFloat64()
		if err != nil {
			return nil, err
		}
		points = append(points, XY(x, y))
	}
	return points, nil
}

// readBlock reads a min/max pair, which is discarded, followed by n values.
func readBlock(s *Stream, n int) ([]float64, error) {
	if _, err := readFloats(s, 2); err != nil {
		return nil, err
	}
	return readFloats(s, n)
}

// Encode writes the record content for g. Empty geometries are written as a
// bare null type marker.
func (h Handler) Encode(g Geometry, w *StreamWriter) error {
	w.SetOrder(binary.LittleEndian)
	if IsEmpty(g) {
		w.WriteInt32(int32(TypeNull))
		return w.Err()
	}
	if err := h.check(g); err != nil {
		return err
	}

	w.WriteInt32(int32(h.Type))
	switch g := g.(type) {
	case Point:
		w.WriteFloat64(g.X)
		w.WriteFloat64(g.Y)
		if h.Type.HasZ() {
			w.WriteFloat64(zValue(g.Z))
		}
		if h.writesM([]Coordinate{g.Coordinate}) {
			w.WriteFloat64(mValue(g.M))
		}
	case MultiPoint:
		writeBox(w, g.Points)
		w.WriteInt32(int32(len(g.Points)))
		h.writePoints(w, g.Points)
	case PolyLine:
		h.writeParts(w, g.Parts)
	case Polygon:
		h.writeParts(w, g.Rings)
	}
	return w.Err()
}

func (h Handler) check(g Geometry) error {
	if g.Kind() != h.Type.Kind() {
		return &ShapeTypeMismatchError{Want: h.Type, Kind: g.Kind().String()}
	}
	return nil
}

func (h Handler) writeParts(w *StreamWriter, parts [][]Coordinate) {
	points := flatten(parts)
	writeBox(w, points)
	w.WriteInt32(int32(len(parts)))
	w.WriteInt32(int32(len(points)))
	start := 0
	for _, p := range parts {
		w.WriteInt32(int32(start))
		start += len(p)
	}
	h.writePoints(w, points)
}

// writePoints writes the XY pairs followed by whichever Z and M blocks the
// shape type calls for.
func (h Handler) writePoints(w *StreamWriter, points []Coordinate) {
	for _, c := range points {
		w.WriteFloat64(c.X)
		w.WriteFloat64(c.Y)
	}

	var e extent
	e.addAll(points)
	if h.Type.HasZ() {
		w.WriteFloat64(e.z.Min)
		w.WriteFloat64(e.z.Max)
		for _, c := range points {
			w.WriteFloat64(zValue(c.Z))
		}
	}
	if h.writesM(points) {
		mr := e.measureRange()
		w.WriteFloat64(mr.Min)
		w.WriteFloat64(mr.Max)
		for _, c := range points {
			w.WriteFloat64(mValue(c.M))
		}
	}
}

func writeBox(w *StreamWriter, points []Coordinate) {
	var e extent
	e.addAll(points)
	w.WriteFloat64(e.xy.MinX)
	w.WriteFloat64(e.xy.MinY)
	w.WriteFloat64(e.xy.MaxX)
	w.WriteFloat64(e.xy.MaxY)
}

// writesM reports whether an M block is written for points. M records always
// carry one; Z records only when some point has a measure.
func (h Handler) writesM(points []Coordinate) bool {
	if h.Type.HasM() {
		return true
	}
	if !h.Type.HasZ() {
		return false
	}
	for _, c := range points {
		if HasMeasure(c.M) {
			return true
		}
	}
	return false
}

// Length returns the content length in 16-bit words that Encode writes for g.
func (h Handler) Length(g Geometry) int32 {
	if IsEmpty(g) {
		return typeBytes / 2
	}
	var bytes int
	switch g := g.(type) {
	case Point:
		bytes = pointBytes
		if h.Type.HasZ() {
			bytes += ordinateBytes
		}
		if h.writesM([]Coordinate{g.Coordinate}) {
			bytes += ordinateBytes
		}
	case MultiPoint:
		bytes = multiPointBase + h.pointsBytes(g.Points)
	case PolyLine:
		bytes = polyBase + 4*len(g.Parts) + h.pointsBytes(flatten(g.Parts))
	case Polygon:
		bytes = polyBase + 4*len(g.Rings) + h.pointsBytes(flatten(g.Rings))
	}
	return int32(bytes / 2)
}

func (h Handler) pointsBytes(points []Coordinate) int {
	n := len(points)
	bytes := 2 * ordinateBytes * n
	if h.Type.HasZ() {
		bytes += blockBytes(n)
	}
	if h.writesM(points) {
		bytes += blockBytes(n)
	}
	return bytes
}

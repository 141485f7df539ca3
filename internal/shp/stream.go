package shp

import (
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/rotisserie/eris"
)

// Stream reads fixed-size values from an io.Reader in a byte order that can
// change between reads. The shapefile header switches from big to little
// endian part way through, and every record header does the same.
type Stream struct {
	r     io.Reader
	order binary.ByteOrder
	bytes int64
	buf   [8]byte
}

// NewStream returns a big-endian Stream over r.
func NewStream(r io.Reader) *Stream {
	return &Stream{r: r, order: binary.BigEndian}
}

// SetOrder switches the byte order used by subsequent reads.
func (s *Stream) SetOrder(order binary.ByteOrder) {
	s.order = order
}

// Order returns the current byte order.
func (s *Stream) Order() binary.ByteOrder {
	return s.order
}

// Words returns the number of 16-bit words consumed so far.
func (s *Stream) Words() int64 {
	return s.bytes / 2
}

func (s *Stream) fill(p []byte) error {
	n, err := io.ReadFull(s.r, p)
	s.bytes += int64(n)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TruncatedStreamError{Need: len(p), Got: n}
	}
	return eris.Wrap(err, "shp: read stream")
}

// ReadInt32 reads a two's-complement 32-bit integer.
func (s *Stream) ReadInt32() (int32, error) {
	if err := s.fill(s.buf[:4]); err != nil {
		return 0, err
	}
	return int32(s.order.Uint32(s.buf[:4])), nil
}

// ReadFloat64 reads an IEEE-754 double.
func (s *Stream) ReadFloat64() (float64, error) {
	if err := s.fill(s.buf[:8]); err != nil {
		return 0, err
	}
	return math.Float64frombits(s.order.Uint64(s.buf[:8])), nil
}

// Skip16 reads and discards one 16-bit word.
func (s *Stream) Skip16() error {
	return s.fill(s.buf[:2])
}

// ReadBytes reads exactly n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, malformed("negative read of %d bytes", n)
	}
	p := make([]byte, n)
	if err := s.fill(p); err != nil {
		return nil, err
	}
	return p, nil
}

// section returns a little-endian stream over the next n bytes of s. The
// bytes it consumes count towards s once the caller calls s.absorb.
func (s *Stream) section(n int64) *Stream {
	return &Stream{r: io.LimitReader(s.r, n), order: binary.LittleEndian}
}

// drain discards whatever is left of a section. Running out of input is not
// an error; the caller compares Words against the section length.
func (s *Stream) drain() error {
	n, err := io.Copy(io.Discard, s.r)
	s.bytes += n
	if err != nil {
		return eris.Wrap(err, "shp: drain record")
	}
	return nil
}

func (s *Stream) absorb(sub *Stream) {
	s.bytes += sub.bytes
}

// StreamWriter is the write side of Stream. The first write error sticks:
// later writes are dropped and Err reports it.
type StreamWriter struct {
	w     io.Writer
	order binary.ByteOrder
	bytes int64
	err   error
	buf   [8]byte
}

// NewStreamWriter returns a big-endian StreamWriter over w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return &StreamWriter{w: w, order: binary.BigEndian}
}

// SetOrder switches the byte order used by subsequent writes.
func (s *StreamWriter) SetOrder(order binary.ByteOrder) {
	s.order = order
}

// Words returns the number of 16-bit words written so far.
func (s *StreamWriter) Words() int64 {
	return s.bytes / 2
}

// Err returns the first write error.
func (s *StreamWriter) Err() error {
	return s.err
}

func (s *StreamWriter) flush(p []byte) {
	if s.err != nil {
		return
	}
	n, err := s.w.Write(p)
	s.bytes += int64(n)
	if err != nil {
		s.err = eris.Wrap(err, "shp: write stream")
	}
}

// WriteInt32 writes a two's-complement 32-bit integer.
func (s *StreamWriter) WriteInt32(v int32) {
	s.order.PutUint32(s.buf[:4], uint32(v))
	s.flush(s.buf[:4])
}

// WriteFloat64 writes an IEEE-754 double.
func (s *StreamWriter) WriteFloat64(v float64) {
	s.order.PutUint64(s.buf[:8], math.Float64bits(v))
	s.flush(s.buf[:8])
}

package shp

import (
	"encoding/binary"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RecordReference locates one record in a .shp file. Offset points at the
// record header; Length is the content length. Both are in 16-bit words.
type RecordReference struct {
	Offset int32
	Length int32
}

// ByteOffset returns the record header position in bytes.
func (r RecordReference) ByteOffset() int64 {
	return int64(r.Offset) * 2
}

// ByteLength returns the content length in bytes.
func (r RecordReference) ByteLength() int64 {
	return int64(r.Length) * 2
}

// ReadIndex decodes a .shx stream. The number of entries comes from the
// header's file length; if the stream ends first the entries read so far are
// returned.
func ReadIndex(r io.Reader) (Header, []RecordReference, error) {
	s := NewStream(r)
	h, err := ReadHeader(s)
	if err != nil {
		return h, nil, eris.Wrap(err, "shp: read index header")
	}

	count := (int64(h.FileLength) - HeaderWords) / recordHeaderWords
	if count < 0 {
		return h, nil, eris.Wrapf(malformed("index file length %d", h.FileLength), "shp: read index")
	}

	s.SetOrder(binary.BigEndian)
	refs := make([]RecordReference, 0, min(count, maxPrealloc))
	for i := int64(0); i < count; i++ {
		offset, err := s.ReadInt32()
		if err == nil {
			var length int32
			length, err = s.ReadInt32()
			if err == nil {
				refs = append(refs, RecordReference{Offset: offset, Length: length})
				continue
			}
		}
		if IsTruncated(err) {
			zap.L().Warn("shp: index shorter than its header declares",
				zap.Int64("declared", count),
				zap.Int("read", len(refs)),
			)
			break
		}
		return h, refs, eris.Wrap(err, "shp: read index entry")
	}
	return h, refs, nil
}

// WriteIndex encodes h followed by refs. h.FileLength is rewritten to match
// len(refs).
func WriteIndex(w io.Writer, h Header, refs []RecordReference) error {
	sw := NewStreamWriter(w)
	if err := WriteHeader(sw, h.IndexHeader(len(refs))); err != nil {
		return eris.Wrap(err, "shp: write index header")
	}
	sw.SetOrder(binary.BigEndian)
	for _, ref := range refs {
		sw.WriteInt32(ref.Offset)
		sw.WriteInt32(ref.Length)
	}
	return eris.Wrap(sw.Err(), "shp: write index entries")
}

// ScanIndex rebuilds the index of a .shp stream from its record headers
// without decoding any content. It stops where a sequential read would: at
// the end of the stream, at an out-of-sequence record number or at a
// record with no content. A record cut short by the end of the stream is
// left out.
func ScanIndex(src io.Reader) (Header, []RecordReference, error) {
	s := NewStream(src)
	h, err := ReadHeader(s)
	if err != nil {
		return h, nil, eris.Wrap(err, "shp: read header")
	}

	var refs []RecordReference
	for next := int32(1); ; next++ {
		offset := int32(s.Words())
		s.SetOrder(binary.BigEndian)
		num, err := s.ReadInt32()
		if err != nil {
			return h, refs, endOfRecords(err)
		}
		length, err := s.ReadInt32()
		if err != nil {
			return h, refs, endOfRecords(err)
		}
		if num != next || length <= 0 {
			return h, refs, nil
		}

		sub := s.section(int64(length) * 2)
		err = sub.drain()
		s.absorb(sub)
		if err != nil {
			return h, refs, err
		}
		if sub.Words() < int64(length) {
			zap.L().Warn("shp: last record is truncated",
				zap.Int32("record", num),
				zap.Int32("content_length", length),
				zap.Int64("available", sub.Words()),
			)
			return h, refs, nil
		}
		refs = append(refs, RecordReference{Offset: offset, Length: length})
	}
}

package shp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Mode selects how records are located.
type Mode string

// Read modes.
const (
	// ModeAuto reads through the index when one is available.
	ModeAuto Mode = "auto"
	// ModeSequential follows the record headers in the .shp stream.
	ModeSequential Mode = "sequential"
	// ModeIndexed seeks to each record through the .shx offsets.
	ModeIndexed Mode = "indexed"
)

// ParseMode validates a mode name. The empty string means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeSequential, ModeIndexed:
		return m, nil
	default:
		return "", eris.Errorf("shp: unknown read mode %q", s)
	}
}

// Collection is the result of one read: the decoded geometries in record
// order and the number of records that failed to decode. Records holds the
// 1-based record number of each geometry, which runs ahead of the slice
// index once a sequential read has skipped a record.
type Collection struct {
	Header     Header
	Geometries []Geometry
	Records    []int
	Errors     int
}

// ShapeType returns the global shape type from the header.
func (c *Collection) ShapeType() ShapeType {
	return c.Header.ShapeType
}

// Len returns the number of geometries.
func (c *Collection) Len() int {
	return len(c.Geometries)
}

// Number returns the record number of the i-th geometry. Collections built
// without Records are numbered by position.
func (c *Collection) Number(i int) int {
	if len(c.Records) == len(c.Geometries) {
		return c.Records[i]
	}
	return i + 1
}

// Reader decodes shapefiles. The zero value reads sequentially-or-indexed
// (ModeAuto), one record at a time, spooling to the default temp dir.
type Reader struct {
	Mode        Mode
	Concurrency int    // records decoded in parallel in indexed mode
	TempDir     string // where non-seekable .shp sources are spooled
}

// readState is owned by one sequential read.
type readState struct {
	next    int32
	errors  int
	geoms   []Geometry
	numbers []int
	log     *zap.Logger
}

// Read decodes a .shp stream sequentially. Records that fail to decode are
// counted in Errors and left out. The read ends at the end of the stream or
// at the first record header that is out of sequence or has no content.
func (r *Reader) Read(src io.Reader) (*Collection, error) {
	s := NewStream(bufio.NewReader(src))
	hdr, err := ReadHeader(s)
	if err != nil {
		return nil, eris.Wrap(err, "shp: read header")
	}
	h, err := HandlerFor(hdr.ShapeType)
	if err != nil {
		return nil, err
	}

	st := &readState{
		next: 1,
		log:  zap.L().With(zap.String("component", "shp.reader"), zap.Stringer("shape_type", hdr.ShapeType)),
	}
	for {
		more, err := st.record(s, h)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}

	if st.errors > 0 {
		st.log.Warn("shp: records failed to decode",
			zap.Int("errors", st.errors),
			zap.Int("decoded", len(st.geoms)),
		)
	}
	return &Collection{Header: hdr, Geometries: st.geoms, Records: st.numbers, Errors: st.errors}, nil
}

// record reads one record header and its content. It returns false when the
// read is over.
func (st *readState) record(s *Stream, h Handler) (bool, error) {
	s.SetOrder(binary.BigEndian)
	num, err := s.ReadInt32()
	if err != nil {
		return false, endOfRecords(err)
	}
	length, err := s.ReadInt32()
	if err != nil {
		return false, endOfRecords(err)
	}
	if num != st.next || length <= 0 {
		st.log.Debug("shp: record header ends read",
			zap.Int32("record", num),
			zap.Int32("expected", st.next),
			zap.Int32("content_length", length),
		)
		return false, nil
	}
	st.next++

	g, err := h.Decode(s, length)
	switch {
	case err == nil:
		st.geoms = append(st.geoms, g)
		st.numbers = append(st.numbers, int(num))
	case isRecordError(err):
		st.errors++
		st.log.Debug("shp: skipping record", zap.Int32("record", num), zap.Error(err))
	default:
		return false, eris.Wrapf(err, "shp: read record %d", num)
	}
	return true, nil
}

// endOfRecords turns a truncated record header into a clean end of read.
func endOfRecords(err error) error {
	if IsTruncated(err) {
		return nil
	}
	return eris.Wrap(err, "shp: read record header")
}

// ReadIndexed decodes a .shp stream by seeking to each record listed in the
// .shx stream, ignoring the record headers in the .shp itself. Records that
// fail to decode become Null and are counted in Errors, so the result stays
// aligned with the index.
func (r *Reader) ReadIndexed(shpSrc, shxSrc io.Reader) (*Collection, error) {
	_, refs, err := ReadIndex(bufio.NewReader(shxSrc))
	if err != nil {
		return nil, err
	}

	at, release, err := seekable(shpSrc, r.TempDir)
	if err != nil {
		return nil, err
	}
	defer release()

	hdr, err := ReadHeader(NewStream(io.NewSectionReader(at, 0, HeaderBytes)))
	if err != nil {
		return nil, eris.Wrap(err, "shp: read header")
	}
	h, err := HandlerFor(hdr.ShapeType)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "shp.reader"), zap.Stringer("shape_type", hdr.ShapeType))

	geoms := make([]Geometry, len(refs))
	numbers := make([]int, len(refs))
	failed := make([]bool, len(refs))
	var g errgroup.Group
	g.SetLimit(max(r.Concurrency, 1))
	for i, ref := range refs {
		numbers[i] = i + 1
		g.Go(func() error {
			geom, err := decodeAt(at, h, ref)
			if err == nil {
				geoms[i] = geom
				return nil
			}
			if !isRecordError(err) {
				return eris.Wrapf(err, "shp: read record %d", i+1)
			}
			log.Debug("shp: record degraded to null", zap.Int("record", i+1), zap.Error(err))
			geoms[i] = h.Empty()
			failed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	errCount := 0
	for _, f := range failed {
		if f {
			errCount++
		}
	}
	if errCount > 0 {
		log.Warn("shp: records failed to decode", zap.Int("errors", errCount), zap.Int("records", len(refs)))
	}
	return &Collection{Header: hdr, Geometries: geoms, Records: numbers, Errors: errCount}, nil
}

func decodeAt(at io.ReaderAt, h Handler, ref RecordReference) (Geometry, error) {
	if ref.Offset < HeaderWords || ref.Length < 0 {
		return nil, malformed("index entry offset %d length %d", ref.Offset, ref.Length)
	}
	content := io.NewSectionReader(at, ref.ByteOffset()+recordHeaderWords*2, ref.ByteLength())
	return h.Decode(NewStream(content), ref.Length)
}

// Open reads the shapefile at path. A .zip path is searched for the first
// .shp entry. The .shx next to the .shp is used according to r.Mode.
func (r *Reader) Open(path string) (*Collection, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return r.OpenZip(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shp: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	if r.Mode == ModeSequential {
		return r.Read(f)
	}

	x, err := openSibling(path, ".shx")
	switch {
	case err == nil:
		defer x.Close() //nolint:errcheck
		return r.ReadIndexed(f, x)
	case errors.Is(err, fs.ErrNotExist) && r.Mode != ModeIndexed:
		zap.L().Debug("shp: no index, reading sequentially", zap.String("path", path))
		return r.Read(f)
	default:
		return nil, eris.Wrapf(err, "shp: open index for %s", path)
	}
}

// openSibling opens the file next to path with extension ext, trying the
// case of path's own extension first.
func openSibling(path, ext string) (*os.File, error) {
	cur := filepath.Ext(path)
	base := strings.TrimSuffix(path, cur)
	candidates := []string{base + ext, base + strings.ToUpper(ext)}
	if cur == strings.ToUpper(cur) {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	var firstErr error
	for _, name := range candidates {
		f, err := os.Open(name)
		if err == nil {
			return f, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

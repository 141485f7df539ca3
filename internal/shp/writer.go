package shp

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/rotisserie/eris"
)

// Write encodes geoms as a .shp stream of type t and, when shxW is not nil,
// the matching .shx stream. Geometries must be Null or of t's kind.
func Write(shpW, shxW io.Writer, t ShapeType, geoms []Geometry) error {
	h, err := HandlerFor(t)
	if err != nil {
		return err
	}

	hdr := NewHeader(t, geoms)
	bw := bufio.NewWriter(shpW)
	w := NewStreamWriter(bw)
	if err := WriteHeader(w, hdr); err != nil {
		return eris.Wrap(err, "shp: write header")
	}

	refs := make([]RecordReference, 0, len(geoms))
	pos := int64(HeaderWords)
	for i, g := range geoms {
		length := h.Length(g)
		refs = append(refs, RecordReference{Offset: int32(pos), Length: length})
		start := w.Words()

		w.SetOrder(binary.BigEndian)
		w.WriteInt32(int32(i + 1))
		w.WriteInt32(length)
		if err := h.Encode(g, w); err != nil {
			return eris.Wrapf(err, "shp: encode record %d", i+1)
		}

		pos += recordHeaderWords + int64(length)
		if got := w.Words() - start - recordHeaderWords; got != int64(length) {
			return eris.Errorf("shp: record %d wrote %d words, declared %d", i+1, got, length)
		}
	}
	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "shp: flush")
	}

	if shxW == nil {
		return nil
	}
	xw := bufio.NewWriter(shxW)
	if err := WriteIndex(xw, hdr, refs); err != nil {
		return err
	}
	return eris.Wrap(xw.Flush(), "shp: flush index")
}

// Create writes base+".shp" and base+".shx".
func Create(base string, t ShapeType, geoms []Geometry) (err error) {
	shpFile, err := os.Create(base + ".shp")
	if err != nil {
		return eris.Wrap(err, "shp: create .shp")
	}
	defer closeInto(shpFile, &err)

	shxFile, err := os.Create(base + ".shx")
	if err != nil {
		return eris.Wrap(err, "shp: create .shx")
	}
	defer closeInto(shxFile, &err)

	return Write(shpFile, shxFile, t, geoms)
}

func closeInto(f *os.File, err *error) {
	if cerr := f.Close(); cerr != nil && *err == nil {
		*err = eris.Wrapf(cerr, "shp: close %s", f.Name())
	}
}

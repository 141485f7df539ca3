package shp

import (
	"errors"
	"fmt"
)

// TruncatedStreamError reports that fewer bytes remained than a read needed.
type TruncatedStreamError struct {
	Need int
	Got  int
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("shp: truncated stream: need %d bytes, got %d", e.Need, e.Got)
}

// ShapeTypeMismatchError reports a record or geometry whose type differs from
// the one the handler encodes.
type ShapeTypeMismatchError struct {
	Want ShapeType
	Got  ShapeType
	Kind string // set when a geometry value, not a record, is at fault
}

func (e *ShapeTypeMismatchError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("shp: cannot encode %s as %s", e.Kind, e.Want)
	}
	return fmt.Sprintf("shp: record shape type %s does not match %s", e.Got, e.Want)
}

// UnsupportedShapeTypeError reports a shape type with no handler. It is fatal
// when it comes from a file header.
type UnsupportedShapeTypeError struct {
	Type ShapeType
}

func (e *UnsupportedShapeTypeError) Error() string {
	return fmt.Sprintf("shp: unsupported shape type %s", e.Type)
}

// MalformedRecordError reports an arithmetic or length inconsistency inside
// a record.
type MalformedRecordError struct {
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return "shp: malformed record: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedRecordError{Reason: fmt.Sprintf(format, args...)}
}

// IsTruncated returns true if err (or any error in its chain) is a
// TruncatedStreamError.
func IsTruncated(err error) bool {
	var te *TruncatedStreamError
	return errors.As(err, &te)
}

// isRecordError reports whether err belongs to a single record and is
// recovered by the read loop rather than returned.
func isRecordError(err error) bool {
	var (
		te *TruncatedStreamError
		me *ShapeTypeMismatchError
		mr *MalformedRecordError
	)
	return errors.As(err, &te) || errors.As(err, &me) || errors.As(err, &mr)
}

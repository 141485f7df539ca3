package shp

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// seekable returns src as an io.ReaderAt. Sources that cannot seek, such as
// ZIP entries, are copied to a temp file in dir first. release closes and
// removes that file and must be called on every path.
func seekable(src io.Reader, dir string) (io.ReaderAt, func(), error) {
	if at, ok := src.(io.ReaderAt); ok {
		return at, func() {}, nil
	}

	f, err := os.CreateTemp(dir, "shp-spool-*.shp")
	if err != nil {
		return nil, nil, eris.Wrap(err, "shp: create spool file")
	}
	release := func() {
		_ = f.Close()
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("shp: remove spool file", zap.String("path", f.Name()), zap.Error(err))
		}
	}

	n, err := io.Copy(f, src)
	if err != nil {
		release()
		return nil, nil, eris.Wrap(err, "shp: spool source")
	}
	zap.L().Debug("shp: spooled non-seekable source", zap.String("path", f.Name()), zap.Int64("bytes", n))
	return f, release, nil
}

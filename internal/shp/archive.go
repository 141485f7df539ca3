package shp

import (
	"archive/zip"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// OpenZip reads the first shapefile found in a ZIP archive, as distributed by
// the Census Bureau and most state GIS portals. ZIP entries cannot seek, so
// indexed reads spool the .shp to a temp file.
func (r *Reader) OpenZip(path string) (*Collection, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shp: open zip %s", path)
	}
	defer zr.Close() //nolint:errcheck

	shpFile := findZipEntry(zr.File, ".shp", "")
	if shpFile == nil {
		return nil, eris.Errorf("shp: no .shp entry in %s", path)
	}
	stem := strings.TrimSuffix(shpFile.Name, filepath.Ext(shpFile.Name))
	shxFile := findZipEntry(zr.File, ".shx", stem)

	src, err := shpFile.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "shp: open zip entry %s", shpFile.Name)
	}
	defer src.Close() //nolint:errcheck

	if shxFile == nil || r.Mode == ModeSequential {
		if r.Mode == ModeIndexed {
			return nil, eris.Errorf("shp: no .shx entry for %s in %s", shpFile.Name, path)
		}
		return r.Read(src)
	}

	idx, err := shxFile.Open()
	if err != nil {
		return nil, eris.Wrapf(err, "shp: open zip entry %s", shxFile.Name)
	}
	defer idx.Close() //nolint:errcheck

	return r.ReadIndexed(src, idx)
}

// findZipEntry returns the first regular entry with extension ext. When stem
// is set the entry must share it.
func findZipEntry(files []*zip.File, ext, stem string) *zip.File {
	for _, f := range files {
		if f.FileInfo().IsDir() || !strings.EqualFold(filepath.Ext(f.Name), ext) {
			continue
		}
		if stem != "" && !strings.EqualFold(strings.TrimSuffix(f.Name, filepath.Ext(f.Name)), stem) {
			continue
		}
		return f
	}
	return nil
}

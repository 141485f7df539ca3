package attrs

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// OEM code pages that WHATWG labels do not cover.
var oemPages = map[int]encoding.Encoding{
	437: charmap.CodePage437,
	850: charmap.CodePage850,
	852: charmap.CodePage852,
	866: charmap.CodePage866,
}

// LookupEncoding resolves a .cpg code page name such as "UTF-8", "1252" or
// "ISO 8859-1". UTF-8 resolves to nil, meaning values are used as stored.
func LookupEncoding(name string) (encoding.Encoding, error) {
	label := strings.ToLower(strings.TrimSpace(name))
	switch label {
	case "", "utf-8", "utf8", "65001":
		return nil, nil
	}

	if n, err := strconv.Atoi(label); err == nil {
		if enc, ok := oemPages[n]; ok {
			return enc, nil
		}
		switch {
		case n >= 1250 && n <= 1258, n == 874:
			label = "windows-" + label
		case n >= 88591 && n <= 885916:
			label = "iso-8859-" + label[4:]
		}
	} else {
		label = strings.NewReplacer(" ", "-", "_", "-").Replace(label)
		if strings.HasPrefix(label, "iso8859") {
			label = "iso-8859" + strings.TrimPrefix(label, "iso8859")
		}
	}

	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "attrs: unsupported code page %q", name)
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return nil, nil
	}
	return enc, nil
}

// readCodePage returns the encoding named by the .cpg file at path. A
// missing file resolves to fallback.
func readCodePage(path, fallback string) (encoding.Encoding, error) {
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return LookupEncoding(fallback)
	case err != nil:
		return nil, eris.Wrapf(err, "attrs: read %s", path)
	}
	return LookupEncoding(string(data))
}

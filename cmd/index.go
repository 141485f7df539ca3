package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/shapecodec/internal/shp"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.shp>",
	Short: "Rebuild the .shx index from the record headers of a .shp",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".shx"
		}
		n, err := rebuildIndex(args[0], out)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d records into %s\n", n, out)
		return nil
	},
}

func init() {
	indexCmd.Flags().String("out", "", "index path (default: next to the .shp)")
	rootCmd.AddCommand(indexCmd)
}

// rebuildIndex scans the .shp at path and writes its index to out.
func rebuildIndex(path, out string) (n int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "index: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	hdr, refs, err := shp.ScanIndex(bufio.NewReader(f))
	if err != nil {
		return 0, err
	}

	x, err := os.Create(out)
	if err != nil {
		return 0, eris.Wrapf(err, "index: create %s", out)
	}
	defer func() {
		if cerr := x.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "index: close %s", out)
		}
	}()

	if err := shp.WriteIndex(x, hdr, refs); err != nil {
		return 0, err
	}
	return len(refs), nil
}

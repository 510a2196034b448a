// Command svsdeid drives the splicer headlessly per §6. It keeps the
// teacher's plain CLI shape (tiff66print, tiff66repack: parse flags,
// report the error on stderr and exit non-zero, nothing fancier) but
// builds its flag tree with cobra, the way hikhvar/exifsorter's
// image-metadata CLI does; cobra prints the returned error and main
// exits with status 1.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hatbry/svs-label-switcher/batch"
	"github.com/hatbry/svs-label-switcher/bigtiff"
	"github.com/hatbry/svs-label-switcher/splice"
)

// Placeholder replacement-image dimensions. Rendering a QR code and
// text lines into RGB pixels is an external collaborator's job per
// §1; the reference implementation's own macro size is a hardcoded
// placeholder too (§9's Design Notes), so these constants follow the
// same spirit rather than leaving the CLI unable to run end-to-end.
const (
	defaultLabelWidth  = 609
	defaultLabelHeight = 567
	defaultMacroWidth  = 1495
	defaultMacroHeight = 606
)

func main() {
	root := &cobra.Command{
		Use:   "svsdeid",
		Short: "De-identify Aperio SVS label and macro sub-images",
	}
	root.AddCommand(singleCmd(), multipleCmd(), inspectCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func singleCmd() *cobra.Command {
	var qr, line1, line2, line3, line4 string
	var removeOriginals bool

	cmd := &cobra.Command{
		Use:   "single slide_path",
		Short: "De-identify a single slide",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := splice.Options{
				RemoveOriginals: removeOriginals,
				Label:           placeholderImage(defaultLabelWidth, defaultLabelHeight, qr, []string{line1, line2, line3, line4}),
				Macro:           placeholderImage(defaultMacroWidth, defaultMacroHeight, "", nil),
			}
			return runSplice(args[0], opts)
		},
	}
	cmd.Flags().StringVar(&qr, "qr", "", "QR code payload text")
	cmd.Flags().StringVar(&line1, "line1", "", "label text line 1")
	cmd.Flags().StringVar(&line2, "line2", "", "label text line 2")
	cmd.Flags().StringVar(&line3, "line3", "", "label text line 3")
	cmd.Flags().StringVar(&line4, "line4", "", "label text line 4")
	cmd.Flags().BoolVar(&removeOriginals, "remove-originals", true, "zero-fill the original label/macro strips before splicing")
	return cmd
}

func multipleCmd() *cobra.Command {
	var slideDir, header string
	var removeOriginals bool

	cmd := &cobra.Command{
		Use:   "multiple sheet_path",
		Short: "De-identify every slide named in a CSV or spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheetPath := args[0]
			var rows []batch.Row
			var warnings []batch.Warning
			var err error
			switch strings.ToLower(filepath.Ext(sheetPath)) {
			case ".xls":
				rows, warnings, err = batch.ReadXLS(sheetPath, header, slideDir)
			default:
				rows, warnings, err = batch.ReadCSV(sheetPath, header, slideDir)
			}
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(os.Stderr, "warning: row %d: %s\n", w.Row, w.Message)
			}
			var failures int
			for _, row := range rows {
				opts := splice.Options{
					RemoveOriginals: removeOriginals,
					Label:           placeholderImage(defaultLabelWidth, defaultLabelHeight, row.QR, []string{row.Line1, row.Line2, row.Line3, row.Line4}),
					Macro:           placeholderImage(defaultMacroWidth, defaultMacroHeight, "", nil),
				}
				if err := runSplice(row.SlidePath, opts); err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", row.SlidePath, err)
					failures++
				}
			}
			if failures > 0 {
				return fmt.Errorf("%d of %d slides failed", failures, len(rows))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slideDir, "slide-dir", "", "directory to resolve relative slide paths against")
	cmd.Flags().StringVar(&header, "header", "File Location", "sheet column holding each slide's path")
	cmd.Flags().BoolVar(&removeOriginals, "remove-originals", true, "zero-fill the original label/macro strips before splicing")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect slide_path",
		Short: "Dump every directory of a slide's BigTIFF chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			stat, err := f.Stat()
			if err != nil {
				return err
			}
			chain, err := bigtiff.ReadDirectoryChain(f, stat.Size())
			if err != nil {
				return err
			}
			chain.Dump(os.Stdout)
			return nil
		},
	}
}

func runSplice(path string, opts splice.Options) error {
	if err := splice.Run(path, opts); err != nil {
		if bterr, ok := err.(*bigtiff.Error); ok {
			return fmt.Errorf("%s: %s", path, bterr.Error())
		}
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// placeholderImage fills a solid-color RGB buffer standing in for
// rendered QR/text content; see the constants above for why this
// exists instead of leaving the CLI unable to run end-to-end.
func placeholderImage(width, height uint32, qr string, lines []string) splice.Image {
	var desc string
	if qr != "" || hasText(lines) {
		desc = fmt.Sprintf("Aperio Leica Biosystems - label %dx%d", width, height)
	}
	pixels := make([]byte, uint64(width)*uint64(height)*3)
	for i := 0; i < len(pixels); i += 3 {
		pixels[i], pixels[i+1], pixels[i+2] = 0xff, 0xff, 0xff
	}
	return splice.Image{Pixels: pixels, Width: width, Height: height, Description: desc}
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if l != "" {
			return true
		}
	}
	return false
}

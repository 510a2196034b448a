// Package splice is the top-level orchestrator described in §4.7: it
// drives slide.Inspect, an optional slide.Redact, subimage.Build and
// subimage.Relocate for the label then the macro, and writes both
// buffers into the slide. Grounded on
// original_source/label_switcher.py's LabelSwitcher.switch_labels.
package splice

import (
	"fmt"
	"os"

	"github.com/hatbry/svs-label-switcher/bigtiff"
	"github.com/hatbry/svs-label-switcher/slide"
	"github.com/hatbry/svs-label-switcher/subimage"
)

// Image is the caller-supplied replacement pixel buffer for one
// sub-image; qr/text rendering into RGB bytes is an external
// collaborator's job, per §1's scope boundary.
type Image struct {
	Pixels      []byte
	Width       uint32
	Height      uint32
	Description string
}

// Options configures a single splice.Run call.
type Options struct {
	RemoveOriginals bool
	Label           Image
	Macro           Image
}

// Run performs a full replace on the slide at path. The file handle is
// reopened once per phase (inspect, optional redact, splice) and
// closed between phases, per §5's resource model; this is not
// transactional, and a failure partway through can leave the slide in
// an indeterminate state, as documented there.
func Run(path string, opts Options) error {
	info, err := inspect(path)
	if err != nil {
		return err
	}
	if info.MacroNextOffset != 0 {
		return bigtiff.NewError(bigtiff.RelocationOutOfRange, "splice.Run", info.MacroDirFileOffset, 0,
			fmt.Errorf("macro directory is not the terminal directory in %s", path))
	}

	if opts.RemoveOriginals {
		if err := redact(path, info); err != nil {
			return err
		}
	}

	labelBuf, err := subimage.Build(subimage.Params{
		Kind:        subimage.Label,
		Pixels:      opts.Label.Pixels,
		Width:       opts.Label.Width,
		Height:      opts.Label.Height,
		Description: opts.Label.Description,
	})
	if err != nil {
		return err
	}
	relocatedLabel, err := subimage.Relocate(labelBuf, subimage.Label, info.LabelDirFileOffset)
	if err != nil {
		return err
	}

	macroBuf, err := subimage.Build(subimage.Params{
		Kind:        subimage.Macro,
		Pixels:      opts.Macro.Pixels,
		Width:       opts.Macro.Width,
		Height:      opts.Macro.Height,
		Description: opts.Macro.Description,
	})
	if err != nil {
		return err
	}
	macroOffset := relocatedLabel.NextIFDAbsolute
	relocatedMacro, err := subimage.Relocate(macroBuf, subimage.Macro, macroOffset)
	if err != nil {
		return err
	}

	return write(path, info.LabelDirFileOffset, relocatedLabel.Buffer, macroOffset, relocatedMacro.Buffer)
}

func inspect(path string) (*slide.Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, bigtiff.NewError(bigtiff.IOError, "splice.inspect", 0, 0, err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, bigtiff.NewError(bigtiff.IOError, "splice.inspect", 0, 0, err)
	}
	return slide.Inspect(f, stat.Size())
}

func redact(path string, info *slide.Info) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return bigtiff.NewError(bigtiff.IOError, "splice.redact", 0, 0, err)
	}
	defer f.Close()
	return slide.Redact(f, info)
}

// write seeks to labelOffset and writes labelBuf from its byte 16
// (skipping the BigTIFF header the buffer carries, because the slide
// already has one), then does the same for the macro at macroOffset.
func write(path string, labelOffset int64, labelBuf []byte, macroOffset int64, macroBuf []byte) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return bigtiff.NewError(bigtiff.IOError, "splice.write", 0, 0, err)
	}
	defer f.Close()
	if _, err := f.WriteAt(labelBuf[bigtiff.BigHeaderSize:], labelOffset); err != nil {
		return bigtiff.NewError(bigtiff.IOError, "splice.write", labelOffset, 0, err)
	}
	if _, err := f.WriteAt(macroBuf[bigtiff.BigHeaderSize:], macroOffset); err != nil {
		return bigtiff.NewError(bigtiff.IOError, "splice.write", macroOffset, 0, err)
	}
	return nil
}

// Package slide uses bigtiff.ReadDirectoryChain on an SVS file to locate
// the label and macro directories and to redact their pixel strips.
// Grounded on original_source/label_switcher.py's BigTiffFile (the
// reference SlideInspector+Redactor) and on the teacher's own
// directory-walking conventions for how results are shaped.
package slide

import (
	"io"
	"os"

	"github.com/hatbry/svs-label-switcher/bigtiff"
)

// Info is everything SlideInspector exposes about a parsed slide's
// final two directories.
type Info struct {
	Chain *bigtiff.Chain

	LabelIndex int // index into Chain.Directories.
	MacroIndex int

	LabelDirFileOffset int64 // absolute file offset where the label directory starts.
	MacroDirFileOffset int64

	LabelStripOffset int64
	LabelStripBytes  int64
	MacroStripOffset int64
	MacroStripBytes  int64

	LabelCompression     uint64
	LabelCompressionName string
	MacroCompression     uint64
	MacroCompressionName string

	LabelWidth         uint32
	LabelHeight        uint32
	LabelBitsPerSample [3]uint16
	LabelRowsPerStrip  uint32

	// MacroNextOffset is the macro directory's own next_ifd pointer in
	// the source file; Splicer must confirm this is 0 before writing,
	// per §4.7's note on buffer-size safety.
	MacroNextOffset int64
}

// Inspect parses r (size bytes long) and identifies the label (N-1) and
// macro (N) directories per §4.2. It returns LabelMacroNotFound if
// either directory is missing the tags the splicer needs to proceed.
func Inspect(r io.ReaderAt, size int64) (*Info, error) {
	chain, err := bigtiff.ReadDirectoryChain(r, size)
	if err != nil {
		return nil, err
	}
	if !chain.BigTIFF {
		return nil, bigtiff.NewError(bigtiff.UnsupportedFormat, "slide.Inspect", 0, 0, nil)
	}
	n := len(chain.Directories)
	if n < 2 {
		return nil, bigtiff.NewError(bigtiff.LabelMacroNotFound, "slide.Inspect", 0, 0, nil)
	}

	labelIdx, macroIdx := n-2, n-1
	labelDir := chain.Directories[labelIdx]
	macroDir := chain.Directories[macroIdx]

	info := &Info{
		Chain:              chain,
		LabelIndex:         labelIdx,
		MacroIndex:         macroIdx,
		LabelDirFileOffset: labelDir.Offset,
		MacroDirFileOffset: macroDir.Offset,
		MacroNextOffset:    macroDir.NextOffset,
	}

	labelStripOff, labelStripLen, err := stripExtent(labelDir, "slide.Inspect")
	if err != nil {
		return nil, err
	}
	macroStripOff, macroStripLen, err := stripExtent(macroDir, "slide.Inspect")
	if err != nil {
		return nil, err
	}
	info.LabelStripOffset, info.LabelStripBytes = labelStripOff, labelStripLen
	info.MacroStripOffset, info.MacroStripBytes = macroStripOff, macroStripLen

	labelComp, ok := labelDir.Find(bigtiff.Compression)
	if !ok {
		return nil, bigtiff.NewError(bigtiff.LabelMacroNotFound, "slide.Inspect", labelDir.Offset, bigtiff.Compression, nil)
	}
	macroComp, ok := macroDir.Find(bigtiff.Compression)
	if !ok {
		return nil, bigtiff.NewError(bigtiff.LabelMacroNotFound, "slide.Inspect", macroDir.Offset, bigtiff.Compression, nil)
	}
	info.LabelCompression = labelComp.Uint(0)
	info.LabelCompressionName = bigtiff.CompressionName(info.LabelCompression)
	info.MacroCompression = macroComp.Uint(0)
	info.MacroCompressionName = bigtiff.CompressionName(info.MacroCompression)

	if w, ok := labelDir.Find(bigtiff.ImageWidth); ok {
		info.LabelWidth = uint32(w.Uint(0))
	}
	if h, ok := labelDir.Find(bigtiff.ImageLength); ok {
		info.LabelHeight = uint32(h.Uint(0))
	}
	if rps, ok := labelDir.Find(bigtiff.RowsPerStrip); ok {
		info.LabelRowsPerStrip = uint32(rps.Uint(0))
	}
	if bps, ok := labelDir.Find(bigtiff.BitsPerSample); ok {
		for i := 0; i < 3 && i < int(bps.Count); i++ {
			info.LabelBitsPerSample[i] = uint16(bps.Uint(i))
		}
	}

	return info, nil
}

func stripExtent(dir bigtiff.Directory, phase string) (offset, length int64, err error) {
	off, ok := dir.Find(bigtiff.StripOffsets)
	if !ok {
		return 0, 0, bigtiff.NewError(bigtiff.LabelMacroNotFound, phase, dir.Offset, bigtiff.StripOffsets, nil)
	}
	count, ok := dir.Find(bigtiff.StripByteCounts)
	if !ok {
		return 0, 0, bigtiff.NewError(bigtiff.LabelMacroNotFound, phase, dir.Offset, bigtiff.StripByteCounts, nil)
	}
	return int64(off.Uint(0)), int64(count.Uint(0)), nil
}

// ReadLabelStrip reads the label's raw strip bytes from r.
func (info *Info) ReadLabelStrip(r io.ReaderAt) ([]byte, error) {
	buf := make([]byte, info.LabelStripBytes)
	if _, err := r.ReadAt(buf, info.LabelStripOffset); err != nil {
		return nil, bigtiff.NewError(bigtiff.IOError, "slide.ReadLabelStrip", info.LabelStripOffset, 0, err)
	}
	return buf, nil
}

// Redact zero-fills the label's and macro's pixel strips in place per
// §4.3. It must run, if at all, before the splice overwrites the
// directories, since the strip offsets it uses come from the
// pre-splice directory layout.
func Redact(f *os.File, info *Info) error {
	if err := zeroRange(f, info.LabelStripOffset, info.LabelStripBytes); err != nil {
		return err
	}
	if err := zeroRange(f, info.MacroStripOffset, info.MacroStripBytes); err != nil {
		return err
	}
	return nil
}

func zeroRange(f *os.File, offset, length int64) error {
	const chunkSize = 1 << 20
	zeros := make([]byte, chunkSize)
	for remaining := length; remaining > 0; {
		n := remaining
		if n > chunkSize {
			n = chunkSize
		}
		if _, err := f.WriteAt(zeros[:n], offset+(length-remaining)); err != nil {
			return bigtiff.NewError(bigtiff.IOError, "slide.Redact", offset, 0, err)
		}
		remaining -= n
	}
	return nil
}

package subimage

import (
	"bytes"
	"encoding/binary"

	"github.com/hatbry/svs-label-switcher/bigtiff"
)

// Relocated is the result of rewriting a freshly built buffer's
// embedded offsets to their absolute position inside a slide.
type Relocated struct {
	Buffer []byte
	// NextIFDAbsolute is set only when relocating a label buffer: the
	// absolute slide offset the macro directory must be placed at,
	// i.e. end_of_buffer + A - 16.
	NextIFDAbsolute int64
}

// Relocate re-parses buf (as produced by Build) and rewrites every
// out-of-line offset, plus tag 273 regardless of size, to the absolute
// position it will occupy once buf's directory (currently at buffer
// offset 16) is placed at absolute slide offset a. Per §4.6 the builder
// emits offsets relative to the buffer's own byte 0, so the adjustment
// applied is a-16.
func Relocate(buf []byte, kind Kind, a int64) (Relocated, error) {
	chain, err := bigtiff.ReadDirectoryChain(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return Relocated{}, err
	}
	if len(chain.Directories) != 1 {
		return Relocated{}, bigtiff.NewError(bigtiff.RelocationOutOfRange, "subimage.Relocate", a, 0, nil)
	}
	dir := chain.Directories[0]
	adjustment := a - 16

	// Every out-of-line value built by this package lives somewhere in
	// [0, len(buf)) before relocation, so after relocation it must fall
	// in [adjustment, adjustment+len(buf)).
	lowerBound := adjustment
	upperBound := adjustment + int64(len(buf))
	out := make([]byte, len(buf))
	copy(out, buf)

	for _, tag := range dir.Order {
		field := dir.Fields[tag]
		if field.PackedSize() <= 8 && tag != bigtiff.StripOffsets {
			continue
		}
		newOffset := int64(field.Slot) + adjustment
		if newOffset < lowerBound || newOffset >= upperBound {
			return Relocated{}, bigtiff.NewError(bigtiff.RelocationOutOfRange, "subimage.Relocate", newOffset, tag, nil)
		}
		binary.LittleEndian.PutUint64(out[field.PreDataOffset:field.PreDataOffset+8], uint64(newOffset))
	}

	result := Relocated{Buffer: out}
	if kind == Label {
		if upperBound < 0 {
			return Relocated{}, bigtiff.NewError(bigtiff.RelocationOutOfRange, "subimage.Relocate", upperBound, 0, nil)
		}
		binary.LittleEndian.PutUint64(out[dir.NextOffsetPos:dir.NextOffsetPos+8], uint64(upperBound))
		result.NextIFDAbsolute = upperBound
	}
	return result, nil
}

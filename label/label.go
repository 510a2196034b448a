// Package label synthesizes a standalone classic-TIFF buffer from a
// slide's label strip bytes and parsed IFD metadata, for preview or
// export per §4.4. Grounded on original_source/utils/tiffwriter.py's
// LabelSaver for the tag set and on the teacher's IFD_T.Put for the
// general out-of-line layout discipline.
package label

import (
	"encoding/binary"

	"github.com/hatbry/svs-label-switcher/bigtiff"
)

// Source is the subset of a label directory's metadata this package
// needs; SlideInspector supplies it from the parsed slide.
type Source struct {
	Width         uint32
	Height        uint32
	BitsPerSample [3]uint16
	Compression   uint16
	RowsPerStrip  uint32
	Strip         []byte
}

type classicEntry struct {
	tag    bigtiff.Tag
	typ    bigtiff.Type
	count  uint32
	inline []byte // <= 4 bytes.
	blob   []byte
	blobAt uint32
	strip  bool
}

// Extract builds a classic little-endian TIFF exposing src.Strip as its
// single directory's one strip, decodable by any standard TIFF reader.
func Extract(src Source) ([]byte, error) {
	if src.Width == 0 || src.Height == 0 {
		return nil, bigtiff.NewError(bigtiff.InvalidParameter, "label.Extract", 0, 0, nil)
	}

	bits := make([]byte, 6)
	binary.LittleEndian.PutUint16(bits[0:2], src.BitsPerSample[0])
	binary.LittleEndian.PutUint16(bits[2:4], src.BitsPerSample[1])
	binary.LittleEndian.PutUint16(bits[4:6], src.BitsPerSample[2])

	entries := []classicEntry{
		{tag: bigtiff.NewSubfileType, typ: bigtiff.Long, count: 1, inline: le32c(1)},
		{tag: bigtiff.ImageWidth, typ: bigtiff.Short, count: 1, inline: le16c(uint16(src.Width))},
		{tag: bigtiff.ImageLength, typ: bigtiff.Short, count: 1, inline: le16c(uint16(src.Height))},
		{tag: bigtiff.BitsPerSample, typ: bigtiff.Short, count: 3, blob: bits},
		{tag: bigtiff.Compression, typ: bigtiff.Short, count: 1, inline: le16c(src.Compression)},
		{tag: bigtiff.PhotometricInterpretation, typ: bigtiff.Short, count: 1, inline: le16c(2)},
		{tag: bigtiff.StripOffsets, typ: bigtiff.Long, count: 1, strip: true},
		{tag: bigtiff.Orientation, typ: bigtiff.Short, count: 1, inline: le16c(3)},
		{tag: bigtiff.SamplesPerPixel, typ: bigtiff.Short, count: 1, inline: le16c(3)},
		{tag: bigtiff.RowsPerStrip, typ: bigtiff.Short, count: 1, inline: le16c(uint16(src.RowsPerStrip))},
		{tag: bigtiff.StripByteCounts, typ: bigtiff.Long, count: 1, inline: le32c(uint32(len(src.Strip)))},
		{tag: bigtiff.PlanarConfiguration, typ: bigtiff.Short, count: 1, inline: le16c(1)},
		{tag: bigtiff.Predictor, typ: bigtiff.Short, count: 1, inline: le16c(2)},
	}

	n := uint32(len(entries))
	entriesStart := uint32(bigtiff.ClassicHeaderSize + 2) // header(8) + entry count(2).
	nextIFDPos := entriesStart + n*12
	nextFree := nextIFDPos + 4 // room for the next-IFD terminator.

	for i := range entries {
		if entries[i].blob == nil {
			continue
		}
		entries[i].blobAt = nextFree
		nextFree += uint32(len(entries[i].blob))
		if nextFree%2 != 0 {
			nextFree++
		}
	}
	stripOffset := nextFree
	total := stripOffset + uint32(len(src.Strip))

	buf := make([]byte, total)
	bigtiff.PutClassicHeader(buf, bigtiff.ClassicHeaderSize)
	binary.LittleEndian.PutUint16(buf[bigtiff.ClassicHeaderSize:entriesStart], uint16(n))

	pos := entriesStart
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], uint16(e.tag))
		binary.LittleEndian.PutUint16(buf[pos+2:pos+4], uint16(e.typ))
		binary.LittleEndian.PutUint32(buf[pos+4:pos+8], e.count)
		switch {
		case e.strip:
			binary.LittleEndian.PutUint32(buf[pos+8:pos+12], stripOffset)
		case e.blob != nil:
			binary.LittleEndian.PutUint32(buf[pos+8:pos+12], e.blobAt)
		default:
			copy(buf[pos+8:pos+12], e.inline)
		}
		pos += 12
	}
	// Next-IFD terminator: this is the only directory in the buffer.
	binary.LittleEndian.PutUint32(buf[nextIFDPos:nextIFDPos+4], 0)

	for _, e := range entries {
		if e.blob != nil {
			copy(buf[e.blobAt:], e.blob)
		}
	}
	copy(buf[stripOffset:], src.Strip)

	return buf, nil
}

func le16c(v uint16) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32c(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

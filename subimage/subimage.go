// Package subimage builds one-directory little-endian BigTIFF images
// (the label and macro replacements) and relocates their embedded
// offsets once the caller knows where in the slide the buffer will
// live. It is grounded on original_source/utils/tiffwriter.py's
// BigTiffMaker for the tag table and out-of-line write discipline, and
// on the teacher's IFD_T.Put for the general shape of "lay out fixed
// fields, then out-of-line blobs, then the payload" serialization.
package subimage

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/hatbry/svs-label-switcher/bigtiff"
)

// Kind distinguishes the two sub-image flavors built by this package.
type Kind int

const (
	Label Kind = iota
	Macro
)

// Params describes the replacement image to build.
type Params struct {
	Kind        Kind
	Pixels      []byte // row-major, 3 bytes/pixel (RGB).
	Width       uint32
	Height      uint32
	Description string // optional; ImageDescription tag is omitted when empty.
}

// entry is one planned IFD entry, computed before any bytes are
// written so the final buffer length is known up front.
type entry struct {
	tag       bigtiff.Tag
	typ       bigtiff.Type
	count     uint64
	inline    []byte // <= 8 bytes, used when the value fits in the slot.
	blob      []byte // non-nil when the value must be written out-of-line.
	blobAt    int64  // filled in once the blob's position is known.
	stripSlot bool   // tag 273: slot value is the eventual strip offset.
}

// Build constructs a one-directory BigTIFF per §4.5. The returned
// buffer's byte 0 is the start of its own BigTIFF header; the caller
// relocates it with Relocate before splicing it into a slide at an
// absolute offset.
func Build(p Params) ([]byte, error) {
	if p.Width == 0 || p.Height == 0 {
		return nil, bigtiff.NewError(bigtiff.InvalidParameter, "subimage.Build", 0, 0, errors.New("width and height must be non-zero"))
	}
	if uint64(len(p.Pixels)) != uint64(p.Width)*uint64(p.Height)*3 {
		return nil, bigtiff.NewError(bigtiff.InvalidParameter, "subimage.Build", 0, 0, errors.New("pixel buffer length does not match width*height*3"))
	}

	subfileType := uint32(1)
	if p.Kind == Macro {
		subfileType = 9
	}

	entries := []entry{
		{tag: bigtiff.NewSubfileType, typ: bigtiff.Long, count: 1, inline: le32(subfileType)},
		{tag: bigtiff.ImageWidth, typ: bigtiff.Long, count: 1, inline: le32(p.Width)},
		{tag: bigtiff.ImageLength, typ: bigtiff.Long, count: 1, inline: le32(p.Height)},
		// 3 SHORTs (6 bytes) fit inside the 8-byte BigTIFF slot; unlike
		// the classic-TIFF template this tag is modeled on, there is no
		// need to push it out-of-line here.
		{tag: bigtiff.BitsPerSample, typ: bigtiff.Short, count: 3, inline: []byte{8, 0, 8, 0, 8, 0}},
		{tag: bigtiff.Compression, typ: bigtiff.Short, count: 1, inline: le16(1)},
		{tag: bigtiff.PhotometricInterpretation, typ: bigtiff.Short, count: 1, inline: le16(2)},
	}
	if p.Description != "" {
		desc := append([]byte(p.Description), 0)
		e := entry{tag: bigtiff.ImageDescription, typ: bigtiff.ASCII, count: uint64(len(desc))}
		if len(desc) <= 8 {
			e.inline = desc
		} else {
			e.blob = desc
		}
		entries = append(entries, e)
	}
	entries = append(entries,
		entry{tag: bigtiff.StripOffsets, typ: bigtiff.Long8, count: 1, stripSlot: true},
		entry{tag: bigtiff.SamplesPerPixel, typ: bigtiff.Short, count: 1, inline: le16(3)},
		entry{tag: bigtiff.RowsPerStrip, typ: bigtiff.Long, count: 1, inline: le32(p.Height)},
		entry{tag: bigtiff.StripByteCounts, typ: bigtiff.Long8, count: 1, inline: le64(uint64(len(p.Pixels)))},
		entry{tag: bigtiff.XResolution, typ: bigtiff.Rational, count: 1, inline: rational(1, 1)},
		entry{tag: bigtiff.YResolution, typ: bigtiff.Rational, count: 1, inline: rational(1, 1)},
		entry{tag: bigtiff.PlanarConfiguration, typ: bigtiff.Short, count: 1, inline: le16(1)},
		entry{tag: bigtiff.ResolutionUnit, typ: bigtiff.Short, count: 1, inline: le16(1)},
	)

	n := int64(len(entries))
	entriesStart := int64(bigtiff.BigHeaderSize + 8) // header (16) + entry count (8).
	nextIFDPos := entriesStart + n*20
	nextFree := nextIFDPos + 8

	for i := range entries {
		if entries[i].blob == nil {
			continue
		}
		entries[i].blobAt = nextFree
		nextFree += int64(len(entries[i].blob))
		if nextFree%2 != 0 {
			nextFree++
		}
	}
	stripOffset := nextFree
	total := stripOffset + int64(len(p.Pixels))

	buf := make([]byte, total)
	bigtiff.PutBigHeader(buf, uint64(bigtiff.BigHeaderSize))
	binary.LittleEndian.PutUint64(buf[bigtiff.BigHeaderSize:entriesStart], uint64(n))

	pos := entriesStart
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], uint16(e.tag))
		binary.LittleEndian.PutUint16(buf[pos+2:pos+4], uint16(e.typ))
		binary.LittleEndian.PutUint64(buf[pos+4:pos+12], e.count)
		switch {
		case e.stripSlot:
			binary.LittleEndian.PutUint64(buf[pos+12:pos+20], uint64(stripOffset))
		case e.blob != nil:
			binary.LittleEndian.PutUint64(buf[pos+12:pos+20], uint64(e.blobAt))
		default:
			copy(buf[pos+12:pos+20], e.inline)
		}
		pos += 20
	}

	// Both kinds leave the next-IFD slot at zero: correct as the final
	// value for a macro (terminator), and a placeholder for a label,
	// which Relocate fills in once the macro's slide offset is known.

	for _, e := range entries {
		if e.blob != nil {
			copy(buf[e.blobAt:], e.blob)
		}
	}
	copy(buf[stripOffset:], p.Pixels)

	return buf, nil
}

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func rational(num, denom uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], num)
	binary.LittleEndian.PutUint32(b[4:8], denom)
	return b
}


package bigtiff

import (
	"encoding/binary"
	"io"
)

// Field is a parsed IFD entry, keeping both slot positions the relocator
// needs (tiff66.Field keeps neither, since the teacher library never
// rewrites offsets after the fact).
type Field struct {
	Tag           Tag
	Type          Type
	Count         uint64
	PreTagOffset  int64 // byte position of this entry.
	PreDataOffset int64 // byte position of the value/offset slot.
	Slot          uint64 // raw slot value, before following an out-of-line offset.
	TooLong       bool   // true if the value was out-of-line and not followed.
	Data          []byte // decoded bytes; nil when TooLong.
}

// PackedSize is the total byte size of the field's value (count * width).
func (f Field) PackedSize() uint64 {
	return f.Count * f.Type.Size()
}

// Directory is one parsed Image File Directory.
type Directory struct {
	Offset        int64
	Fields        map[Tag]Field
	Order         []Tag // tags in file order, ascending per TIFF convention.
	NextOffset    int64
	NextOffsetPos int64 // byte position of the next-IFD pointer (pre_offset_offset).
}

// Chain is a fully walked directory chain from one TIFF/BigTIFF file or
// buffer.
type Chain struct {
	BigTIFF     bool
	Order       binary.ByteOrder
	Directories []Directory
}

const (
	classicEntrySize = 12
	bigEntrySize     = 20
	classicSlotSize  = 4
	bigSlotSize      = 8
)

func readAt(r io.ReaderAt, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadDirectoryChain parses the header at the start of r and walks the
// linked list of IFDs per §4.1: classic TIFF (version 42, 12-byte
// entries, 4-byte offsets) or little-endian BigTIFF (version 43, 20-byte
// entries, 8-byte offsets, offset-size=8 and reserved=0). size is the
// total readable length, used to check that each directory's entries and
// next-IFD pointer lie within it.
func ReadDirectoryChain(r io.ReaderAt, size int64) (*Chain, error) {
	head, err := readAt(r, 0, 8)
	if err != nil {
		return nil, newError(Truncated, "header", 0, 0, err)
	}
	if head[0] != 'I' || head[1] != 'I' {
		return nil, newError(UnsupportedFormat, "header", 0, 0, nil)
	}
	order := binary.LittleEndian
	version := order.Uint16(head[2:4])

	var firstIFD int64
	bigTIFF := false
	switch version {
	case 42:
		firstIFD = int64(order.Uint32(head[4:8]))
	case 43:
		bigTIFF = true
		offsetSize := order.Uint16(head[4:6])
		reserved := order.Uint16(head[6:8])
		if offsetSize != 8 || reserved != 0 {
			return nil, newError(UnsupportedFormat, "header", 4, 0, nil)
		}
		rest, err := readAt(r, 8, 8)
		if err != nil {
			return nil, newError(Truncated, "header", 8, 0, err)
		}
		firstIFD = int64(order.Uint64(rest))
	default:
		return nil, newError(UnsupportedFormat, "header", 4, 0, nil)
	}

	chain := &Chain{BigTIFF: bigTIFF, Order: order}
	pos := firstIFD
	for pos != 0 {
		dir, next, err := readOneDirectory(r, order, pos, bigTIFF, size)
		if err != nil {
			return nil, err
		}
		chain.Directories = append(chain.Directories, dir)
		pos = next
	}
	return chain, nil
}

func readOneDirectory(r io.ReaderAt, order binary.ByteOrder, pos int64, bigTIFF bool, size int64) (Directory, int64, error) {
	dir := Directory{Offset: pos, Fields: make(map[Tag]Field)}

	var count uint64
	var entrySize, slotSize int64
	var headerLen int64
	if bigTIFF {
		headerLen = 8
		buf, err := readAt(r, pos, 8)
		if err != nil {
			return dir, 0, newError(Truncated, "directory", pos, 0, err)
		}
		count = order.Uint64(buf)
		entrySize, slotSize = bigEntrySize, bigSlotSize
	} else {
		headerLen = 2
		buf, err := readAt(r, pos, 2)
		if err != nil {
			return dir, 0, newError(Truncated, "directory", pos, 0, err)
		}
		count = uint64(order.Uint16(buf))
		entrySize, slotSize = classicEntrySize, classicSlotSize
	}

	entriesStart := pos + headerLen
	nextPos := entriesStart + int64(count)*entrySize
	if nextPos+int64(slotSize) > size {
		return dir, 0, newError(Truncated, "directory", pos, 0, nil)
	}

	for i := uint64(0); i < count; i++ {
		entryPos := entriesStart + int64(i)*entrySize
		buf, err := readAt(r, entryPos, int(entrySize))
		if err != nil {
			return dir, 0, newError(Truncated, "directory", entryPos, 0, err)
		}
		field := Field{
			Tag:          Tag(order.Uint16(buf[0:2])),
			Type:         Type(order.Uint16(buf[2:4])),
			PreTagOffset: entryPos,
		}
		if bigTIFF {
			field.Count = order.Uint64(buf[4:12])
			field.PreDataOffset = entryPos + 12
			field.Slot = order.Uint64(buf[12:20])
		} else {
			field.Count = uint64(order.Uint32(buf[4:8]))
			field.PreDataOffset = entryPos + 8
			field.Slot = uint64(order.Uint32(buf[8:12]))
		}
		if field.Type.Size() == 0 {
			return dir, 0, newError(InvalidType, "directory", entryPos, field.Tag, nil)
		}

		packed := field.PackedSize()
		if packed <= uint64(slotSize) {
			field.Data = encodeSlot(order, buf[field.PreDataOffset-entryPos:], int(packed))
		} else if field.Tag == ImageDescription || field.Tag == BitsPerSample {
			data, err := readAt(r, int64(field.Slot), int(packed))
			if err != nil {
				return dir, 0, newError(Truncated, "directory", entryPos, field.Tag, err)
			}
			field.Data = data
		} else {
			field.TooLong = true
		}
		dir.Fields[field.Tag] = field
		dir.Order = append(dir.Order, field.Tag)
	}

	dir.NextOffsetPos = nextPos
	nextBuf, err := readAt(r, nextPos, int(slotSize))
	if err != nil {
		return dir, 0, newError(Truncated, "directory", nextPos, 0, err)
	}
	if bigTIFF {
		dir.NextOffset = int64(order.Uint64(nextBuf))
	} else {
		dir.NextOffset = int64(order.Uint32(nextBuf))
	}
	return dir, dir.NextOffset, nil
}

// encodeSlot trims a slot buffer down to the packed size of an inline
// value; TIFF always left-aligns inline values within the slot.
func encodeSlot(order binary.ByteOrder, slot []byte, packed int) []byte {
	out := make([]byte, packed)
	copy(out, slot[:packed])
	return out
}

// Find returns the field for tag in dir, or false if absent.
func (d Directory) Find(tag Tag) (Field, bool) {
	f, ok := d.Fields[tag]
	return f, ok
}

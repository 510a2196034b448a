package bigtiff

import "encoding/binary"

// Uint decodes the index'th value of an inline or followed field as an
// unsigned integer, widened to 64 bits. It panics if index is out of
// range or the field's value was never decoded (TooLong); callers that
// read tags recorded by SlideInspector never hit that case, since those
// tags are always small enough to inline or are in the always-followed
// set.
func (f Field) Uint(index int) uint64 {
	width := int(f.Type.Size())
	start := index * width
	switch f.Type {
	case Byte, SByte:
		return uint64(f.Data[start])
	case Short, SShort:
		return uint64(binary.LittleEndian.Uint16(f.Data[start : start+2]))
	case Long, SLong:
		return uint64(binary.LittleEndian.Uint32(f.Data[start : start+4]))
	case Long8:
		return binary.LittleEndian.Uint64(f.Data[start : start+8])
	default:
		return 0
	}
}

// ASCIIValue returns the decoded ASCII string, trimming a single
// trailing NUL terminator if present.
func (f Field) ASCIIValue() string {
	data := f.Data
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}
	return string(data)
}

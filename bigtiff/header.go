package bigtiff

import "encoding/binary"

// ClassicHeaderSize is the byte size of a classic TIFF header.
const ClassicHeaderSize = 8

// BigHeaderSize is the byte size of a BigTIFF header.
const BigHeaderSize = 16

// PutClassicHeader writes an 8-byte little-endian classic TIFF header
// ("II", 42, ifdPos) at the start of buf, per §4.4.
func PutClassicHeader(buf []byte, ifdPos uint32) {
	buf[0], buf[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(buf[2:4], 42)
	binary.LittleEndian.PutUint32(buf[4:8], ifdPos)
}

// PutBigHeader writes a 16-byte little-endian BigTIFF header ("II", 43,
// offset-size=8, reserved=0, ifdPos) at the start of buf, per §4.5.
func PutBigHeader(buf []byte, ifdPos uint64) {
	buf[0], buf[1] = 'I', 'I'
	binary.LittleEndian.PutUint16(buf[2:4], 43)
	binary.LittleEndian.PutUint16(buf[4:6], 8)
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	binary.LittleEndian.PutUint64(buf[8:16], ifdPos)
}

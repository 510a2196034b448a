package bigtiff

import (
	"bytes"
	"testing"
)

// S1: a big-endian ("MM") header is rejected outright.
func TestReadDirectoryChainRejectsBigEndian(t *testing.T) {
	buf := []byte{'M', 'M', 0x00, 0x2A, 0, 0, 0, 8}
	_, err := ReadDirectoryChain(bytes.NewReader(buf), int64(len(buf)))
	if err == nil {
		t.Fatal("expected an error for a big-endian header")
	}
	bterr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if bterr.Kind != UnsupportedFormat {
		t.Fatalf("expected UnsupportedFormat, got %s", bterr.Kind)
	}
}

func TestReadDirectoryChainRejectsUnknownVersion(t *testing.T) {
	buf := []byte{'I', 'I', 0x07, 0x00, 0, 0, 0, 8}
	_, err := ReadDirectoryChain(bytes.NewReader(buf), int64(len(buf)))
	if err == nil {
		t.Fatal("expected an error for an unknown version")
	}
	if bterr := err.(*Error); bterr.Kind != UnsupportedFormat {
		t.Fatalf("expected UnsupportedFormat, got %s", bterr.Kind)
	}
}

// A minimal classic TIFF with a single SHORT field should round-trip.
func TestReadDirectoryChainClassicSingleField(t *testing.T) {
	buf := make([]byte, 8+2+12+4)
	PutClassicHeader(buf, 8)
	buf[8] = 1 // one entry
	entry := buf[10:22]
	binaryLE(entry[0:2], uint64(ImageWidth))
	binaryLE(entry[2:4], uint64(Short))
	binaryLE(entry[4:8], 1)
	binaryLE(entry[8:10], 100)
	// next IFD offset (4 bytes of zero) already zero-valued.

	chain, err := ReadDirectoryChain(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chain.BigTIFF {
		t.Fatal("expected classic TIFF, got BigTIFF")
	}
	if len(chain.Directories) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(chain.Directories))
	}
	field, ok := chain.Directories[0].Find(ImageWidth)
	if !ok {
		t.Fatal("expected ImageWidth field")
	}
	if got := field.Uint(0); got != 100 {
		t.Fatalf("expected width 100, got %d", got)
	}
}

func binaryLE(dst []byte, v uint64) {
	for i := range dst {
		dst[i] = byte(v >> (8 * i))
	}
}

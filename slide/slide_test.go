package slide

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hatbry/svs-label-switcher/bigtiff"
	"github.com/hatbry/svs-label-switcher/subimage"
)

func pixels(w, h uint32, v byte) []byte {
	buf := make([]byte, uint64(w)*uint64(h)*3)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func writeFixture(t *testing.T) string {
	t.Helper()
	labelBuf, err := subimage.Build(subimage.Params{Kind: subimage.Label, Pixels: pixels(8, 6, 0x11), Width: 8, Height: 6})
	if err != nil {
		t.Fatalf("Build label: %v", err)
	}
	labelReloc, err := subimage.Relocate(labelBuf, subimage.Label, 16)
	if err != nil {
		t.Fatalf("Relocate label: %v", err)
	}
	macroOffset := labelReloc.NextIFDAbsolute

	macroBuf, err := subimage.Build(subimage.Params{Kind: subimage.Macro, Pixels: pixels(12, 9, 0x22), Width: 12, Height: 9})
	if err != nil {
		t.Fatalf("Build macro: %v", err)
	}
	macroReloc, err := subimage.Relocate(macroBuf, subimage.Macro, macroOffset)
	if err != nil {
		t.Fatalf("Relocate macro: %v", err)
	}

	total := macroOffset + int64(len(macroBuf)-16)
	file := make([]byte, total)
	bigtiff.PutBigHeader(file, 16)
	copy(file[16:macroOffset], labelReloc.Buffer[16:])
	copy(file[macroOffset:], macroReloc.Buffer[16:])

	path := filepath.Join(t.TempDir(), "fixture.svs")
	if err := os.WriteFile(path, file, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestInspectLocatesLabelAndMacro(t *testing.T) {
	path := writeFixture(t)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	stat, _ := f.Stat()

	info, err := Inspect(f, stat.Size())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.LabelWidth != 8 || info.LabelHeight != 6 {
		t.Fatalf("label dimensions: got %dx%d, want 8x6", info.LabelWidth, info.LabelHeight)
	}
	if info.MacroNextOffset != 0 {
		t.Fatalf("expected macro to be terminal, got next offset %d", info.MacroNextOffset)
	}
	if info.LabelStripBytes != 8*6*3 {
		t.Fatalf("label strip length: got %d, want %d", info.LabelStripBytes, 8*6*3)
	}
}

// Invariant 5: after Redact, the original strip regions contain only
// zero bytes.
func TestRedactZeroFillsStrips(t *testing.T) {
	path := writeFixture(t)
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	stat, _ := f.Stat()
	info, err := Inspect(f, stat.Size())
	f.Close()
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	rw, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if err := Redact(rw, info); err != nil {
		t.Fatalf("Redact: %v", err)
	}
	rw.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	labelStrip := data[info.LabelStripOffset : info.LabelStripOffset+info.LabelStripBytes]
	if !bytes.Equal(labelStrip, make([]byte, len(labelStrip))) {
		t.Fatal("label strip was not zero-filled")
	}
	macroStrip := data[info.MacroStripOffset : info.MacroStripOffset+info.MacroStripBytes]
	if !bytes.Equal(macroStrip, make([]byte, len(macroStrip))) {
		t.Fatal("macro strip was not zero-filled")
	}
}

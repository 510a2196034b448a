package splice

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hatbry/svs-label-switcher/bigtiff"
	"github.com/hatbry/svs-label-switcher/subimage"
)

func solidPixels(w, h uint32, r, g, b byte) []byte {
	buf := make([]byte, uint64(w)*uint64(h)*3)
	for i := 0; i < len(buf); i += 3 {
		buf[i], buf[i+1], buf[i+2] = r, g, b
	}
	return buf
}

// buildFixture assembles a 3-directory BigTIFF: a preserved leading
// directory, a label, and a terminal macro, chained the same way
// Relocate chains a real splice's output. It returns the file path and
// the byte range occupied by the leading directory, for the
// non-interference check.
func buildFixture(t *testing.T) (path string, leadingDirBytes []byte) {
	t.Helper()

	leadBuf, err := subimage.Build(subimage.Params{Kind: subimage.Label, Pixels: solidPixels(4, 4, 1, 2, 3), Width: 4, Height: 4})
	require.NoError(t, err)
	leadReloc, err := subimage.Relocate(leadBuf, subimage.Label, 16)
	require.NoError(t, err)
	labelOffset := leadReloc.NextIFDAbsolute

	labelBuf, err := subimage.Build(subimage.Params{Kind: subimage.Label, Pixels: solidPixels(8, 6, 9, 9, 9), Width: 8, Height: 6})
	require.NoError(t, err)
	labelReloc, err := subimage.Relocate(labelBuf, subimage.Label, labelOffset)
	require.NoError(t, err)
	macroOffset := labelReloc.NextIFDAbsolute

	macroBuf, err := subimage.Build(subimage.Params{Kind: subimage.Macro, Pixels: solidPixels(12, 10, 5, 5, 5), Width: 12, Height: 10})
	require.NoError(t, err)
	macroReloc, err := subimage.Relocate(macroBuf, subimage.Macro, macroOffset)
	require.NoError(t, err)

	total := macroOffset + int64(len(macroBuf)-16)
	file := make([]byte, total)
	bigtiff.PutBigHeader(file, 16)
	copy(file[16:labelOffset], leadReloc.Buffer[16:])
	copy(file[labelOffset:macroOffset], labelReloc.Buffer[16:])
	copy(file[macroOffset:], macroReloc.Buffer[16:])

	dir := t.TempDir()
	path = filepath.Join(dir, "fixture.svs")
	require.NoError(t, os.WriteFile(path, file, 0o644))

	return path, append([]byte(nil), file[16:labelOffset]...)
}

func TestRunPreservesLeadingDirectoryAndChainsCorrectly(t *testing.T) {
	path, leadingBefore := buildFixture(t)

	err := Run(path, Options{
		Label: Image{Pixels: solidPixels(20, 10, 255, 0, 0), Width: 20, Height: 10, Description: "new label"},
		Macro: Image{Pixels: solidPixels(30, 15, 0, 255, 0), Width: 30, Height: 15},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r := bytes.NewReader(data)
	chain, err := bigtiff.ReadDirectoryChain(r, int64(len(data)))
	require.NoError(t, err)
	require.True(t, chain.BigTIFF)
	require.Len(t, chain.Directories, 3)

	leadingAfter := data[16:chain.Directories[1].Offset]
	require.Equal(t, leadingBefore, leadingAfter, "invariant 4: non-label/non-macro directories must be byte-identical")

	labelDir := chain.Directories[1]
	macroDir := chain.Directories[2]

	require.Equal(t, macroDir.Offset, labelDir.NextOffset, "invariant 3: label's next_ifd must equal the macro's offset")
	require.Zero(t, macroDir.NextOffset, "invariant 3/S6: macro's next_ifd must be 0")

	width, ok := labelDir.Find(bigtiff.ImageWidth)
	require.True(t, ok)
	require.EqualValues(t, 20, width.Uint(0))

	macroWidth, ok := macroDir.Find(bigtiff.ImageWidth)
	require.True(t, ok)
	require.EqualValues(t, 30, macroWidth.Uint(0))
}

func TestRunRejectsNonTerminalMacro(t *testing.T) {
	path, _ := buildFixture(t)

	// Append a stray byte chain: corrupt the macro's next_ifd pointer
	// so it is no longer terminal, and confirm Run refuses to splice.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	r := bytes.NewReader(data)
	chain, err := bigtiff.ReadDirectoryChain(r, int64(len(data)))
	require.NoError(t, err)
	macroDir := chain.Directories[len(chain.Directories)-1]

	corrupted := append([]byte(nil), data...)
	corrupted[macroDir.NextOffsetPos] = 1
	require.NoError(t, os.WriteFile(path, corrupted, 0o644))

	err = Run(path, Options{
		Label: Image{Pixels: solidPixels(2, 2, 1, 1, 1), Width: 2, Height: 2},
		Macro: Image{Pixels: solidPixels(2, 2, 1, 1, 1), Width: 2, Height: 2},
	})
	require.Error(t, err)
	bterr, ok := err.(*bigtiff.Error)
	require.True(t, ok)
	require.Equal(t, bigtiff.RelocationOutOfRange, bterr.Kind)
}

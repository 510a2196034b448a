package bigtiff

import (
	"fmt"
	"io"
)

// Dump writes a tag-by-tag listing of every directory in chain to w,
// supplementing the diagnostic dump the Python original's BigTiffFile
// printed on request. A reader is never expected to parse this output;
// it exists for troubleshooting a slide that the splicer refuses to
// touch.
func (c *Chain) Dump(w io.Writer) {
	kind := "TIFF"
	if c.BigTIFF {
		kind = "BigTIFF"
	}
	for i, dir := range c.Directories {
		fmt.Fprintf(w, "\n%s directory %d at offset 0x%x, %d entries:\n", kind, i, dir.Offset, len(dir.Order))
		for _, tag := range dir.Order {
			f := dir.Fields[tag]
			fmt.Fprintf(w, "  %s (%d) type=%s count=%d", tag.Name(), tag, f.Type.Name(), f.Count)
			switch {
			case f.TooLong:
				fmt.Fprintf(w, " value=<too long, offset 0x%x>\n", f.Slot)
			case f.Tag == ImageDescription:
				fmt.Fprintf(w, " value=%q\n", string(f.Data))
			default:
				fmt.Fprintf(w, " value=%v\n", f.Data)
			}
		}
		if dir.NextOffset == 0 {
			fmt.Fprintf(w, "  next_ifd: 0 (terminal)\n")
		} else {
			fmt.Fprintf(w, "  next_ifd: 0x%x\n", dir.NextOffset)
		}
	}
}

// Package batch is the spreadsheet/CSV driver for the "multiple"
// subcommand named in §6: it turns a sheet of slide paths and
// replacement text into a list of Row values the CLI feeds to
// splice.Run one row at a time. Grounded on
// original_source/label_switcher.py's switch_labels_from_file, with
// its column-name mismatch bug (line1/line2 reading back line2/text2)
// not carried over.
package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shakinm/xlsReader/xls"
)

// Row is one line of the batch sheet, resolved to a slide path and its
// replacement text.
type Row struct {
	SlidePath string
	QR        string
	Line1     string
	Line2     string
	Line3     string
	Line4     string
}

// longTextThreshold mirrors switch_labels_from_file's own warning
// threshold: text this long risks not fitting on the rendered label.
const longTextThreshold = 25

// Warning describes a non-fatal issue found while reading a sheet.
type Warning struct {
	Row     int
	Message string
}

const (
	headerQR    = "QR"
	headerLine1 = "line1"
	headerLine2 = "line2"
	headerLine3 = "line3"
	headerLine4 = "line4"
)

// ReadCSV parses a CSV batch sheet. slideHeader names the column
// holding each row's slide path (defaulting to "File Location" per
// §6); slideDir, if non-empty, is joined with a relative slide path.
func ReadCSV(path, slideHeader, slideDir string) ([]Row, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("batch: opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("batch: reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("batch: %s has no rows", path)
	}
	return buildRows(records[0], records[1:], slideHeader, slideDir)
}

// ReadXLS parses a legacy .xls batch sheet using shakinm/xlsReader,
// reading the first sheet only.
func ReadXLS(path, slideHeader, slideDir string) ([]Row, []Warning, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("batch: opening %s: %w", path, err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("batch: parsing %s: %w", path, err)
	}
	if wb.GetNumberSheets() == 0 {
		return nil, nil, fmt.Errorf("batch: %s has no sheets", path)
	}
	sheet, err := wb.GetSheet(0)
	if err != nil {
		return nil, nil, fmt.Errorf("batch: reading sheet 0 of %s: %w", path, err)
	}

	numRows := sheet.GetNumberRows()
	if numRows == 0 {
		return nil, nil, fmt.Errorf("batch: %s has no rows", path)
	}
	records := make([][]string, 0, numRows)
	for i := 0; i < numRows; i++ {
		row, err := sheet.GetRow(i)
		if err != nil {
			continue
		}
		cols := row.GetCols()
		rec := make([]string, len(cols))
		for j, cell := range cols {
			rec[j] = cell.GetString()
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("batch: %s produced no readable rows", path)
	}
	return buildRows(records[0], records[1:], slideHeader, slideDir)
}

func buildRows(header []string, dataRows [][]string, slideHeader, slideDir string) ([]Row, []Warning, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	slideCol, ok := index[slideHeader]
	if !ok {
		return nil, nil, fmt.Errorf("batch: column %q not found", slideHeader)
	}

	optionalField := func(rec []string, header string) string {
		col, ok := index[header]
		if !ok || col < 0 || col >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[col])
	}

	var rows []Row
	var warnings []Warning
	for i, rec := range dataRows {
		slidePath := field(rec, slideCol)
		if slidePath == "" {
			continue
		}
		if slideDir != "" && !filepath.IsAbs(slidePath) {
			slidePath = filepath.Join(slideDir, slidePath)
		}
		row := Row{
			SlidePath: slidePath,
			QR:        optionalField(rec, headerQR),
			Line1:     optionalField(rec, headerLine1),
			Line2:     optionalField(rec, headerLine2),
			Line3:     optionalField(rec, headerLine3),
			Line4:     optionalField(rec, headerLine4),
		}
		for _, text := range []string{row.Line1, row.Line2, row.Line3, row.Line4} {
			if len(text) >= longTextThreshold {
				warnings = append(warnings, Warning{Row: i, Message: fmt.Sprintf("text line %d characters long may not fit on the label", len(text))})
				break
			}
		}
		rows = append(rows, row)
	}
	return rows, warnings, nil
}

func field(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}

// Package upload converts uploaded spreadsheet files into datasets that can
// be loaded into the table store.
package upload

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ai-agents/foundation/duck"
	"github.com/xuri/excelize/v2"
)

// UnsupportedFormatError is returned when the file extension is not one the
// package can parse.
type UnsupportedFormatError struct {
	Filename string
	Ext      string
}

func (ufe *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: expected .csv or .xlsx", ufe.Ext)
}

// Parse reads the file content and returns a dataset with normalized column
// names and inferred column types. The format is chosen from the filename
// extension.
func Parse(filename string, r io.Reader) (duck.Dataset, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	var records [][]string
	var err error

	switch ext {
	case ".csv":
		records, err = readCSV(r)

	case ".xlsx":
		records, err = readXLSX(r)

	default:
		return duck.Dataset{}, &UnsupportedFormatError{Filename: filename, Ext: ext}
	}

	if err != nil {
		return duck.Dataset{}, err
	}

	if len(records) == 0 {
		return duck.Dataset{}, errors.New("file has no header row")
	}

	header := NormalizeColumns(records[0])

	body, err := rectangle(records[1:], len(header))
	if err != nil {
		return duck.Dataset{}, err
	}

	return build(header, body), nil
}

// =============================================================================

// utf8BOM is written at the start of csv files exported by spreadsheet tools.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	return records, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("xlsx has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return records, nil
}

// rectangle pads short rows to the header width and drops fully blank rows.
// A row wider than the header is an error.
func rectangle(records [][]string, width int) ([][]string, error) {
	rows := make([][]string, 0, len(records))

	for i, rec := range records {
		if blank(rec) {
			continue
		}

		if len(rec) > width {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(rec), width)
		}

		row := make([]string, width)
		copy(row, rec)
		rows = append(rows, row)
	}

	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}

package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a raw tabular dataset: a header plus rows of cell text, aligned
// to the header. Typing happens downstream, in the engine.
type Table struct {
	Columns []string
	Rows    [][]string
}

var ErrEmptyTable = errors.New("table has no header row")

// Cell returns the trimmed cell text at (row, col), "" when the row is
// ragged and the column is missing.
func (t Table) Cell(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.Rows[row][col])
}

// ColIndex finds a column by exact name, -1 when absent.
func (t Table) ColIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// ReadCSV parses a CSV stream into a Table. Ragged rows are tolerated; short
// rows read as empty cells.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return Table{}, ErrEmptyTable
	}
	header := make([]string, len(all[0]))
	for i, c := range all[0] {
		header[i] = strings.TrimSpace(c)
	}
	return Table{Columns: header, Rows: all[1:]}, nil
}

// ReadXLSX parses the first sheet of an xlsx stream into a Table.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, ErrEmptyTable
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("read xlsx rows: %w", err)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmptyTable
	}
	header := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		header[i] = strings.TrimSpace(c)
	}
	return Table{Columns: header, Rows: rows[1:]}, nil
}

// ColumnRef resolves a user-facing column reference into a 0-based index.
// Accepts either a number ("8") or an Excel column letter ("I" -> 8).
func ColumnRef(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty column reference")
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative column index %d", n)
		}
		return n, nil
	}
	idx := 0
	for _, ch := range strings.ToUpper(s) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("bad column reference %q", s)
		}
		idx = idx*26 + int(ch-'A') + 1
	}
	return idx - 1, nil
}

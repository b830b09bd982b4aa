// Package tabular models the loosely-structured two-dimensional sources the
// aggregator consumes. All coercion policy lives in the Row accessors:
// absent or blank numeric cells read as zero, absent text cells as "".
package tabular

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Source yields named tables. A table's header row index varies per source
// because several sheets carry banner rows above the real header.
type Source interface {
	Table(name string, headerRow int) (*Table, error)
}

// Table is one named source with column-name lookup over its rows.
type Table struct {
	Name    string
	columns map[string]int
	rows    [][]string
}

// New builds a table from a header row and data rows. Duplicate or empty
// header cells keep the first occurrence.
func New(name string, header []string, rows [][]string) *Table {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if _, ok := cols[h]; !ok {
			cols[h] = i
		}
	}
	return &Table{Name: name, columns: cols, rows: rows}
}

// HasColumn reports whether the header declares the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the i-th data row.
func (t *Table) Row(i int) Row { return Row{table: t, cells: t.rows[i]} }

// RequireColumns errors when any of the named columns is missing, so a
// structurally unexpected sheet is rejected before any row is decoded.
func (t *Table) RequireColumns(names ...string) error {
	for _, n := range names {
		if !t.HasColumn(n) {
			return fmt.Errorf("table %s: missing column %q", t.Name, n)
		}
	}
	return nil
}

// Row is one data row with column-name access.
type Row struct {
	table *Table
	cells []string
}

// Text returns the trimmed cell under the named column, "" when the column
// is absent or the cell is blank.
func (r Row) Text(col string) string {
	i, ok := r.table.columns[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// Decimal returns the cell as a decimal amount, zero when absent, blank,
// or unparsable. Thousands separators are tolerated.
func (r Row) Decimal(col string) decimal.Decimal {
	s := strings.ReplaceAll(r.Text(col), ",", "")
	if s == "" || s == "-" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Int returns the cell as an integer, zero on absence or parse failure.
func (r Row) Int(col string) int {
	s := strings.ReplaceAll(r.Text(col), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// spreadsheet cells sometimes render integers as floats
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

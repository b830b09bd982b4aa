// Package excel adapts an .xlsx workbook to the tabular.Source interface.
package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"comppipe/internal/tabular"
)

// Workbook reads sheets from a single .xlsx file.
type Workbook struct {
	path string
	f    *excelize.File
}

// Open opens the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{path: path, f: f}, nil
}

// Close releases the underlying file.
func (w *Workbook) Close() error { return w.f.Close() }

// SheetNames lists the sheets present in the workbook.
func (w *Workbook) SheetNames() []string { return w.f.GetSheetList() }

// Table reads the named sheet, treating row headerRow (0-based) as the
// header and everything after it as data.
func (w *Workbook) Table(name string, headerRow int) (*tabular.Table, error) {
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if headerRow >= len(rows) {
		return nil, fmt.Errorf("sheet %s: header row %d beyond %d rows", name, headerRow, len(rows))
	}
	return tabular.New(name, rows[headerRow], rows[headerRow+1:]), nil
}

var _ tabular.Source = (*Workbook)(nil)

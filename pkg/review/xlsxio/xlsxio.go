// Package xlsxio reads permission-matrix workbooks and writes multi-sheet
// review reports. Reading undoes the usual spreadsheet-isms: merged cells
// arrive empty and are forward-filled, headers carry stray whitespace, and
// fully empty rows are dropped.
package xlsxio

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/soxtools/adreview/pkg/review"
)

// ReadOptions selects and shapes the sheet to read.
type ReadOptions struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string

	// ForwardFill lists columns whose empty cells inherit the value above,
	// undoing vertically merged cells.
	ForwardFill []string
}

// Read parses one worksheet into a Table.
func Read(r io.Reader, opts ReadOptions) (review.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return review.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return readSheet(f, opts)
}

// ReadFile parses one worksheet of a workbook file into a Table.
func ReadFile(path string, opts ReadOptions) (review.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return review.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return readSheet(f, opts)
}

func readSheet(f *excelize.File, opts ReadOptions) (review.Table, error) {
	sheet := opts.Sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return review.Table{}, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return review.Table{}, fmt.Errorf("workbook has no sheet %q (available: %s)",
			sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return review.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return review.Table{}, fmt.Errorf("sheet %q is empty", sheet)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	fill := make(map[string]bool, len(opts.ForwardFill))
	for _, col := range opts.ForwardFill {
		fill[col] = true
	}
	carry := make(map[string]string)

	table := review.Table{Headers: headers}
	for _, cells := range rows[1:] {
		row := make(review.Row, len(headers))
		empty := true
		for i, h := range headers {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			if v != "" {
				empty = false
			}
			row[h] = v
		}
		if empty {
			continue
		}
		for col := range fill {
			if strings.TrimSpace(row[col]) == "" {
				row[col] = carry[col]
			} else {
				carry[col] = row[col]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Workbook accumulates report sheets and saves them as one xlsx file.
type Workbook struct {
	f      *excelize.File
	sheets int
}

func NewWorkbook() *Workbook {
	return &Workbook{f: excelize.NewFile()}
}

// AddSheet appends a sheet with a header row and data rows. The first sheet
// replaces the workbook's default sheet so no empty "Sheet1" is left behind.
func (w *Workbook) AddSheet(name string, headers []string, rows [][]string) error {
	if w.sheets == 0 {
		if err := w.f.SetSheetName(w.f.GetSheetName(0), name); err != nil {
			return err
		}
	} else if _, err := w.f.NewSheet(name); err != nil {
		return err
	}
	w.sheets++

	if err := w.setRow(name, 1, headers); err != nil {
		return err
	}
	for i, row := range rows {
		if err := w.setRow(name, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) setRow(sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return w.f.SetSheetRow(sheet, cell, &cells)
}

// SaveAs writes the workbook to a file.
func (w *Workbook) SaveAs(path string) error {
	return w.f.SaveAs(path)
}

// WriteTo writes the workbook to a stream.
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

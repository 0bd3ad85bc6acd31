package workbook

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when a named sheet is absent from the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// Book serialises access to one xlsx file. Every View or Update opens the file,
// runs fn and closes it again, so each call observes the latest saved state.
type Book struct {
	path string
	mu   sync.Mutex
}

// New returns a handle on the workbook at path. The file is not opened until used.
func New(path string) *Book {
	return &Book{path: path}
}

// Path returns the workbook location.
func (b *Book) Path() string {
	return b.path
}

// View opens the workbook read-only for the duration of fn.
func (b *Book) View(fn func(f *File) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	x, err := excelize.OpenFile(b.path)
	if err != nil {
		return fmt.Errorf("open workbook %q: %w", b.path, err)
	}
	defer x.Close()

	return fn(&File{x: x})
}

// Update opens the workbook, runs fn and saves once if fn succeeded and changed
// something.
func (b *Book) Update(fn func(f *File) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	x, err := excelize.OpenFile(b.path)
	if err != nil {
		return fmt.Errorf("open workbook %q: %w", b.path, err)
	}
	defer x.Close()

	f := &File{x: x}
	if err := fn(f); err != nil {
		return err
	}
	if !f.dirty {
		return nil
	}
	if err := x.Save(); err != nil {
		return fmt.Errorf("save workbook %q: %w", b.path, err)
	}
	return nil
}

// Create writes a new workbook at path with one sheet per entry, each holding only
// its header row. Existing files are left alone.
func Create(path string, sheets map[string][]string, order ...string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("workbook %q already exists", path)
	}
	if len(order) == 0 {
		for name := range sheets {
			order = append(order, name)
		}
	}

	x := excelize.NewFile()
	defer x.Close()

	for i, name := range order {
		header, ok := sheets[name]
		if !ok {
			return fmt.Errorf("no header for sheet %q", name)
		}
		if i == 0 {
			if err := x.SetSheetName("Sheet1", name); err != nil {
				return fmt.Errorf("rename default sheet: %w", err)
			}
		} else if _, err := x.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %q: %w", name, err)
		}
		row := make([]any, len(header))
		for j, h := range header {
			row[j] = h
		}
		if err := x.SetSheetRow(name, "A1", &row); err != nil {
			return fmt.Errorf("write header of %q: %w", name, err)
		}
	}
	return x.SaveAs(path)
}

// File is an open workbook inside a View or Update callback.
type File struct {
	x     *excelize.File
	dirty bool
}

// Sheet is a snapshot of one sheet: a header row followed by data rows. Cell
// values are the raw stored values, not the display formatting.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// Sheet reads the named sheet. Data row i (0-based) is RowNum i+1.
func (f *File) Sheet(name string) (*Sheet, error) {
	if idx, err := f.x.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrSheetNotFound, name)
	}
	rows, err := f.x.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}

	s := &Sheet{Name: name, index: map[string]int{}}
	if len(rows) == 0 {
		return s, nil
	}
	s.Header = rows[0]
	for i, h := range s.Header {
		key := strings.TrimSpace(h)
		if key == "" {
			continue
		}
		if _, seen := s.index[key]; !seen {
			s.index[key] = i
		}
	}
	s.Rows = rows[1:]
	return s, nil
}

// Columns returns the trimmed, non-blank header names.
func (s *Sheet) Columns() []string {
	out := make([]string, 0, len(s.index))
	for _, h := range s.Header {
		if key := strings.TrimSpace(h); key != "" {
			out = append(out, key)
		}
	}
	return out
}

// Column returns the 0-based position of a header.
func (s *Sheet) Column(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Value returns the cell under column name in row, or "" when either is missing.
func (s *Sheet) Value(row []string, name string) string {
	i, ok := s.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// AppendRow writes values after the last data row, mapping each key to its header
// column. Unknown keys are ignored. The new row's RowNum is returned.
func (f *File) AppendRow(s *Sheet, values map[string]string) (int64, error) {
	rowNum := int64(len(s.Rows) + 1)
	row := make([]string, len(s.Header))
	for name, v := range values {
		if i, ok := s.index[name]; ok {
			row[i] = v
		}
	}
	if err := f.writeRow(s.Name, rowNum, row); err != nil {
		return 0, err
	}
	s.Rows = append(s.Rows, row)
	return rowNum, nil
}

// SetValues overwrites the named cells of an existing data row.
func (f *File) SetValues(s *Sheet, rowNum int64, values map[string]string) error {
	if rowNum < 1 || rowNum > int64(len(s.Rows)) {
		return fmt.Errorf("row %d out of range in %q", rowNum, s.Name)
	}
	for name, v := range values {
		i, ok := s.index[name]
		if !ok {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(i+1, int(rowNum)+1)
		if err != nil {
			return err
		}
		if err := f.x.SetCellValue(s.Name, cell, v); err != nil {
			return fmt.Errorf("write %s!%s: %w", s.Name, cell, err)
		}
		row := s.Rows[rowNum-1]
		for len(row) <= i {
			row = append(row, "")
		}
		row[i] = v
		s.Rows[rowNum-1] = row
	}
	f.dirty = true
	return nil
}

func (f *File) writeRow(sheet string, rowNum int64, row []string) error {
	cell, err := excelize.CoordinatesToCellName(1, int(rowNum)+1)
	if err != nil {
		return err
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	if err := f.x.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
	}
	f.dirty = true
	return nil
}

package workbook

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warehouse.xlsx")
	require.NoError(t, Create(path, map[string][]string{
		"Ledger": {"Pallet_ID", "GRN_ID", "Qty"},
		"Status": {"Pallet_ID", "Current_Qty"},
	}, "Ledger", "Status"))
	return New(path)
}

func TestCreateRejectsExistingFile(t *testing.T) {
	book := newTestBook(t)
	err := Create(book.Path(), map[string][]string{"X": {"A"}})
	require.Error(t, err)
}

func TestAppendAndReadBack(t *testing.T) {
	book := newTestBook(t)

	var rowNum int64
	require.NoError(t, book.Update(func(f *File) error {
		s, err := f.Sheet("Ledger")
		if err != nil {
			return err
		}
		rowNum, err = f.AppendRow(s, map[string]string{"Pallet_ID": "P1", "Qty": "10", "Ignored": "x"})
		return err
	}))
	assert.Equal(t, int64(1), rowNum)

	require.NoError(t, book.View(func(f *File) error {
		s, err := f.Sheet("Ledger")
		require.NoError(t, err)
		assert.Equal(t, []string{"Pallet_ID", "GRN_ID", "Qty"}, s.Columns())
		require.Len(t, s.Rows, 1)
		assert.Equal(t, "P1", s.Value(s.Rows[0], "Pallet_ID"))
		assert.Equal(t, "", s.Value(s.Rows[0], "GRN_ID"))
		assert.Equal(t, "10", s.Value(s.Rows[0], "Qty"))
		assert.Equal(t, "", s.Value(s.Rows[0], "Missing"))
		return nil
	}))
}

func TestSetValuesUpdatesOnlyNamedCells(t *testing.T) {
	book := newTestBook(t)
	require.NoError(t, book.Update(func(f *File) error {
		s, err := f.Sheet("Status")
		if err != nil {
			return err
		}
		if _, err := f.AppendRow(s, map[string]string{"Pallet_ID": "P1", "Current_Qty": "5"}); err != nil {
			return err
		}
		_, err = f.AppendRow(s, map[string]string{"Pallet_ID": "P2", "Current_Qty": "7"})
		return err
	}))

	require.NoError(t, book.Update(func(f *File) error {
		s, err := f.Sheet("Status")
		if err != nil {
			return err
		}
		return f.SetValues(s, 2, map[string]string{"Current_Qty": "0"})
	}))

	require.NoError(t, book.View(func(f *File) error {
		s, err := f.Sheet("Status")
		require.NoError(t, err)
		require.Len(t, s.Rows, 2)
		assert.Equal(t, "5", s.Value(s.Rows[0], "Current_Qty"))
		assert.Equal(t, "P2", s.Value(s.Rows[1], "Pallet_ID"))
		assert.Equal(t, "0", s.Value(s.Rows[1], "Current_Qty"))
		return nil
	}))
}

func TestSetValuesRejectsOutOfRangeRow(t *testing.T) {
	book := newTestBook(t)
	err := book.Update(func(f *File) error {
		s, err := f.Sheet("Status")
		if err != nil {
			return err
		}
		return f.SetValues(s, 1, map[string]string{"Current_Qty": "1"})
	})
	require.Error(t, err)
}

func TestMissingSheet(t *testing.T) {
	book := newTestBook(t)
	err := book.View(func(f *File) error {
		_, err := f.Sheet("Nope")
		return err
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSheetNotFound))
}

func TestOpenMissingWorkbook(t *testing.T) {
	book := New(filepath.Join(t.TempDir(), "missing.xlsx"))
	err := book.View(func(*File) error { return nil })
	require.Error(t, err)
}

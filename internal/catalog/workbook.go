package catalog

import (
	"errors"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet name used when writing workbooks.
const SheetName = "products"

// ReadWorkbook reads the first worksheet of an xlsx document. Cells stored
// as numbers come back as float64, everything else as string; blank cells
// are nil.
func ReadWorkbook(r io.Reader) (RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return RawTable{}, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return RawTable{}, errors.New("workbook has no worksheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return RawTable{}, err
	}
	if len(rows) == 0 {
		return RawTable{}, nil
	}

	table := RawTable{Header: rows[0], Rows: make([][]any, 0, len(rows)-1)}
	for r := 1; r < len(rows); r++ {
		cells := make([]any, len(rows[r]))
		for c, value := range rows[r] {
			if value == "" {
				continue
			}
			cells[c] = value
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return RawTable{}, err
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				return RawTable{}, err
			}
			if typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset {
				if n, err := strconv.ParseFloat(value, 64); err == nil {
					cells[c] = n
				}
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// WriteWorkbook writes table as a single-sheet xlsx document.
func WriteWorkbook(w io.Writer, table RawTable) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	header := make([]any, len(table.Header))
	for i, name := range table.Header {
		header[i] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, row := range table.Rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(SheetName, axis, &values); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}

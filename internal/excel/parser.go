package excel

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"school-results-db/pkg/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// XLSXDecoder reads Office Open XML workbooks.
type XLSXDecoder struct{}

func (d *XLSXDecoder) Decode(ctx context.Context, data []byte) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", errors.ErrInvalidFileFormat, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ErrInvalidFileFormat
	}

	sheetName := sheets[0]
	rows, err := file.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	convert := func(rowIdx, colIdx int, raw string) any {
		if strings.TrimSpace(raw) == "" {
			return nil
		}
		cellName, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
		if err != nil {
			return raw
		}
		cellType, err := file.GetCellType(sheetName, cellName)
		if err != nil {
			return raw
		}
		if cellType == excelize.CellTypeNumber || cellType == excelize.CellTypeUnset {
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				return n
			}
		}
		return raw
	}

	return requireRows(buildSheet(rows, convert))
}

// XLSDecoder reads legacy BIFF workbooks as text. The xls reader panics on
// some malformed streams, so panics surface as ErrInvalidFileFormat.
type XLSDecoder struct{}

func (d *XLSDecoder) Decode(ctx context.Context, data []byte) (sheet *Sheet, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			sheet = nil
			err = fmt.Errorf("%w: corrupt Excel 97-2003 file: %v", errors.ErrInvalidFileFormat, r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel 97-2003 file: %v", errors.ErrInvalidFileFormat, err)
	}
	if workbook == nil {
		return nil, fmt.Errorf("%w: no Workbook stream", errors.ErrInvalidFileFormat)
	}

	first := workbook.GetSheet(0)
	if first == nil {
		return nil, errors.ErrInvalidFileFormat
	}

	// Rows without cells come back nil and are skipped by buildSheet.
	rows := workbook.ReadAllCells(int(first.MaxRow) + 1)
	return requireRows(buildSheet(rows, textCell))
}

// CSVDecoder reads comma separated text. All cells stay strings.
type CSVDecoder struct{}

func (d *CSVDecoder) Decode(ctx context.Context, data []byte) (*Sheet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV file: %v", errors.ErrInvalidFileFormat, err)
	}

	return requireRows(buildSheet(rows, textCell))
}

func requireRows(sheet *Sheet) (*Sheet, error) {
	if len(sheet.Rows) == 0 {
		return nil, errors.ErrEmptyFile
	}
	return sheet, nil
}

package excel

import (
	"strings"
)

// RawRow maps a header to its cell. Values are string, float64 or nil.
type RawRow map[string]any

// Sheet is the first worksheet of an uploaded file.
type Sheet struct {
	Headers []string
	Rows    []RawRow
}

func (s *Sheet) HasHeader(name string) bool {
	for _, h := range s.Headers {
		if h == name {
			return true
		}
	}
	return false
}

type cellConverter func(rowIdx, colIdx int, raw string) any

func textCell(_, _ int, raw string) any {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return raw
}

// buildSheet treats the first non-blank row as the header and maps every
// following non-blank row onto it. Columns with an empty header are dropped
// and only the first of several identical headers is kept.
func buildSheet(rows [][]string, convert cellConverter) *Sheet {
	start := 0
	for start < len(rows) && isBlank(rows[start]) {
		start++
	}
	if start >= len(rows) {
		return &Sheet{}
	}

	sheet := &Sheet{}
	columns := make(map[int]string)
	seen := make(map[string]bool)
	for i, col := range rows[start] {
		header := strings.TrimSpace(col)
		if header == "" || seen[header] {
			continue
		}
		seen[header] = true
		columns[i] = header
		sheet.Headers = append(sheet.Headers, header)
	}

	for r := start + 1; r < len(rows); r++ {
		row := rows[r]
		if isBlank(row) {
			continue
		}

		raw := make(RawRow, len(columns))
		for i, header := range columns {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			raw[header] = convert(r, i, cell)
		}
		sheet.Rows = append(sheet.Rows, raw)
	}

	return sheet
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

package excel

import (
	"context"
	"fmt"

	"school-results-db/pkg/errors"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

// Decoder turns an uploaded file into the rows of its first sheet.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*Sheet, error)
}

func NewDecoder(format Format) (Decoder, error) {
	switch format {
	case FormatXLSX:
		return &XLSXDecoder{}, nil
	case FormatXLS:
		return &XLSDecoder{}, nil
	case FormatCSV:
		return &CSVDecoder{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidFileFormat, format)
	}
}

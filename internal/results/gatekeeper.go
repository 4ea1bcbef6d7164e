package results

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"school-results-db/internal/excel"
	"school-results-db/pkg/errors"
)

// AllowedTypes is reported back to callers that send an unsupported file.
var AllowedTypes = []string{"xlsx", "xls", "csv"}

var mimeFormats = map[string]excel.Format{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": excel.FormatXLSX,
	"application/vnd.ms-excel": excel.FormatXLS,
	"text/csv":                 excel.FormatCSV,
	"application/csv":          excel.FormatCSV,
}

var extensionFormats = map[string]excel.Format{
	".xlsx": excel.FormatXLSX,
	".xls":  excel.FormatXLS,
	".csv":  excel.FormatCSV,
}

type FileHeader struct {
	Filename    string
	ContentType string
	Size        int64
}

// Gatekeeper inspects upload metadata before any bytes are parsed.
type Gatekeeper struct {
	MaxSize int64
}

// Check returns the decoder format for the file. The extension wins over
// the declared MIME type when both are recognised.
func (g Gatekeeper) Check(file FileHeader) (excel.Format, error) {
	format, ok := extensionFormats[strings.ToLower(filepath.Ext(file.Filename))]
	if !ok {
		mediaType, _, err := mime.ParseMediaType(file.ContentType)
		if err == nil {
			format, ok = mimeFormats[strings.ToLower(mediaType)]
		}
	}
	if !ok {
		return "", NewError(errors.ErrInvalidFileFormat,
			"Invalid file type. Please upload an Excel (.xlsx, .xls) or CSV file").
			With("allowedTypes", AllowedTypes)
	}

	if g.MaxSize > 0 && file.Size > g.MaxSize {
		return "", NewError(errors.ErrFileTooLarge,
			fmt.Sprintf("File size exceeds the %d MB limit", g.MaxSize>>20)).
			With("maxFileSize", g.MaxSize)
	}

	return format, nil
}

package results

import (
	"testing"

	"school-results-db/internal/excel"
	"school-results-db/internal/model"
	"school-results-db/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func partitionRows(classes ...string) []excel.RawRow {
	rows := make([]excel.RawRow, len(classes))
	for i, c := range classes {
		rows[i] = excel.RawRow{"Academic Year": "2025-2026", "Class": c}
	}
	return rows
}

func TestResolvePartition(t *testing.T) {
	p, ok := ResolvePartition([]excel.RawRow{{"Academic Year": " 2025-2026 ", "Class": float64(9)}})
	require.True(t, ok)
	assert.Equal(t, model.Partition{AcademicYear: "2025-2026", ClassName: "9"}, p)

	_, ok = ResolvePartition([]excel.RawRow{{"Academic Year": "2025-2026"}})
	assert.False(t, ok)

	_, ok = ResolvePartition(nil)
	assert.False(t, ok)
}

func TestPartitionMismatchesReportsSheetRows(t *testing.T) {
	rows := partitionRows("9", "9", "9", "9", "10", "9")
	p, _ := ResolvePartition(rows)

	assert.Equal(t, []int{6}, PartitionMismatches(rows, p))
}

func TestPartitionMismatchesCapped(t *testing.T) {
	classes := []string{"9"}
	for i := 0; i < 25; i++ {
		classes = append(classes, "10")
	}
	rows := partitionRows(classes...)
	p, _ := ResolvePartition(rows)

	bad := PartitionMismatches(rows, p)
	require.Len(t, bad, 10)
	assert.Equal(t, 3, bad[0])
	assert.Equal(t, 12, bad[9])
}

func normalized(row int, roll string) NormalizedRow {
	return NormalizedRow{Row: row, Record: model.ExamResult{
		RollNumber:   roll,
		Name:         "Student " + roll,
		AcademicYear: "2025-2026",
		ClassName:    "9",
	}}
}

func TestFileDuplicatesReportsLaterOccurrences(t *testing.T) {
	dups := FileDuplicates([]NormalizedRow{
		normalized(2, "1"),
		normalized(3, "2"),
		normalized(4, "1"),
		normalized(5, "1"),
	})

	require.Len(t, dups, 2)
	assert.Equal(t, 4, dups[0].Row)
	assert.Equal(t, 5, dups[1].Row)
	assert.Contains(t, dups[0].Error, "first seen in row 2")
}

func TestStoreDuplicatesNamesExistingStudent(t *testing.T) {
	p := model.Partition{AcademicYear: "2025-2026", ClassName: "9"}
	dups := StoreDuplicates(
		[]NormalizedRow{normalized(2, "1"), normalized(3, "2")},
		[]model.ExistingResult{{RollNumber: "2", Name: "Hina"}},
		p,
	)

	require.Len(t, dups, 1)
	assert.Equal(t, 3, dups[0].Row)
	assert.Equal(t, "2", dups[0].RollNumber)
	assert.Equal(t, "Hina", dups[0].StudentName)
}

func TestGatekeeper(t *testing.T) {
	g := Gatekeeper{MaxSize: 50 << 20}

	format, err := g.Check(FileHeader{Filename: "Results.XLSX", ContentType: "application/octet-stream", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, excel.FormatXLSX, format)

	format, err = g.Check(FileHeader{Filename: "upload", ContentType: "text/csv; charset=utf-8", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, excel.FormatCSV, format)

	format, err = g.Check(FileHeader{Filename: "old.xls", ContentType: "text/csv", Size: 10})
	require.NoError(t, err)
	assert.Equal(t, excel.FormatXLS, format)

	_, err = g.Check(FileHeader{Filename: "photo.png", ContentType: "image/png", Size: 10})
	var pe *Error
	require.True(t, errors.As(err, &pe))
	assert.True(t, errors.Is(err, errors.ErrInvalidFileFormat))
	assert.Equal(t, AllowedTypes, pe.Details["allowedTypes"])

	_, err = g.Check(FileHeader{Filename: "big.csv", Size: 50<<20 + 1})
	assert.True(t, errors.Is(err, errors.ErrFileTooLarge))

	_, err = g.Check(FileHeader{Filename: "limit.csv", Size: 50 << 20})
	assert.NoError(t, err)
}

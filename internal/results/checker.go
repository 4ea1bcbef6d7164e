package results

import (
	"fmt"

	"school-results-db/internal/excel"
	"school-results-db/internal/model"
)

const maxReportedMismatches = 10

// ResolvePartition reads the partition from the first data row. ok is false
// when either value is blank.
func ResolvePartition(rows []excel.RawRow) (p model.Partition, ok bool) {
	if len(rows) == 0 {
		return p, false
	}
	p = model.Partition{
		AcademicYear: cellText(rows[0][colAcademicYear]),
		ClassName:    cellText(rows[0][colClass]),
	}
	return p, p.AcademicYear != "" && p.ClassName != ""
}

// PartitionMismatches lists the sheet rows whose academic year or class
// differ from p, at most maxReportedMismatches of them.
func PartitionMismatches(rows []excel.RawRow, p model.Partition) []int {
	var bad []int
	for i, row := range rows {
		if cellText(row[colAcademicYear]) == p.AcademicYear && cellText(row[colClass]) == p.ClassName {
			continue
		}
		bad = append(bad, sheetRow(i))
		if len(bad) == maxReportedMismatches {
			break
		}
	}
	return bad
}

// FileDuplicates reports every repeat of an identity key after its first
// occurrence.
func FileDuplicates(rows []NormalizedRow) []model.RowError {
	first := make(map[string]int, len(rows))
	var dups []model.RowError
	for _, r := range rows {
		key := r.Record.IdentityKey()
		if firstRow, seen := first[key]; seen {
			dups = append(dups, model.RowError{
				Row:         r.Row,
				RollNumber:  r.Record.RollNumber,
				StudentName: r.Record.Name,
				Error:       fmt.Sprintf("Duplicate Roll Number %s (first seen in row %d)", r.Record.RollNumber, firstRow),
			})
			continue
		}
		first[key] = r.Row
	}
	return dups
}

// StoreDuplicates pairs persisted collisions with the incoming rows.
func StoreDuplicates(rows []NormalizedRow, existing []model.ExistingResult, p model.Partition) []model.RowError {
	rowByRoll := make(map[string]int, len(rows))
	for _, r := range rows {
		if _, ok := rowByRoll[r.Record.RollNumber]; !ok {
			rowByRoll[r.Record.RollNumber] = r.Row
		}
	}

	dups := make([]model.RowError, 0, len(existing))
	for _, e := range existing {
		dups = append(dups, model.RowError{
			Row:         rowByRoll[e.RollNumber],
			RollNumber:  e.RollNumber,
			StudentName: e.Name,
			Error: fmt.Sprintf("Result for Roll Number %s (%s) already exists for %s, class %s",
				e.RollNumber, e.Name, p.AcademicYear, p.ClassName),
		})
	}
	return dups
}

func rollNumbers(rows []NormalizedRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record.RollNumber
	}
	return out
}

func records(rows []NormalizedRow) []model.ExamResult {
	out := make([]model.ExamResult, len(rows))
	for i, r := range rows {
		out[i] = r.Record
	}
	return out
}

package results

import (
	"fmt"
	"strings"
	"time"

	"school-results-db/internal/excel"
	"school-results-db/internal/model"
)

const (
	colName         = "Name"
	colRollNumber   = "Roll Number"
	colFatherName   = "Father Name"
	colTotalMarks   = "Total Marks"
	colObtainMarks  = "Obtain Marks"
	colPercentage   = "Percentage"
	colStatus       = "Status"
	colGrade        = "Grade"
	colAcademicYear = "Academic Year"
	colClass        = "Class"

	subjectMarker = "*"

	// maxPercentage is the largest value exam_results.percentage can hold.
	maxPercentage = 999.99
)

type subjectColumn struct {
	header string
	name   string
}

// Provenance is stamped onto every record of one upload.
type Provenance struct {
	Filename   string
	UploadedAt time.Time
}

// NormalizedRow keeps the sheet row number next to its record so later
// checks can point back at the source.
type NormalizedRow struct {
	Row    int
	Record model.ExamResult
}

// Normalizer turns raw sheet rows into exam results.
type Normalizer struct {
	subjects []subjectColumn
}

// NewNormalizer discovers subject columns: headers ending in "*" whose
// stripped name is neither empty nor one of the fixed columns.
func NewNormalizer(headers []string) *Normalizer {
	n := &Normalizer{}
	seen := make(map[string]bool)
	for _, h := range headers {
		if !strings.HasSuffix(h, subjectMarker) {
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(h, subjectMarker))
		if name == "" || excel.IsRequiredHeader(name) || seen[name] {
			continue
		}
		seen[name] = true
		n.subjects = append(n.subjects, subjectColumn{header: h, name: name})
	}
	return n
}

func (n *Normalizer) Subjects() []string {
	names := make([]string, len(n.subjects))
	for i, s := range n.subjects {
		names[i] = s.name
	}
	return names
}

// NormalizeAll processes every row. A bad row never stops the rows after it.
func (n *Normalizer) NormalizeAll(rows []excel.RawRow, prov Provenance) ([]NormalizedRow, []model.RowError) {
	var (
		out  []NormalizedRow
		errs []model.RowError
	)
	for i, row := range rows {
		record, rowErr := n.Normalize(i, row, prov)
		if rowErr != nil {
			errs = append(errs, *rowErr)
			continue
		}
		out = append(out, NormalizedRow{Row: sheetRow(i), Record: record})
	}
	return out, errs
}

// Normalize converts the row at zero-based data index i.
func (n *Normalizer) Normalize(i int, row excel.RawRow, prov Provenance) (model.ExamResult, *model.RowError) {
	rollNumber := cellText(row[colRollNumber])
	name := cellText(row[colName])

	if rollNumber == "" {
		return model.ExamResult{}, &model.RowError{
			Row:         sheetRow(i),
			StudentName: name,
			Error:       "Roll Number is required",
		}
	}
	if name == "" {
		name = fmt.Sprintf("Student %d", i+1)
	}

	subjects := make(model.Subjects, len(n.subjects))
	var obtained, maxTotal float64
	for _, s := range n.subjects {
		marks, offered := ParseMark(row[s.header])
		subjects[s.name] = model.SubjectMark{
			Marks:    marks,
			Offered:  offered,
			MaxMarks: model.SubjectMaxMarks,
		}
		if offered {
			obtained += marks
			maxTotal += model.SubjectMaxMarks
		}
	}

	totalMarks := nonZeroOr(row[colTotalMarks], maxTotal)
	obtainMarks := nonZeroOr(row[colObtainMarks], obtained)

	percentage := nonZeroOr(row[colPercentage], 0)
	if percentage == 0 && maxTotal > 0 {
		percentage = obtainMarks / maxTotal * 100
	}
	percentage = Round2(percentage)
	if percentage > maxPercentage || percentage < -maxPercentage {
		return model.ExamResult{}, &model.RowError{
			Row:         sheetRow(i),
			RollNumber:  rollNumber,
			StudentName: name,
			Error:       fmt.Sprintf("Percentage %v is out of range", percentage),
		}
	}

	grade := cellText(row[colGrade])
	if grade == "" {
		grade = DeriveGrade(percentage)
	}

	status := strings.ToUpper(cellText(row[colStatus]))
	if status == "" {
		status = DeriveStatus(percentage)
	}

	var fatherName *string
	if v := cellText(row[colFatherName]); v != "" {
		fatherName = &v
	}

	return model.ExamResult{
		RollNumber:       rollNumber,
		Name:             name,
		FatherName:       fatherName,
		AcademicYear:     cellText(row[colAcademicYear]),
		ClassName:        cellText(row[colClass]),
		Subjects:         subjects,
		TotalMarks:       totalMarks,
		ObtainMarks:      obtainMarks,
		Percentage:       percentage,
		Status:           status,
		Grade:            grade,
		UploadedFilename: prov.Filename,
		UploadedAt:       prov.UploadedAt,
		CreatedAt:        prov.UploadedAt,
		UpdatedAt:        prov.UploadedAt,
	}, nil
}

// sheetRow converts a zero-based data index to the 1-based sheet row,
// counting the header.
func sheetRow(i int) int {
	return i + 2
}

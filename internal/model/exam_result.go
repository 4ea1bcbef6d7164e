package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"

	// SubjectMaxMarks is the ceiling applied to every offered subject.
	SubjectMaxMarks = 100
)

type SubjectMark struct {
	Marks    float64 `json:"marks"`
	Offered  bool    `json:"offered"`
	MaxMarks float64 `json:"max_marks"`
}

// Subjects is stored as a JSON column keyed by subject name.
type Subjects map[string]SubjectMark

func (s Subjects) Value() (driver.Value, error) {
	if s == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s)
}

func (s *Subjects) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = Subjects{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported subjects column type %T", src)
	}
	return json.Unmarshal(data, s)
}

// Partition scopes an upload, a duplicate check and a delete.
type Partition struct {
	AcademicYear string `json:"academic_year"`
	ClassName    string `json:"class_name"`
}

func (p Partition) String() string {
	return p.AcademicYear + "/" + p.ClassName
}

type ExamResult struct {
	ID               int64     `json:"id" db:"id"`
	RollNumber       string    `json:"roll_number" db:"roll_number"`
	Name             string    `json:"name" db:"name"`
	FatherName       *string   `json:"father_name,omitempty" db:"father_name"`
	AcademicYear     string    `json:"academic_year" db:"academic_year"`
	ClassName        string    `json:"class_name" db:"class_name"`
	Subjects         Subjects  `json:"subjects" db:"subjects"`
	TotalMarks       float64   `json:"total_marks" db:"total_marks"`
	ObtainMarks      float64   `json:"obtain_marks" db:"obtain_marks"`
	Percentage       float64   `json:"percentage" db:"percentage"`
	Status           string    `json:"status" db:"status"`
	Grade            string    `json:"grade" db:"grade"`
	UploadedFilename string    `json:"uploaded_filename" db:"uploaded_filename"`
	UploadedAt       time.Time `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

func (r ExamResult) Partition() Partition {
	return Partition{AcademicYear: r.AcademicYear, ClassName: r.ClassName}
}

// IdentityKey is the dedup key roll_number|academic_year|class_name.
func (r ExamResult) IdentityKey() string {
	return r.RollNumber + "|" + r.AcademicYear + "|" + r.ClassName
}

// ExistingResult is the slice of a persisted row needed to report a collision.
type ExistingResult struct {
	RollNumber string `json:"roll_number" db:"roll_number"`
	Name       string `json:"name" db:"name"`
}

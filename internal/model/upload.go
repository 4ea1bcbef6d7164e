package model

import "time"

type UploadHistoryEntry struct {
	ID           int64     `json:"id" db:"id"`
	Filename     string    `json:"filename" db:"filename"`
	FileSize     int64     `json:"file_size" db:"file_size"`
	AcademicYear string    `json:"academic_year" db:"academic_year"`
	ClassName    string    `json:"class_name" db:"class_name"`
	TotalRecords int       `json:"total_records" db:"total_records"`
	UploadedBy   string    `json:"uploaded_by" db:"uploaded_by"`
	StorageKey   *string   `json:"storage_key,omitempty" db:"storage_key"`
	UploadedAt   time.Time `json:"uploaded_at" db:"uploaded_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (u UploadHistoryEntry) Partition() Partition {
	return Partition{AcademicYear: u.AcademicYear, ClassName: u.ClassName}
}

func (u UploadHistoryEntry) HasArchive() bool {
	return u.StorageKey != nil && *u.StorageKey != ""
}

// CleanupJob asks the cleanup worker to remove an archived spreadsheet.
type CleanupJob struct {
	StorageKey string `json:"storage_key"`
	UploadID   int64  `json:"upload_id,omitempty"`
	Reason     string `json:"reason"`
}

const (
	CleanupReasonDeleted     = "upload_deleted"
	CleanupReasonWriteFailed = "write_failed"
)

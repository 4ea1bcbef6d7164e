package model

import "time"

// RowError describes why one spreadsheet row was rejected. Row is the
// 1-based sheet row, counting the header.
type RowError struct {
	Row         int    `json:"row,omitempty"`
	RollNumber  string `json:"rollNumber,omitempty"`
	StudentName string `json:"studentName,omitempty"`
	Error       string `json:"error"`
}

type FileInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Type       string `json:"type"`
	StorageKey string `json:"storageKey,omitempty"`
}

type ProcessingStats struct {
	TotalRows       int      `json:"totalRows"`
	ValidRecords    int      `json:"validRecords"`
	InsertedRecords int      `json:"insertedRecords"`
	Batches         int      `json:"batches"`
	Subjects        []string `json:"subjects"`
	AcademicYear    string   `json:"academicYear"`
	ClassName       string   `json:"className"`
}

type UploadSummary struct {
	UploadID        int64           `json:"uploadId"`
	FileInfo        FileInfo        `json:"fileInfo"`
	ProcessingStats ProcessingStats `json:"processingStats"`
}

type ExistingUpload struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	UploadedAt   time.Time `json:"uploadedAt"`
	TotalRecords int       `json:"totalRecords"`
}

func NewExistingUpload(u UploadHistoryEntry) ExistingUpload {
	return ExistingUpload{
		ID:           u.ID,
		Filename:     u.Filename,
		UploadedAt:   u.UploadedAt,
		TotalRecords: u.TotalRecords,
	}
}

type UploadStatistics struct {
	TotalResults int64 `json:"totalResults"`
	TotalUploads int64 `json:"totalUploads"`
}

type UploadListing struct {
	Uploads     []UploadHistoryEntry `json:"uploads"`
	Statistics  UploadStatistics     `json:"statistics"`
	CurrentYear string               `json:"currentYear"`
}

type DeleteSummary struct {
	DeletedExamResults int64  `json:"deletedExamResults"`
	AcademicYear       string `json:"academicYear"`
	ClassName          string `json:"className"`
	DeletedUploadID    int64  `json:"deletedUploadId"`
}

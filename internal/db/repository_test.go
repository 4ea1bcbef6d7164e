package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"
	"time"

	"school-results-db/internal/model"
	"school-results-db/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testPartition = model.Partition{AcademicYear: "2025-2026", ClassName: "9"}
	testTime      = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func uploadRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "filename", "file_size", "academic_year", "class_name", "total_records",
		"uploaded_by", "storage_key", "uploaded_at", "created_at",
	})
}

func sampleResults(n int) []model.ExamResult {
	out := make([]model.ExamResult, n)
	for i := range out {
		out[i] = model.ExamResult{
			RollNumber:   fmt.Sprint(i + 1),
			Name:         "Student",
			AcademicYear: testPartition.AcademicYear,
			ClassName:    testPartition.ClassName,
			Subjects:     model.Subjects{"Math": {Marks: 50, Offered: true, MaxMarks: 100}},
			TotalMarks:   100,
			ObtainMarks:  50,
			Percentage:   50,
			Status:       model.StatusPass,
			Grade:        "D",
			UploadedAt:   testTime,
		}
	}
	return out
}

func TestSaveUploadCommitsAllBatches(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO upload_history").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO exam_results").
		WillReturnResult(sqlmock.NewResult(1, 100))
	mock.ExpectExec("INSERT INTO exam_results").
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectCommit()

	entry := &model.UploadHistoryEntry{Filename: "r.xlsx", AcademicYear: "2025-2026", ClassName: "9", TotalRecords: 101}
	batches, err := repo.SaveUpload(context.Background(), entry, sampleResults(101), 100)
	require.NoError(t, err)
	assert.Equal(t, 2, batches)
	assert.Equal(t, int64(7), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUploadRollsBackOnChunkFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO upload_history").
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec("INSERT INTO exam_results").
		WillReturnResult(sqlmock.NewResult(1, 100))
	mock.ExpectExec("INSERT INTO exam_results").
		WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectRollback()

	entry := &model.UploadHistoryEntry{Filename: "r.xlsx", AcademicYear: "2025-2026", ClassName: "9"}
	_, err := repo.SaveUpload(context.Background(), entry, sampleResults(101), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert batch 2")
	assert.Contains(t, err.Error(), "connection reset")
	assert.Zero(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUploadMapsDuplicateKey(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO upload_history").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '2025-2026-9'"})
	mock.ExpectRollback()

	_, err := repo.SaveUpload(context.Background(), &model.UploadHistoryEntry{}, sampleResults(1), 100)
	assert.True(t, errors.Is(err, errors.ErrUploadExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveUploadBindsEveryColumn(t *testing.T) {
	repo, mock := newMock(t)

	results := sampleResults(2)
	father := "Imran"
	results[1].FatherName = &father

	args := []driver.Value{}
	for _, r := range results {
		args = append(args,
			r.RollNumber, r.Name, sqlmock.AnyArg(), r.AcademicYear, r.ClassName, sqlmock.AnyArg(),
			r.TotalMarks, r.ObtainMarks, r.Percentage, r.Status, r.Grade, r.UploadedFilename, r.UploadedAt)
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO upload_history").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?), (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(1, 2))
	mock.ExpectCommit()

	batches, err := repo.SaveUpload(context.Background(), &model.UploadHistoryEntry{}, results, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, batches)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUploadByPartition(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM upload_history").
		WithArgs("2025-2026", "9").
		WillReturnRows(uploadRows().AddRow(3, "r.xlsx", 2048, "2025-2026", "9", 40, "admin@school.test", "uploads/k", testTime, testTime))

	u, err := repo.FindUploadByPartition(context.Background(), testPartition)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, 40, u.TotalRecords)
	require.NotNil(t, u.StorageKey)
	assert.Equal(t, "uploads/k", *u.StorageKey)

	mock.ExpectQuery("FROM upload_history").
		WithArgs("2025-2026", "10").
		WillReturnRows(uploadRows())

	_, err = repo.FindUploadByPartition(context.Background(), model.Partition{AcademicYear: "2025-2026", ClassName: "10"})
	assert.True(t, errors.Is(err, errors.ErrUploadNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindExistingResultsChunksRollNumbers(t *testing.T) {
	repo, mock := newMock(t)

	rolls := make([]string, lookupChunk+3)
	for i := range rolls {
		rolls[i] = fmt.Sprint(i + 1)
	}

	mock.ExpectQuery("roll_number IN").
		WillReturnRows(sqlmock.NewRows([]string{"roll_number", "name"}).AddRow("2", "Hina"))
	mock.ExpectQuery("roll_number IN").
		WillReturnRows(sqlmock.NewRows([]string{"roll_number", "name"}).AddRow("502", "Omar"))

	existing, err := repo.FindExistingResults(context.Background(), testPartition, rolls)
	require.NoError(t, err)
	assert.Equal(t, []model.ExistingResult{{RollNumber: "2", Name: "Hina"}, {RollNumber: "502", Name: "Omar"}}, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindExistingResultsNoRollNumbers(t *testing.T) {
	repo, mock := newMock(t)

	existing, err := repo.FindExistingResults(context.Background(), testPartition, nil)
	require.NoError(t, err)
	assert.Empty(t, existing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUploadsAndCounts(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("ORDER BY uploaded_at DESC").
		WithArgs(50).
		WillReturnRows(uploadRows().
			AddRow(2, "b.csv", 10, "2025-2026", "10", 5, "", nil, testTime, testTime).
			AddRow(1, "a.csv", 10, "2025-2026", "9", 3, "", nil, testTime, testTime))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM exam_results")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM upload_history")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	uploads, err := repo.ListUploads(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, int64(2), uploads[0].ID)
	assert.Nil(t, uploads[0].StorageKey)

	results, err := repo.CountResults(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(8), results)

	total, err := repo.CountUploads(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUploadNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery("FROM upload_history WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUpload(context.Background(), 99)
	assert.True(t, errors.Is(err, errors.ErrUploadNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUploadRunsInOneTransaction(t *testing.T) {
	repo, mock := newMock(t)
	entry := model.UploadHistoryEntry{ID: 4, AcademicYear: "2025-2026", ClassName: "9"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM exam_results WHERE")).
		WithArgs("2025-2026", "9").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))
	mock.ExpectExec("DELETE FROM exam_results").
		WithArgs("2025-2026", "9").
		WillReturnResult(sqlmock.NewResult(0, 40))
	mock.ExpectExec("DELETE FROM upload_history").
		WithArgs(int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.DeleteUpload(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, int64(40), deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUploadRollsBackWhenParentGone(t *testing.T) {
	repo, mock := newMock(t)
	entry := model.UploadHistoryEntry{ID: 4, AcademicYear: "2025-2026", ClassName: "9"}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM exam_results").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM upload_history").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.DeleteUpload(context.Background(), entry)
	assert.True(t, errors.Is(err, errors.ErrUploadNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindResult(t *testing.T) {
	repo, mock := newMock(t)

	cols := []string{
		"id", "roll_number", "name", "father_name", "academic_year", "class_name", "subjects",
		"total_marks", "obtain_marks", "percentage", "status", "grade", "uploaded_filename",
		"uploaded_at", "created_at", "updated_at",
	}
	mock.ExpectQuery("FROM exam_results").
		WithArgs("101", "2025-2026", "9").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			1, "101", "Ali", "Imran", "2025-2026", "9",
			[]byte(`{"Math":{"marks":90,"offered":true,"max_marks":100}}`),
			100.0, 90.0, 90.0, "PASS", "A+", "r.xlsx", testTime, testTime, testTime))

	res, err := repo.FindResult(context.Background(), "101", testPartition)
	require.NoError(t, err)
	assert.Equal(t, "Ali", res.Name)
	require.NotNil(t, res.FatherName)
	assert.Equal(t, "Imran", *res.FatherName)
	assert.Equal(t, model.SubjectMark{Marks: 90, Offered: true, MaxMarks: 100}, res.Subjects["Math"])

	mock.ExpectQuery("FROM exam_results").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindResult(context.Background(), "102", testPartition)
	assert.True(t, errors.Is(err, errors.ErrResultNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS upload_history").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS exam_results").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, ApplySchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

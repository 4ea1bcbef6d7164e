package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"school-results-db/internal/model"
	"school-results-db/pkg/errors"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDuplicateEntry = 1062

	// lookupChunk bounds the IN list of a single existence query.
	lookupChunk = 500
)

const uploadColumns = `id, filename, file_size, academic_year, class_name, total_records,
	uploaded_by, storage_key, uploaded_at, created_at`

const resultColumns = `id, roll_number, name, father_name, academic_year, class_name, subjects,
	total_marks, obtain_marks, percentage, status, grade, uploaded_filename,
	uploaded_at, created_at, updated_at`

const resultInsertColumns = `roll_number, name, father_name, academic_year, class_name, subjects,
	total_marks, obtain_marks, percentage, status, grade, uploaded_filename, uploaded_at`

const resultPlaceholders = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(row scanner) (*model.UploadHistoryEntry, error) {
	var u model.UploadHistoryEntry
	var storageKey sql.NullString
	err := row.Scan(&u.ID, &u.Filename, &u.FileSize, &u.AcademicYear, &u.ClassName,
		&u.TotalRecords, &u.UploadedBy, &storageKey, &u.UploadedAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	if storageKey.Valid {
		u.StorageKey = &storageKey.String
	}
	return &u, nil
}

func scanResult(row scanner) (*model.ExamResult, error) {
	var r model.ExamResult
	var fatherName sql.NullString
	err := row.Scan(&r.ID, &r.RollNumber, &r.Name, &fatherName, &r.AcademicYear, &r.ClassName,
		&r.Subjects, &r.TotalMarks, &r.ObtainMarks, &r.Percentage, &r.Status, &r.Grade,
		&r.UploadedFilename, &r.UploadedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if fatherName.Valid {
		r.FatherName = &fatherName.String
	}
	return &r, nil
}

func (r *Repository) FindUploadByPartition(ctx context.Context, p model.Partition) (*model.UploadHistoryEntry, error) {
	query := `SELECT ` + uploadColumns + ` FROM upload_history
		WHERE academic_year = ? AND class_name = ? LIMIT 1`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, p.AcademicYear, p.ClassName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrUploadNotFound
	}
	return u, err
}

// FindExistingResults returns stored rows of the partition whose roll number
// is in rollNumbers.
func (r *Repository) FindExistingResults(ctx context.Context, p model.Partition, rollNumbers []string) ([]model.ExistingResult, error) {
	var existing []model.ExistingResult

	for start := 0; start < len(rollNumbers); start += lookupChunk {
		end := start + lookupChunk
		if end > len(rollNumbers) {
			end = len(rollNumbers)
		}
		chunk := rollNumbers[start:end]

		query := `SELECT roll_number, name FROM exam_results
			WHERE academic_year = ? AND class_name = ? AND roll_number IN (` + placeholders(len(chunk)) + `)`
		args := make([]any, 0, len(chunk)+2)
		args = append(args, p.AcademicYear, p.ClassName)
		for _, roll := range chunk {
			args = append(args, roll)
		}

		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var e model.ExistingResult
			if err := rows.Scan(&e.RollNumber, &e.Name); err != nil {
				rows.Close()
				return nil, err
			}
			existing = append(existing, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return existing, nil
}

// SaveUpload writes the history entry and all results in one transaction,
// batchSize rows per INSERT. It returns the number of INSERT batches.
func (r *Repository) SaveUpload(ctx context.Context, entry *model.UploadHistoryEntry, results []model.ExamResult, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(results)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO upload_history
		(filename, file_size, academic_year, class_name, total_records, uploaded_by, storage_key, uploaded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Filename, entry.FileSize, entry.AcademicYear, entry.ClassName, entry.TotalRecords,
		entry.UploadedBy, entry.StorageKey, entry.UploadedAt, entry.CreatedAt)
	if err != nil {
		return 0, translateWriteError("insert upload history", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	batches := 0
	for start := 0; start < len(results); start += batchSize {
		end := start + batchSize
		if end > len(results) {
			end = len(results)
		}
		if err := insertResults(ctx, tx, results[start:end]); err != nil {
			return 0, translateWriteError(fmt.Sprintf("insert batch %d", batches+1), err)
		}
		batches++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	entry.ID = id
	return batches, nil
}

func insertResults(ctx context.Context, tx *sql.Tx, chunk []model.ExamResult) error {
	values := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*13)
	for i, res := range chunk {
		values[i] = resultPlaceholders
		args = append(args,
			res.RollNumber, res.Name, res.FatherName, res.AcademicYear, res.ClassName, res.Subjects,
			res.TotalMarks, res.ObtainMarks, res.Percentage, res.Status, res.Grade,
			res.UploadedFilename, res.UploadedAt)
	}

	query := `INSERT INTO exam_results (` + resultInsertColumns + `) VALUES ` + strings.Join(values, ", ")
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

func translateWriteError(op string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return fmt.Errorf("%s: %w: %s", op, errors.ErrUploadExists, me.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r *Repository) ListUploads(ctx context.Context, limit int) ([]model.UploadHistoryEntry, error) {
	query := `SELECT ` + uploadColumns + ` FROM upload_history
		ORDER BY uploaded_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := []model.UploadHistoryEntry{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, *u)
	}

	return uploads, rows.Err()
}

func (r *Repository) CountResults(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM exam_results`).Scan(&n)
	return n, err
}

func (r *Repository) CountUploads(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM upload_history`).Scan(&n)
	return n, err
}

func (r *Repository) GetUpload(ctx context.Context, id int64) (*model.UploadHistoryEntry, error) {
	query := `SELECT ` + uploadColumns + ` FROM upload_history WHERE id = ?`

	u, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrUploadNotFound
	}
	return u, err
}

// DeleteUpload removes the entry and every result of its partition in one
// transaction. It returns how many results were removed.
func (r *Repository) DeleteUpload(ctx context.Context, entry model.UploadHistoryEntry) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int64
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM exam_results WHERE academic_year = ? AND class_name = ?`,
		entry.AcademicYear, entry.ClassName).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM exam_results WHERE academic_year = ? AND class_name = ?`,
		entry.AcademicYear, entry.ClassName); err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM upload_history WHERE id = ?`, entry.ID)
	if err != nil {
		return 0, fmt.Errorf("delete upload history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, errors.ErrUploadNotFound
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) FindResult(ctx context.Context, rollNumber string, p model.Partition) (*model.ExamResult, error) {
	query := `SELECT ` + resultColumns + ` FROM exam_results
		WHERE roll_number = ? AND academic_year = ? AND class_name = ?`

	res, err := scanResult(r.db.QueryRowContext(ctx, query, rollNumber, p.AcademicYear, p.ClassName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.ErrResultNotFound
	}
	return res, err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

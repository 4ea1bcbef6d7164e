package results

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"school-results-db/internal/config"
	"school-results-db/internal/excel"
	"school-results-db/internal/logger"
	"school-results-db/internal/metrics"
	"school-results-db/internal/model"
	"school-results-db/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repository is the relational store behind the pipeline.
type Repository interface {
	FindUploadByPartition(ctx context.Context, p model.Partition) (*model.UploadHistoryEntry, error)
	FindExistingResults(ctx context.Context, p model.Partition, rollNumbers []string) ([]model.ExistingResult, error)
	SaveUpload(ctx context.Context, entry *model.UploadHistoryEntry, results []model.ExamResult, batchSize int) (int, error)
	ListUploads(ctx context.Context, limit int) ([]model.UploadHistoryEntry, error)
	CountResults(ctx context.Context) (int64, error)
	CountUploads(ctx context.Context) (int64, error)
	GetUpload(ctx context.Context, id int64) (*model.UploadHistoryEntry, error)
	DeleteUpload(ctx context.Context, entry model.UploadHistoryEntry) (int64, error)
	FindResult(ctx context.Context, rollNumber string, p model.Partition) (*model.ExamResult, error)
}

// Archive keeps the original spreadsheets.
type Archive interface {
	Upload(ctx context.Context, key, contentType string, data io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type CleanupQueue interface {
	EnqueueCleanupJob(ctx context.Context, job model.CleanupJob) error
}

type UploadInput struct {
	FileHeader
	Body       io.Reader
	UploadedBy string
}

type Options struct {
	MaxFileSize       int64
	BatchSize         int
	MaxReportedErrors int
}

func OptionsFromConfig(cfg config.UploadConfig) Options {
	return Options{
		MaxFileSize:       cfg.MaxFileSize,
		BatchSize:         cfg.BatchSize,
		MaxReportedErrors: cfg.MaxReportedErrors,
	}
}

type Option func(*Service)

func WithArchive(a Archive) Option {
	return func(s *Service) { s.archive = a }
}

func WithCleanupQueue(q CleanupQueue) Option {
	return func(s *Service) { s.cleanup = q }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs the result ingestion pipeline and its companion queries.
// It holds no per-upload state; concurrent requests only share the store.
type Service struct {
	repo      Repository
	archive   Archive
	cleanup   CleanupQueue
	metrics   *metrics.Metrics
	gate      Gatekeeper
	batchSize int
	maxErrors int
	now       func() time.Time
	log       zerolog.Logger
}

func NewService(repo Repository, opts Options, options ...Option) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = config.DefaultMaxFileSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.MaxReportedErrors <= 0 {
		opts.MaxReportedErrors = config.DefaultMaxReportedErrors
	}

	s := &Service{
		repo:      repo,
		gate:      Gatekeeper{MaxSize: opts.MaxFileSize},
		batchSize: opts.BatchSize,
		maxErrors: opts.MaxReportedErrors,
		now:       time.Now,
		log:       logger.Component("results"),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Upload validates, normalizes and stores one result spreadsheet. Every
// check runs before the first write; the write itself is all-or-nothing.
func (s *Service) Upload(ctx context.Context, in UploadInput) (summary *model.UploadSummary, err error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveUpload(outcomeOf(err), time.Since(started))
	}()

	log := s.log.With().Str("file", in.Filename).Int64("size", in.Size).Logger()

	format, err := s.gate.Check(in.FileHeader)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.gate.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.gate.MaxSize {
		return nil, NewError(errors.ErrFileTooLarge,
			fmt.Sprintf("File size exceeds the %d MB limit", s.gate.MaxSize>>20))
	}
	if len(data) == 0 {
		return nil, NewError(errors.ErrEmptyFile, "Uploaded file is empty")
	}

	sheet, err := s.decode(ctx, format, data)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("rows", len(sheet.Rows)).Strs("headers", sheet.Headers).Msg("Spreadsheet decoded")

	if missing := excel.MissingHeaders(sheet); len(missing) > 0 {
		return nil, NewError(errors.ErrSchemaValidation,
			"Missing required columns: "+strings.Join(missing, ", ")).
			With("missingHeaders", missing).
			With("requiredHeaders", excel.RequiredHeaders)
	}

	partition, ok := ResolvePartition(sheet.Rows)
	if !ok {
		return nil, NewError(errors.ErrPartitionMismatch,
			"Academic Year and Class are required in the first data row")
	}
	if bad := PartitionMismatches(sheet.Rows, partition); len(bad) > 0 {
		return nil, NewError(errors.ErrPartitionMismatch,
			fmt.Sprintf("All rows must share Academic Year %q and Class %q. Mismatched rows: %s",
				partition.AcademicYear, partition.ClassName, joinInts(bad))).
			With("invalidRows", bad).
			With("expectedAcademicYear", partition.AcademicYear).
			With("expectedClass", partition.ClassName)
	}

	log = log.With().Str("academic_year", partition.AcademicYear).Str("class_name", partition.ClassName).Logger()

	if err := s.ensureNoUpload(ctx, partition); err != nil {
		return nil, err
	}

	uploadedAt := s.now().UTC()
	normalizer := NewNormalizer(sheet.Headers)
	rows, rowErrs := normalizer.NormalizeAll(sheet.Rows, Provenance{Filename: in.Filename, UploadedAt: uploadedAt})
	if len(rowErrs) > 0 {
		log.Info().Int("row_errors", len(rowErrs)).Msg("Upload rejected by row validation")
		return nil, NewError(errors.ErrRowValidation,
			fmt.Sprintf("%d row(s) failed validation. No records were saved", len(rowErrs))).
			WithRows(rowErrs, s.maxErrors).
			With("totalErrors", len(rowErrs))
	}

	if dups := FileDuplicates(rows); len(dups) > 0 {
		return nil, NewError(errors.ErrDuplicateRecord,
			fmt.Sprintf("%d duplicate Roll Number(s) found in the file", len(dups))).
			WithRows(dups, s.maxErrors).
			With("totalErrors", len(dups))
	}

	existing, err := s.repo.FindExistingResults(ctx, partition, rollNumbers(rows))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing results: %w", err)
	}
	if len(existing) > 0 {
		dups := StoreDuplicates(rows, existing, partition)
		return nil, NewError(errors.ErrDuplicateRecord,
			fmt.Sprintf("%d student(s) already have results for %s, class %s",
				len(dups), partition.AcademicYear, partition.ClassName)).
			WithRows(dups, s.maxErrors).
			With("totalErrors", len(dups))
	}

	entry := &model.UploadHistoryEntry{
		Filename:     in.Filename,
		FileSize:     int64(len(data)),
		AcademicYear: partition.AcademicYear,
		ClassName:    partition.ClassName,
		TotalRecords: len(rows),
		UploadedBy:   in.UploadedBy,
		UploadedAt:   uploadedAt,
		CreatedAt:    uploadedAt,
	}
	entry.StorageKey = s.archiveFile(ctx, partition, in, data)

	batches, err := s.repo.SaveUpload(ctx, entry, records(rows), s.batchSize)
	if err != nil {
		s.discardArchive(ctx, entry, model.CleanupReasonWriteFailed)
		if errors.Is(err, errors.ErrUploadExists) {
			log.Warn().Err(err).Msg("Upload lost partition race")
			return nil, s.conflict(ctx, partition)
		}
		log.Error().Err(err).Msg("Failed to save exam results")
		return nil, NewError(errors.ErrPersistence, "Failed to save exam results: "+err.Error())
	}

	s.metrics.AddRecords(len(rows))
	log.Info().
		Int64("upload_id", entry.ID).
		Int("records", len(rows)).
		Int("batches", batches).
		Msg("Exam results uploaded")

	info := model.FileInfo{Name: in.Filename, Size: entry.FileSize, Type: string(format)}
	if entry.StorageKey != nil {
		info.StorageKey = *entry.StorageKey
	}

	return &model.UploadSummary{
		UploadID: entry.ID,
		FileInfo: info,
		ProcessingStats: model.ProcessingStats{
			TotalRows:       len(sheet.Rows),
			ValidRecords:    len(rows),
			InsertedRecords: len(rows),
			Batches:         batches,
			Subjects:        normalizer.Subjects(),
			AcademicYear:    partition.AcademicYear,
			ClassName:       partition.ClassName,
		},
	}, nil
}

func (s *Service) decode(ctx context.Context, format excel.Format, data []byte) (*excel.Sheet, error) {
	decoder, err := excel.NewDecoder(format)
	if err != nil {
		return nil, err
	}

	sheet, err := decoder.Decode(ctx, data)
	switch {
	case err == nil:
		return sheet, nil
	case errors.Is(err, errors.ErrEmptyFile):
		return nil, NewError(errors.ErrEmptyFile, "No data found in the uploaded file")
	case errors.Is(err, errors.ErrInvalidFileFormat):
		return nil, NewError(errors.ErrInvalidFileFormat, "Unable to read the uploaded file: "+err.Error()).
			With("allowedTypes", AllowedTypes)
	default:
		return nil, err
	}
}

func (s *Service) ensureNoUpload(ctx context.Context, p model.Partition) error {
	existing, err := s.repo.FindUploadByPartition(ctx, p)
	switch {
	case err == nil:
		return conflictError(existing, p)
	case errors.Is(err, errors.ErrUploadNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check existing upload: %w", err)
	}
}

// conflict re-reads the winning upload after a unique-key violation.
func (s *Service) conflict(ctx context.Context, p model.Partition) error {
	existing, err := s.repo.FindUploadByPartition(ctx, p)
	if err != nil {
		return NewError(errors.ErrUploadExists,
			fmt.Sprintf("Results for %s, class %s were uploaded concurrently. Please refresh and try again",
				p.AcademicYear, p.ClassName))
	}
	return conflictError(existing, p)
}

func conflictError(existing *model.UploadHistoryEntry, p model.Partition) error {
	return NewError(errors.ErrUploadExists,
		fmt.Sprintf("Results for Academic Year %s, Class %s were already uploaded from %q. Delete the existing upload before uploading again",
			p.AcademicYear, p.ClassName, existing.Filename)).
		With("existingUpload", model.NewExistingUpload(*existing))
}

// archiveFile stores the original upload. Failures only cost the archive
// copy, never the upload.
func (s *Service) archiveFile(ctx context.Context, p model.Partition, in UploadInput, data []byte) *string {
	if s.archive == nil {
		return nil
	}

	key := ArchiveKey(p, in.Filename)
	if err := s.archive.Upload(ctx, key, in.ContentType, bytes.NewReader(data)); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to archive uploaded file")
		return nil
	}
	return &key
}

func (s *Service) discardArchive(ctx context.Context, entry *model.UploadHistoryEntry, reason string) {
	if !entry.HasArchive() || s.cleanup == nil {
		return
	}
	job := model.CleanupJob{StorageKey: *entry.StorageKey, UploadID: entry.ID, Reason: reason}
	if err := s.cleanup.EnqueueCleanupJob(ctx, job); err != nil {
		s.log.Error().Err(err).Str("key", job.StorageKey).Msg("Failed to enqueue archive cleanup")
	}
}

// ArchiveKey builds uploads/{year}/{class}/{uuid}-{filename}.
func ArchiveKey(p model.Partition, filename string) string {
	return path.Join("uploads",
		safeSegment(p.AcademicYear),
		safeSegment(p.ClassName),
		uuid.NewString()+"-"+safeSegment(path.Base(filename)))
}

func safeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// ListUploads returns the newest uploads with store-wide counts.
func (s *Service) ListUploads(ctx context.Context, limit int) (*model.UploadListing, error) {
	if limit <= 0 {
		limit = config.DefaultListLimit
	}
	if limit > config.MaxListLimit {
		limit = config.MaxListLimit
	}

	uploads, err := s.repo.ListUploads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	if uploads == nil {
		uploads = []model.UploadHistoryEntry{}
	}

	totalResults, err := s.repo.CountResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count results: %w", err)
	}
	totalUploads, err := s.repo.CountUploads(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}

	return &model.UploadListing{
		Uploads: uploads,
		Statistics: model.UploadStatistics{
			TotalResults: totalResults,
			TotalUploads: totalUploads,
		},
		CurrentYear: CurrentAcademicYear(s.now()),
	}, nil
}

func CurrentAcademicYear(now time.Time) string {
	return fmt.Sprintf("%d-%d", now.Year(), now.Year()+1)
}

// DeleteUpload removes an upload and every result in its partition.
func (s *Service) DeleteUpload(ctx context.Context, id int64) (*model.DeleteSummary, error) {
	entry, err := s.getUpload(ctx, id)
	if err != nil {
		return nil, err
	}

	deleted, err := s.repo.DeleteUpload(ctx, *entry)
	if errors.Is(err, errors.ErrUploadNotFound) {
		return nil, NewError(errors.ErrUploadNotFound, "Upload not found")
	}
	if err != nil {
		s.log.Error().Err(err).Int64("upload_id", id).Msg("Failed to delete upload")
		return nil, NewError(errors.ErrPersistence, "Failed to delete upload: "+err.Error())
	}

	s.metrics.IncDeletes()
	s.discardArchive(ctx, entry, model.CleanupReasonDeleted)
	s.log.Info().
		Int64("upload_id", id).
		Int64("deleted_results", deleted).
		Str("academic_year", entry.AcademicYear).
		Str("class_name", entry.ClassName).
		Msg("Upload deleted")

	return &model.DeleteSummary{
		DeletedExamResults: deleted,
		AcademicYear:       entry.AcademicYear,
		ClassName:          entry.ClassName,
		DeletedUploadID:    entry.ID,
	}, nil
}

// OpenArchive streams the original spreadsheet of an upload.
func (s *Service) OpenArchive(ctx context.Context, id int64) (io.ReadCloser, *model.UploadHistoryEntry, error) {
	entry, err := s.getUpload(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.archive == nil || !entry.HasArchive() {
		return nil, nil, NewError(errors.ErrArchiveUnavailable, "No archived file for this upload")
	}

	body, err := s.archive.Download(ctx, *entry.StorageKey)
	if err != nil {
		s.log.Error().Err(err).Int64("upload_id", id).Msg("Failed to download archived file")
		return nil, nil, NewError(errors.ErrArchiveUnavailable, "Archived file could not be retrieved")
	}
	return body, entry, nil
}

// LookupResult finds one student's result for the public result page.
func (s *Service) LookupResult(ctx context.Context, rollNumber string, p model.Partition) (*model.ExamResult, error) {
	rollNumber = strings.TrimSpace(rollNumber)
	p.AcademicYear = strings.TrimSpace(p.AcademicYear)
	p.ClassName = strings.TrimSpace(p.ClassName)
	if rollNumber == "" || p.AcademicYear == "" || p.ClassName == "" {
		return nil, NewError(errors.ErrRowValidation, "Roll Number, Academic Year and Class are required")
	}

	result, err := s.repo.FindResult(ctx, rollNumber, p)
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errors.ErrResultNotFound):
		return nil, NewError(errors.ErrResultNotFound, "No result found for the given Roll Number")
	default:
		return nil, fmt.Errorf("failed to find result: %w", err)
	}
}

func (s *Service) getUpload(ctx context.Context, id int64) (*model.UploadHistoryEntry, error) {
	entry, err := s.repo.GetUpload(ctx, id)
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, errors.ErrUploadNotFound):
		return nil, NewError(errors.ErrUploadNotFound, "Upload not found")
	default:
		return nil, fmt.Errorf("failed to load upload %d: %w", id, err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, errors.ErrUploadExists):
		return metrics.OutcomeConflict
	case errors.Is(err, errors.ErrPersistence):
		return metrics.OutcomeFailed
	}
	var pe *Error
	if errors.As(err, &pe) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"school-results-db/internal/auth"
	"school-results-db/internal/config"
	"school-results-db/internal/logger"
	"school-results-db/internal/model"
	"school-results-db/internal/results"
	"school-results-db/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// multipartOverhead is the allowance above the file size limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

type Handler struct {
	service  *results.Service
	verifier *auth.Verifier
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(service *results.Service, verifier *auth.Verifier, cfg *config.Config) *Handler {
	return &Handler{
		service:  service,
		verifier: verifier,
		cfg:      cfg,
		log:      logger.Component("api"),
	}
}

func (h *Handler) UploadResults(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Upload.MaxFileSize+multipartOverhead)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, results.NewError(errors.ErrFileTooLarge,
				fmt.Sprintf("File size exceeds the %d MB limit", h.cfg.Upload.MaxFileSize>>20)).
				With("maxFileSize", h.cfg.Upload.MaxFileSize))
			return
		}
		h.writeError(c, results.NewError(errors.ErrFileMissing, "No file uploaded"))
		return
	}
	defer file.Close()

	summary, err := h.service.Upload(c.Request.Context(), results.UploadInput{
		FileHeader: results.FileHeader{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
		},
		Body:       file,
		UploadedBy: principal(c).Uploader(),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully uploaded %d exam results for %s, class %s",
			summary.ProcessingStats.InsertedRecords,
			summary.ProcessingStats.AcademicYear,
			summary.ProcessingStats.ClassName),
		"data": summary,
	})
}

func (h *Handler) ListUploads(c *gin.Context) {
	// Unparseable limits fall back to the default.
	limit, _ := strconv.Atoi(c.Query("limit"))

	listing, err := h.service.ListUploads(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": listing})
}

func (h *Handler) DeleteUpload(c *gin.Context) {
	id, err := parseID(c.Query("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	summary, err := h.service.DeleteUpload(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Deleted %d exam results for %s, class %s",
			summary.DeletedExamResults, summary.AcademicYear, summary.ClassName),
		"data": summary,
	})
}

func (h *Handler) DownloadUploadFile(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	body, entry, err := h.service.OpenArchive(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer body.Close()

	c.DataFromReader(http.StatusOK, entry.FileSize, "application/octet-stream", body, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", entry.Filename),
	})
}

func (h *Handler) LookupResult(c *gin.Context) {
	partition := model.Partition{
		AcademicYear: c.Query("academic_year"),
		ClassName:    c.Query("class"),
	}

	result, err := h.service.LookupResult(c.Request.Context(), c.Param("roll_number"), partition)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.ValidationError{Field: "id", Value: raw, Message: "a positive numeric upload id is required"}
	}
	return id, nil
}

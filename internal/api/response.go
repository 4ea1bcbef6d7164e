package api

import (
	"net/http"

	"school-results-db/internal/results"
	"school-results-db/pkg/errors"

	"github.com/gin-gonic/gin"
)

var statusByKind = map[error]int{
	errors.ErrUnauthorized:       http.StatusUnauthorized,
	errors.ErrFileMissing:        http.StatusBadRequest,
	errors.ErrInvalidFileFormat:  http.StatusBadRequest,
	errors.ErrFileTooLarge:       http.StatusBadRequest,
	errors.ErrEmptyFile:          http.StatusBadRequest,
	errors.ErrSchemaValidation:   http.StatusBadRequest,
	errors.ErrPartitionMismatch:  http.StatusBadRequest,
	errors.ErrRowValidation:      http.StatusBadRequest,
	errors.ErrDuplicateRecord:    http.StatusBadRequest,
	errors.ErrUploadExists:       http.StatusConflict,
	errors.ErrUploadNotFound:     http.StatusNotFound,
	errors.ErrResultNotFound:     http.StatusNotFound,
	errors.ErrArchiveUnavailable: http.StatusNotFound,
	errors.ErrPersistence:        http.StatusInternalServerError,
}

// writeError renders err as {success:false, message, errors, ...details}.
// Errors the pipeline did not classify become a generic 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	var validation errors.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": validation.Error()})
		return
	}

	var pe *results.Error
	if !errors.As(err, &pe) {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Internal server error"})
		return
	}

	status, ok := statusByKind[pe.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"success": false, "message": pe.Message}
	if len(pe.Errors) > 0 {
		body["errors"] = pe.Errors
	}
	for k, v := range pe.Details {
		body[k] = v
	}
	c.JSON(status, body)
}

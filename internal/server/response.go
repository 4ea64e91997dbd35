package server

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/salesanalytics/internal/loader"
	"github.com/railzwaylabs/salesanalytics/internal/runlock"
	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
)

var ErrInvalidRequest = errors.New("invalid_request")

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// AbortWithError maps pipeline errors to HTTP statuses.
func AbortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{Code: code, Message: err.Error()}})
}

func classify(err error) (int, string) {
	switch {
	case domain.IsSchemaError(err):
		return http.StatusUnprocessableEntity, "schema_error"
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrInvalidDate):
		return http.StatusBadRequest, "invalid_date"
	case errors.Is(err, domain.ErrInvalidRange):
		return http.StatusBadRequest, "invalid_date_range"
	case errors.Is(err, domain.ErrRunInProgress):
		return http.StatusConflict, "run_in_progress"
	case errors.Is(err, loader.ErrBatchNotFound):
		return http.StatusNotFound, "batch_not_found"
	case errors.Is(err, runlock.ErrNoRun):
		return http.StatusNotFound, "run_not_found"
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}


// internal/common/errors/respond.go
package errors

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Responder writes normalized errors onto the two HTTP response shapes the
// relay functions use: bare `{error}` for scheduled jobs and
// `{success,error}` for invocable functions.
type Responder struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewResponder(logger Logger) *Responder {
	return &Responder{logger: logger}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// JobError reports a failed scheduled-job invocation: HTTP 500 with `{error}`.
func (r *Responder) JobError(c *gin.Context, job string, err error) {
	stdErr := Normalize(err)
	r.logError(job, stdErr)
	c.JSON(http.StatusInternalServerError, gin.H{"error": stdErr.Message})
}

// FunctionError reports a failed invocable function: `{success:false, error}`.
// Validation failures map to 400, everything else to 500.
func (r *Responder) FunctionError(c *gin.Context, function string, err error) {
	stdErr := Normalize(err)
	r.logError(function, stdErr)

	status := http.StatusInternalServerError
	if stdErr.Code == ErrCodeInvalidPayload {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": false, "error": stdErr.Message})
}

func (r *Responder) logError(source string, stdErr *StandardError) {
	r.logger.Error("function failed", map[string]interface{}{
		"function":      source,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
	})
}

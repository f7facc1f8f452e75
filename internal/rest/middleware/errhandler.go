package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	ierr "github.com/facto/facto/internal/errors"
	"github.com/facto/facto/internal/logger"
	"github.com/facto/facto/internal/sentry"
	"github.com/facto/facto/internal/types"
	"github.com/gin-gonic/gin"
)

const fallbackDisplayMessage = "An unexpected error occurred"

// ErrorHandler middleware renders the last handler error as {ok:false, error, code}
func ErrorHandler(log *logger.Logger, sentrySvc *sentry.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		status := ierr.HTTPStatusFromErr(err)
		response := ierr.ErrorResponse{
			OK:      false,
			Error:   ierr.DisplayMessage(err, fallbackDisplayMessage),
			Code:    ierr.CodeFromErr(err),
			Details: getSafeDetails(err),
		}

		if status >= http.StatusInternalServerError {
			log.Errorw("request failed",
				"error", err,
				"status", status,
				"path", c.Request.URL.Path,
				"request_id", types.GetRequestID(c.Request.Context()))
			sentrySvc.CaptureException(c.Request.Context(), err)
		} else {
			log.Debugw("request rejected",
				"error", err,
				"status", status,
				"path", c.Request.URL.Path)
		}

		c.JSON(status, response)
	}
}

// MethodNotAllowed answers routes hit with the wrong verb
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, ierr.ErrorResponse{
		OK:    false,
		Error: "Method not allowed",
		Code:  ierr.ErrCodeMethodNotAllowed,
	})
}

func getSafeDetails(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			if jsonStr, ok := strings.CutPrefix(payload, "__json__:"); ok {
				var jsonDetails map[string]any
				if err := json.Unmarshal([]byte(jsonStr), &jsonDetails); err == nil {
					for k, v := range jsonDetails {
						details[k] = v
					}
				}
			}
		}
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

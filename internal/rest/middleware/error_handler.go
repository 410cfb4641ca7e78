package middleware

import (
	"github.com/gin-gonic/gin"

	ierr "github.com/tirelane/tirelane/internal/errors"
	"github.com/tirelane/tirelane/internal/logger"
)

// ErrorHandlerMiddleware renders errors pushed via c.Error as the standard
// error response. Handlers only push and return; this is the single place
// errors become HTTP.
func ErrorHandlerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.Errorw("request failed",
				"path", c.Request.URL.Path,
				"error", err)
		}
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}

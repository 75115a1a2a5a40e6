package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorHandler is gin middleware that converts the last error attached to
// the request context into a consistent JSON error response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()

		if appErr, ok := err.Err.(*AppError); ok {
			event := log.Warn()
			if appErr.StatusCode >= 500 {
				event = log.Error()
			}
			event.Str("code", appErr.Code).Str("details", appErr.Details).Msg(appErr.Message)
			c.JSON(appErr.StatusCode, appErr.ToResponse())
			return
		}

		log.Error().Err(err.Err).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   ErrCodeInternal,
			Message: "an unexpected error occurred",
			Code:    ErrCodeInternal,
		})
	}
}

// Recovery is gin middleware that recovers from panics and reports a
// consistent 500 response instead of crashing the process.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("recovered from panic")
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:   ErrCodeInternal,
					Message: "an unexpected error occurred",
					Code:    ErrCodeInternal,
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HandleError writes err as a JSON response, wrapping non-AppError values as
// an internal error.
func HandleError(c *gin.Context, err error) {
	if appErr, ok := err.(*AppError); ok {
		c.Error(appErr)
		c.JSON(appErr.StatusCode, appErr.ToResponse())
		return
	}
	internalErr := Internal(err.Error())
	c.Error(internalErr)
	c.JSON(internalErr.StatusCode, internalErr.ToResponse())
}

// AbortWithError aborts the request immediately with err's JSON response.
func AbortWithError(c *gin.Context, err *AppError) {
	c.Error(err)
	c.AbortWithStatusJSON(err.StatusCode, err.ToResponse())
}

package httpapi

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bufferstream/errors"
)

// RespondWithError writes err as an ErrorResponse. AppErrors carry their own
// status; any other error raised through a stage is reported as
// TRANSFORM_FAILED with its text intact.
func RespondWithError(c *gin.Context, err error) {
	appErr := classify(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

func classify(err error) *errors.AppError {
	var maxBytes *http.MaxBytesError
	if stderrors.As(err, &maxBytes) {
		return errors.New(errors.ErrCodeAggregateTooLarge, "Request body exceeds the configured limit.", http.StatusRequestEntityTooLarge).
			WithDetail("limit", maxBytes.Limit).
			WithCause(err)
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.TransformFailed(err)
}

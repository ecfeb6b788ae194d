package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizhub-backend/internal/apperror"
)

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindPermissionDenied:
		return http.StatusForbidden
	case apperror.KindExpired, apperror.KindInvalidOperation:
		return http.StatusBadRequest
	case apperror.KindValidation:
		return http.StatusUnprocessableEntity
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error writes the envelope for err. Domain errors keep their code and message;
// anything else becomes a 500 and is recorded on the context for the access log.
func Error(c *gin.Context, err error) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		_ = c.Error(err)
		Fail(c, http.StatusInternalServerError, ErrInternal)
		return
	}

	c.JSON(StatusFor(ae.Kind), Response{
		Error: &ErrorBody{
			Code:    ErrCode(ae.Code),
			Message: ae.Message,
			Fields:  ae.Fields,
		},
		Metadata: buildMetadata(c),
	})
}

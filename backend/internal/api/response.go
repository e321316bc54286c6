package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "daydei-social/backend/pkg/errors"
)

// Response is the envelope every API route answers with.
type Response struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"msg"`
	Data       any    `json:"data"`
}

func respond(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Response{StatusCode: status, Message: msg, Data: data})
}

// statusFor maps an error to the HTTP status the client sees.
func statusFor(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.KindInvalidRequest, apperrors.KindInvalidCategory:
		return http.StatusBadRequest
	case apperrors.KindAlreadyRelated:
		return http.StatusConflict
	case apperrors.KindNoAcceptableRequest, apperrors.KindNoRelationship:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the envelope. Internal failures never leak their
// message to the client.
func (h *Handler) respondError(c *gin.Context, op string, err error) {
	status := statusFor(err)
	kind := apperrors.KindOf(err)

	switch {
	case kind == apperrors.KindInconsistentState:
		h.logger.Error("Inconsistent friend state",
			zap.String("op", op),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		respond(c, status, "friend state is inconsistent", nil)
	case status == http.StatusInternalServerError:
		h.logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		respond(c, status, "internal server error", nil)
	default:
		var re *apperrors.RelationError
		msg := err.Error()
		if errors.As(err, &re) {
			msg = re.Message
		}
		respond(c, status, msg, gin.H{"kind": string(kind)})
	}
}

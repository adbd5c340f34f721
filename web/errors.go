// ABOUTME: Maps error kinds onto HTTP statuses and the JSON error envelope
// ABOUTME: Body shape is {"error":{"code","message"}}
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/incial/crm/models"
)

func errorResponse(code, message string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": message}}
}

func statusFor(kind models.Kind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	kind := models.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(status, errorResponse("internal", "Internal server error"))
		return
	}

	message := err.Error()
	var me *models.Error
	if errors.As(err, &me) && me.Message != "" {
		message = me.Message
	}
	c.JSON(status, errorResponse(kind.String(), message))
}

package handler

import (
	"net/http"

	"saleshub/internal/apperr"
	"saleshub/internal/service"
	"saleshub/pkg/pagination"
	"saleshub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentActor rebuilds the caller identity from the claims the auth
// middleware stashed in the gin context.
func currentActor(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if raw, ok := c.Get("userID"); ok {
		if s, ok := raw.(string); ok {
			if id, err := uuid.Parse(s); err == nil {
				actor.ID = id
			}
		}
	}
	if raw, ok := c.Get("userName"); ok {
		actor.DisplayName, _ = raw.(string)
	}
	if raw, ok := c.Get("userRole"); ok {
		actor.Role, _ = raw.(string)
	}
	if raw, ok := c.Get("userDept"); ok {
		actor.Department, _ = raw.(string)
	}
	return actor
}

// statusFor maps a domain error code onto an HTTP status.
func statusFor(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "VALIDATION":
		return http.StatusBadRequest
	case "INVALID_CREDENTIALS":
		return http.StatusUnauthorized
	case "FORBIDDEN":
		return http.StatusForbidden
	case "INVALID_STATE", "INSUFFICIENT_STOCK", "NEGATIVE_STOCK":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error with the right status and a
// machine-readable code. Internal failures hide their details.
func writeError(c *gin.Context, err error) {
	code := apperr.Code(err)
	status := statusFor(code)
	msg := err.Error()
	if !apperr.IsDomain(err) {
		msg = "internal server error"
	}
	c.JSON(status, response.DomainError(status, code, msg))
}

// listEnvelope is the standard paginated list payload.
func listEnvelope(data interface{}, total int64, params pagination.Params) gin.H {
	return gin.H{
		"status": http.StatusOK,
		"data":   data,
		"meta":   params.MetaFor(total),
	}
}

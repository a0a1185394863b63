package handler

import (
	"net/http"

	"saleshub/internal/middleware"
	"saleshub/internal/service"
	"saleshub/pkg/pagination"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	activities := router.Group("/api/activities")
	{
		activities.GET("", middleware.RequirePermission("activities.view"), h.ListActivities)
	}
}

// ListActivities returns the audit trail newest-first, optionally filtered by type
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	params := pagination.Parse(c)
	activities, total, err := h.activityService.ListActivities(c.Request.Context(), c.Query("type"), params.Page, params.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listEnvelope(activities, total, params))
}

package handler

import (
	"net/http"

	"phrasedesk/internal/activity"
	"phrasedesk/internal/middleware"
	"phrasedesk/internal/model"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/activity", middleware.RequireRole(model.RoleAdmin), h.ListActivity)
}

// ListActivity returns the activity log grouped and filtered
// @Summary      Activity log
// @Tags         activity
// @Produce      json
// @Security     BearerAuth
// @Param        group  query     string  false  "date or user"  default(date)
// @Param        q      query     string  false  "Filter term"
// @Success      200    {object}  response.Response{data=[]activity.Bucket}
// @Failure      403    {object}  response.Response
// @Router       /activity [get]
func (h *ActivityHandler) ListActivity(c *gin.Context) {
	buckets, err := h.activityService.List(c.Request.Context(), activity.ParseBy(c.Query("group")), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, buckets))
}

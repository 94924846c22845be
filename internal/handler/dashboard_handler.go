package handler

import (
	"net/http"

	"phrasedesk/internal/middleware"
	"phrasedesk/internal/model"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	dash := router.Group("/dashboard")
	{
		dash.GET("", h.GetDashboard)
		dash.DELETE("/stale/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteStale)
	}
}

// GetDashboard returns the usage dashboard
// @Summary      Usage dashboard
// @Description  Top and least used phrases, stale phrases, user activity, 30-day KPIs, timeline and reasons. Served from cache when fresh.
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=dashboard.Snapshot}
// @Failure      401  {object}  response.Response
// @Failure      500  {object}  response.Response
// @Router       /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	snap, err := h.dashboardService.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, snap))
}

// DeleteStale removes a phrase that has not been used within the stale window
// @Summary      Delete stale phrase
// @Tags         dashboard
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Phrase ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response  "Phrase is not stale"
// @Router       /dashboard/stale/{id} [delete]
func (h *DashboardHandler) DeleteStale(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		return
	}
	if err := h.dashboardService.DeleteStale(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Stale phrase removed"}))
}

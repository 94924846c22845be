package handler

import (
	"net/http"

	"phrasedesk/internal/middleware"
	"phrasedesk/internal/model"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/pagination"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type RosterHandler struct {
	rosterService service.RosterService
}

func NewRosterHandler(rosterService service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

func (h *RosterHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users", middleware.RequireRole(model.RoleAdmin))
	{
		users.GET("", h.ListMembers)
		users.GET("/:id", h.GetMember)
		users.POST("", h.CreateMember)
		users.PUT("/:id", h.UpdateMember)
		users.DELETE("/:id", h.DeleteMember)
	}
}

// ListMembers returns the roster ordered by display name
// @Summary      List team members
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"   default(1)
// @Param        limit  query     int  false  "Page size"     default(50)
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.MemberResponse}}
// @Failure      403    {object}  response.Response
// @Router       /users [get]
func (h *RosterHandler) ListMembers(c *gin.Context) {
	p := pagination.Parse(c)
	members, total, err := h.rosterService.List(c.Request.Context(), p.Offset, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Paged(http.StatusOK, members, total, p.Page, p.Limit))
}

// GetMember returns one roster entry
// @Summary      Get team member
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response{data=service.MemberResponse}
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [get]
func (h *RosterHandler) GetMember(c *gin.Context) {
	m, err := h.rosterService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// CreateMember adds a team member
// @Summary      Create team member
// @Description  New members are active and must set a password on first access unless told otherwise.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateMemberRequest  true  "Member"
// @Success      201      {object}  response.Response{data=service.MemberResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /users [post]
func (h *RosterHandler) CreateMember(c *gin.Context) {
	var req service.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	m, err := h.rosterService.Create(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, m))
}

// UpdateMember edits a team member
// @Summary      Update team member
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                       true  "User ID"
// @Param        payload  body      service.UpdateMemberRequest  true  "Changes"
// @Success      200      {object}  response.Response{data=service.MemberResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /users/{id} [put]
func (h *RosterHandler) UpdateMember(c *gin.Context) {
	var req service.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	m, err := h.rosterService.Update(c.Request.Context(), actorOf(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, m))
}

// DeleteMember removes a team member
// @Summary      Delete team member
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /users/{id} [delete]
func (h *RosterHandler) DeleteMember(c *gin.Context) {
	if err := h.rosterService.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Member removed"}))
}

package handler

import (
	"net/http"

	"phrasedesk/internal/middleware"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService service.SessionService
	cookie         middleware.CookieConfig
}

func NewSessionHandler(sessionService service.SessionService, cookie middleware.CookieConfig) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, cookie: cookie}
}

// RegisterRoutes binds the login flow on public and the session endpoints on secured
func (h *SessionHandler) RegisterRoutes(public, secured *gin.RouterGroup) {
	public.POST("/session/login", middleware.LoginRateLimiter(), h.Login)
	public.POST("/session/password", h.SetupPassword)
	public.POST("/session/logout", h.Logout)

	secured.GET("/session/me", h.Me)
	secured.POST("/session/refresh", h.Refresh)
}

// Login authenticates a team member
// @Summary      Login
// @Description  Authenticates by username and password. First-access accounts receive a setup token instead of a session.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.LoginResult}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /session/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}

	res, err := h.sessionService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	if res.Token != "" && res.ExpiresAt != nil {
		middleware.SetTokenCookie(c, h.cookie, res.Token, res.ExpiresAt.Sub(res.User.IssuedAt))
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SetupPassword sets the first password of an account
// @Summary      Set first password
// @Description  Consumes a setup token issued by login and stores the new password. The user must log in again.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SetupPasswordRequest  true  "Setup token and new password"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /session/password [post]
func (h *SessionHandler) SetupPassword(c *gin.Context) {
	var req service.SetupPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	if err := h.sessionService.SetupPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Password updated, please log in again"}))
}

// Logout clears the session cookie
// @Summary      Logout
// @Tags         session
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /session/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c, h.cookie)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Logged out"}))
}

// Me returns the identity carried by the current token
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=session.Session}
// @Failure      401  {object}  response.Response
// @Router       /session/me [get]
func (h *SessionHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(http.StatusOK, actorOf(c)))
}

// Refresh reissues the token from the current user row
// @Summary      Refresh session
// @Description  Reloads the user so role and name changes apply without a new login
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.LoginResult}
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /session/refresh [post]
func (h *SessionHandler) Refresh(c *gin.Context) {
	res, err := h.sessionService.Refresh(c.Request.Context(), actorOf(c))
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			middleware.ClearTokenCookie(c, h.cookie)
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		respondError(c, err)
		return
	}
	middleware.SetTokenCookie(c, h.cookie, res.Token, res.ExpiresAt.Sub(res.User.IssuedAt))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

package middleware

import (
	"net/http"
	"strings"
	"time"

	"phrasedesk/internal/session"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	SessionKey       = "session"
	AccessCookieName = "access_token"
)

// Verifier turns an access token into a session
type Verifier interface {
	Verify(token string) (*session.Session, error)
}

// CookieConfig controls the session cookie attributes
type CookieConfig struct {
	Secure bool // production: SameSite=None + Secure
}

// SetTokenCookie sets the access token as an HttpOnly cookie
func SetTokenCookie(c *gin.Context, cfg CookieConfig, token string, ttl time.Duration) {
	c.SetSameSite(sameSite(cfg))
	c.SetCookie(AccessCookieName, token, int(ttl.Seconds()), "/", "", cfg.Secure, true)
}

// ClearTokenCookie removes the access token cookie
func ClearTokenCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(sameSite(cfg))
	c.SetCookie(AccessCookieName, "", -1, "/", "", cfg.Secure, true)
}

func sameSite(cfg CookieConfig) http.SameSite {
	if cfg.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// tokenFrom reads the cookie first, then the Authorization header
func tokenFrom(c *gin.Context) (string, string) {
	if token, err := c.Cookie(AccessCookieName); err == nil && token != "" {
		return token, ""
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", "Authorization is missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization format. Expected 'Bearer <token>'"
	}
	return parts[1], ""
}

// RequireAuth validates the access token and attaches the session to both the
// gin context and the request context.
func RequireAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := tokenFrom(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, problem))
			return
		}

		sess, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(SessionKey, sess)
		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

// RequireRole rejects sessions whose role is not allowed. It must run after RequireAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		sess := CurrentSession(c)
		if sess == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
			return
		}
		if !allowed[sess.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
			return
		}
		c.Next()
	}
}

// CurrentSession returns the session set by RequireAuth, or nil
func CurrentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(SessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}

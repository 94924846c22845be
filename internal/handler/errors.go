package handler

import (
	"errors"
	"net/http"
	"strconv"

	"phrasedesk/internal/infra"
	"phrasedesk/internal/middleware"
	"phrasedesk/internal/service"
	"phrasedesk/internal/session"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusOf maps service errors onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidSetupToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountInactive),
		errors.Is(err, service.ErrCannotDeleteSelf):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPhraseNotFound),
		errors.Is(err, infra.ErrPostalNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrDuplicatePhrase),
		errors.Is(err, service.ErrPhraseNotStale):
		return http.StatusConflict
	case errors.Is(err, service.ErrContentRequired),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrMessageEmpty),
		errors.Is(err, infra.ErrInvalidPostalCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrAttachmentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidPayload),
		errors.Is(err, service.ErrUnknownTab):
		return http.StatusBadRequest
	case errors.Is(err, infra.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err in the response envelope. Unmapped errors are
// logged and reported without detail.
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.Request.URL.Path).
			Msg("request failed")
		msg = "Internal server error"
	}
	c.JSON(status, response.Error(status, msg))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, msg))
}

// phraseID parses the :id path parameter
func phraseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid phrase id")
		return 0, false
	}
	return uint(id), true
}

func actorOf(c *gin.Context) *session.Session {
	return middleware.CurrentSession(c)
}

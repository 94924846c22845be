package handler

import (
	"context"
	"net/http"

	"phrasedesk/internal/infra"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

// AddressLookup resolves a postal code
type AddressLookup interface {
	Lookup(ctx context.Context, code string) (*infra.Address, error)
}

type PostalHandler struct {
	lookup AddressLookup
}

func NewPostalHandler(lookup AddressLookup) *PostalHandler {
	return &PostalHandler{lookup: lookup}
}

func (h *PostalHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/postal/:code", h.Lookup)
}

// Lookup resolves a Brazilian postal code
// @Summary      Postal code lookup
// @Description  Returns street, district, city and state for an 8-digit CEP
// @Tags         utilities
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "CEP, punctuation allowed"
// @Success      200   {object}  response.Response{data=infra.Address}
// @Failure      404   {object}  response.Response
// @Failure      422   {object}  response.Response
// @Failure      503   {object}  response.Response
// @Router       /postal/{code} [get]
func (h *PostalHandler) Lookup(c *gin.Context) {
	addr, err := h.lookup.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, addr))
}

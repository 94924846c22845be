package handler

import (
	"net/http"

	"phrasedesk/internal/library"
	"phrasedesk/internal/middleware"
	"phrasedesk/internal/model"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type PhraseHandler struct {
	phraseService service.PhraseService
}

func NewPhraseHandler(phraseService service.PhraseService) *PhraseHandler {
	return &PhraseHandler{phraseService: phraseService}
}

func (h *PhraseHandler) RegisterRoutes(router *gin.RouterGroup) {
	phrases := router.Group("/phrases")
	{
		phrases.GET("", h.Browse)
		phrases.GET("/:id", h.GetPhrase)
		phrases.POST("", h.CreatePhrase)
		phrases.PUT("/:id", middleware.RequireRole(model.RoleAdmin), h.UpdatePhrase)
		phrases.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.DeletePhrase)
		phrases.POST("/:id/copy", h.CopyPhrase)
	}
}

// queryFrom reads the library filter state from the query string
func queryFrom(c *gin.Context) library.Query {
	return library.Query{
		Search:   c.Query("q"),
		Company:  c.Query("company"),
		Reason:   c.Query("reason"),
		Document: c.Query("document"),
		Focused:  library.ParseField(c.Query("focused")),
	}
}

// Browse runs the library search and cascading filters
// @Summary      Browse the phrase library
// @Description  Text search plus company/reason/document filters. Without a term or filter only the most used phrases are returned.
// @Tags         phrases
// @Produce      json
// @Security     BearerAuth
// @Param        q         query     string  false  "Search term"
// @Param        company   query     string  false  "Company filter"
// @Param        reason    query     string  false  "Reason filter"
// @Param        document  query     string  false  "Document type filter"
// @Param        focused   query     string  false  "Filter control being edited (company, reason, document)"
// @Success      200       {object}  response.Response{data=library.Result}
// @Failure      401       {object}  response.Response
// @Failure      500       {object}  response.Response
// @Router       /phrases [get]
func (h *PhraseHandler) Browse(c *gin.Context) {
	res, err := h.phraseService.Browse(c.Request.Context(), queryFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// GetPhrase returns one phrase
// @Summary      Get phrase
// @Tags         phrases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Phrase ID"
// @Success      200  {object}  response.Response{data=model.Phrase}
// @Failure      404  {object}  response.Response
// @Router       /phrases/{id} [get]
func (h *PhraseHandler) GetPhrase(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		return
	}
	p, err := h.phraseService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p))
}

// CreatePhrase adds a phrase to the library
// @Summary      Create phrase
// @Description  Content is trimmed and capitalised; categories are title-cased. Duplicate content is rejected.
// @Tags         phrases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.PhraseRequest  true  "Phrase"
// @Success      201      {object}  response.Response{data=model.Phrase}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /phrases [post]
func (h *PhraseHandler) CreatePhrase(c *gin.Context) {
	var req service.PhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	p, err := h.phraseService.Create(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, p))
}

// UpdatePhrase edits a phrase
// @Summary      Update phrase
// @Tags         phrases
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                    true  "Phrase ID"
// @Param        payload  body      service.PhraseRequest  true  "Phrase"
// @Success      200      {object}  response.Response{data=model.Phrase}
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /phrases/{id} [put]
func (h *PhraseHandler) UpdatePhrase(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		return
	}
	var req service.PhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	p, err := h.phraseService.Update(c.Request.Context(), actorOf(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, p))
}

// DeletePhrase removes a phrase
// @Summary      Delete phrase
// @Tags         phrases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Phrase ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /phrases/{id} [delete]
func (h *PhraseHandler) DeletePhrase(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		return
	}
	if err := h.phraseService.Delete(c.Request.Context(), actorOf(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Phrase deleted"}))
}

// CopyPhrase records a successful clipboard copy
// @Summary      Record copy
// @Description  Called after the clipboard write succeeded. Returns the optimistic usage count; the counter update is asynchronous.
// @Tags         phrases
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Phrase ID"
// @Success      202  {object}  response.Response{data=service.CopyResult}
// @Failure      404  {object}  response.Response
// @Router       /phrases/{id}/copy [post]
func (h *PhraseHandler) CopyPhrase(c *gin.Context) {
	id, ok := phraseID(c)
	if !ok {
		return
	}
	res, err := h.phraseService.Copy(c.Request.Context(), actorOf(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, response.Success(http.StatusAccepted, res))
}

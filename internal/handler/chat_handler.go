package handler

import (
	"net/http"
	"strconv"

	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService service.ChatService
	maxUpload   int64
}

func NewChatHandler(chatService service.ChatService, maxUpload int64) *ChatHandler {
	return &ChatHandler{chatService: chatService, maxUpload: maxUpload}
}

func (h *ChatHandler) RegisterRoutes(router *gin.RouterGroup) {
	chat := router.Group("/chat")
	{
		chat.GET("/messages", h.ListMessages)
		chat.POST("/messages", h.SendMessage)
		chat.POST("/attachments", h.UploadAttachment)
	}
}

// ListMessages returns chat messages
// @Summary      List chat messages
// @Description  With after, messages above that id in ascending order (polling). Without it, the latest page, oldest first.
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        after  query     int  false  "Return messages with id greater than this"
// @Param        limit  query     int  false  "Page size"  default(50)
// @Success      200    {object}  response.Response{data=[]model.ChatMessage}
// @Router       /chat/messages [get]
func (h *ChatHandler) ListMessages(c *gin.Context) {
	var after uint64
	if raw := c.Query("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "Invalid after id")
			return
		}
		after = v
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	msgs, err := h.chatService.List(c.Request.Context(), uint(after), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, msgs))
}

// SendMessage posts a text message
// @Summary      Send chat message
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.SendMessageRequest  true  "Message"
// @Success      201      {object}  response.Response{data=model.ChatMessage}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /chat/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload")
		return
	}
	msg, err := h.chatService.Send(c.Request.Context(), actorOf(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}

// UploadAttachment posts a file or voice note
// @Summary      Send attachment
// @Description  Uploads the blob to object storage, then posts a message pointing at it.
// @Tags         chat
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file     formData  file    true   "Attachment"
// @Param        kind     formData  string  false  "file or audio"  default(file)
// @Param        caption  formData  string  false  "Optional text"
// @Success      201      {object}  response.Response{data=model.ChatMessage}
// @Failure      400      {object}  response.Response
// @Failure      413      {object}  response.Response
// @Router       /chat/attachments [post]
func (h *ChatHandler) UploadAttachment(c *gin.Context) {
	if h.maxUpload > 0 {
		// leave room for the multipart envelope
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+1<<20)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Missing file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Unreadable file")
		return
	}
	defer f.Close()

	msg, err := h.chatService.Attach(c.Request.Context(), actorOf(c), service.Attachment{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Kind:        c.PostForm("kind"),
		Caption:     c.PostForm("caption"),
		Body:        f,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, msg))
}

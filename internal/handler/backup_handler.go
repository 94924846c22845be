package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"phrasedesk/internal/middleware"
	"phrasedesk/internal/model"
	"phrasedesk/internal/service"
	"phrasedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BackupHandler struct {
	backupService service.BackupService
	maxUpload     int64
}

func NewBackupHandler(backupService service.BackupService, maxUpload int64) *BackupHandler {
	return &BackupHandler{backupService: backupService, maxUpload: maxUpload}
}

func (h *BackupHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/phrases", middleware.RequireRole(model.RoleAdmin))
	{
		admin.GET("/backup", h.Backup)
		admin.POST("/restore", h.Restore)
		admin.GET("/spreadsheet", h.ExportSheet)
		admin.GET("/spreadsheet/template", h.Template)
		admin.POST("/spreadsheet", h.ImportSheet)
	}
}

// Backup downloads the library as JSON
// @Summary      Download backup
// @Tags         backup
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.Phrase
// @Failure      403  {object}  response.Response
// @Router       /phrases/backup [get]
func (h *BackupHandler) Backup(c *gin.Context) {
	phrases, err := h.backupService.Backup(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("backup_frases_%s.json", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.JSON(http.StatusOK, phrases)
}

// Restore loads a JSON backup as new phrases
// @Summary      Restore backup
// @Description  Ids and usage are reset; duplicates of existing or earlier records are skipped.
// @Tags         backup
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      []model.Phrase  true  "Backup array"
// @Success      200      {object}  response.Response{data=service.BulkResult}
// @Failure      400      {object}  response.Response
// @Router       /phrases/restore [post]
func (h *BackupHandler) Restore(c *gin.Context) {
	var records []model.Phrase
	if err := c.ShouldBindJSON(&records); err != nil {
		badRequest(c, "Backup must be a JSON array of phrases")
		return
	}
	res, err := h.backupService.Restore(c.Request.Context(), actorOf(c), records)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ExportSheet downloads the library as xlsx
// @Summary      Export spreadsheet
// @Tags         backup
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200
// @Router       /phrases/spreadsheet [get]
func (h *BackupHandler) ExportSheet(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.backupService.ExportSheet(c.Request.Context(), &buf); err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("frases_%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Template downloads the import template
// @Summary      Spreadsheet template
// @Tags         backup
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Success      200
// @Router       /phrases/spreadsheet/template [get]
func (h *BackupHandler) Template(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.backupService.Template(&buf); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="modelo_frases.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportSheet bulk loads phrases from an xlsx upload
// @Summary      Import spreadsheet
// @Description  Reads the first sheet; headers may be English or Portuguese. Duplicates are skipped.
// @Tags         backup
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "xlsx file"
// @Success      200   {object}  response.Response{data=service.BulkResult}
// @Failure      400   {object}  response.Response
// @Failure      413   {object}  response.Response
// @Router       /phrases/spreadsheet [post]
func (h *BackupHandler) ImportSheet(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "Missing file")
		return
	}
	if h.maxUpload > 0 && fh.Size > h.maxUpload {
		respondError(c, service.ErrAttachmentTooLarge)
		return
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Unreadable file")
		return
	}
	defer f.Close()

	res, err := h.backupService.ImportSheet(c.Request.Context(), actorOf(c), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

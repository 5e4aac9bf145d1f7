package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/export"
)

func exportOptionsFromQuery(c *gin.Context) export.Options {
	opts := export.DefaultOptions()

	boolQ := func(dst *bool, key string) {
		if v := c.Query(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	boolQ(&opts.IncludeMetadata, "include_metadata")
	boolQ(&opts.IncludeSystemMessages, "include_system_messages")
	boolQ(&opts.IncludeFileData, "include_file_data")

	if v := c.Query("max_message_length"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.MaxMessageLength = n
		}
	}
	return opts
}

func writeDownload(c *gin.Context, file export.File) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.MIMEType, []byte(file.Content))
}

func (h *Handler) ExportSession(c *gin.Context) {
	sess, err := h.ChatSvc.Store().GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	format := export.Format(c.DefaultQuery("format", "json"))
	opts := exportOptionsFromQuery(c)

	file, err := export.As(export.Prepare(sess, opts), format)
	if err != nil {
		h.failErr(c, err)
		return
	}
	writeDownload(c, file)
}

func (h *Handler) ExportPreview(c *gin.Context) {
	sess, err := h.ChatSvc.Store().GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}

	format := export.Format(c.DefaultQuery("format", "json"))
	preview, err := export.Preview(sess, format, exportOptionsFromQuery(c))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, preview)
}

type multiExportReq struct {
	SessionIDs []string        `json:"session_ids" binding:"required"`
	Format     string          `json:"format"`
	Options    *export.Options `json:"options"`
}

func (h *Handler) ExportMultiple(c *gin.Context) {
	var req multiExportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sessions := make([]*chat.Session, 0, len(req.SessionIDs))
	for _, id := range req.SessionIDs {
		sess, err := h.ChatSvc.Store().GetSession(c.Request.Context(), id)
		if err != nil {
			h.failErr(c, err)
			return
		}
		sessions = append(sessions, sess)
	}

	format := export.Format(req.Format)
	if format == "" {
		format = export.FormatJSON
	}
	opts := export.DefaultOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	file, err := export.Multiple(sessions, format, opts)
	if err != nil {
		h.failErr(c, err)
		return
	}
	writeDownload(c, file)
}

func (h *Handler) ExportStats(c *gin.Context) {
	sessions, err := h.ChatSvc.Store().ListSessions(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, export.Statistics(sessions))
}

type importReq struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) ImportSession(c *gin.Context) {
	var req importReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, err := export.ImportSession(req.Content)
	if err != nil {
		h.failErr(c, err)
		return
	}
	if err := h.ChatSvc.Store().PutSession(c.Request.Context(), sess); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess)
}

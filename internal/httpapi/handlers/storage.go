package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chattrix/chattrix/internal/chat"
)

func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.ChatSvc.Store().Settings(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, settings)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var upd chat.SettingsUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	settings, err := h.ChatSvc.Store().UpdateSettings(c.Request.Context(), upd)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, settings)
}

func (h *Handler) GetPromptHistory(c *gin.Context) {
	prompts, err := h.ChatSvc.Store().PromptHistory(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"prompts": prompts})
}

// DeletePromptHistory removes one entry when ?prompt= is given,
// otherwise clears the whole history.
func (h *Handler) DeletePromptHistory(c *gin.Context) {
	ctx := c.Request.Context()

	if prompt := c.Query("prompt"); prompt != "" {
		prompts, err := h.ChatSvc.Store().RemoveFromPromptHistory(ctx, prompt)
		if err != nil {
			h.failErr(c, err)
			return
		}
		ok(c, gin.H{"prompts": prompts})
		return
	}

	if err := h.ChatSvc.Store().ClearPromptHistory(ctx); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"prompts": []string{}})
}

func (h *Handler) ListLegacyChats(c *gin.Context) {
	chats, err := h.ChatSvc.Store().AllLegacyChats(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"chats": chats})
}

func (h *Handler) GetLegacyChat(c *gin.Context) {
	legacy, err := h.ChatSvc.Store().LegacyChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, legacy)
}

func (h *Handler) PutLegacyChat(c *gin.Context) {
	var legacy chat.LegacyChat
	if err := c.ShouldBindJSON(&legacy); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.ChatSvc.Store().SaveLegacyChat(c.Request.Context(), c.Param("id"), legacy); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"saved": true})
}

func (h *Handler) DeleteLegacyChat(c *gin.Context) {
	deleted, err := h.ChatSvc.Store().DeleteLegacyChat(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": deleted})
}

func (h *Handler) GetStorageSize(c *gin.Context) {
	size, err := h.ChatSvc.Store().StorageSize(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, size)
}

func (h *Handler) ClearAllData(c *gin.Context) {
	if err := h.ChatSvc.Store().ClearAllData(c.Request.Context()); err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"cleared": true})
}

func (h *Handler) CleanupSessions(c *gin.Context) {
	removed, err := h.ChatSvc.Store().CleanupOldSessions(c.Request.Context(), h.Cfg.MaxSessions)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"removed": removed})
}

func (h *Handler) GetRemoteHistory(c *gin.Context) {
	records := h.ChatSvc.RemoteHistory(c.Request.Context())
	ok(c, gin.H{"records": records})
}

func (h *Handler) ClearRemoteHistory(c *gin.Context) {
	cleared := h.ChatSvc.ClearRemoteHistory(c.Request.Context())
	ok(c, gin.H{"cleared": cleared})
}

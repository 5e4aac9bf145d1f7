package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chattrix/chattrix/internal/chat"
)

type createSessionReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionReq
	_ = c.ShouldBindJSON(&req) // allow empty {}

	sess, err := h.ChatSvc.Store().CreateSession(c.Request.Context(), req.Title)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess)
}

func (h *Handler) ListSessions(c *gin.Context) {
	sessions, err := h.ChatSvc.Store().ListSessions(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.ChatSvc.Store().GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess)
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var upd chat.SessionUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, err := h.ChatSvc.Store().UpdateSession(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	deleted, err := h.ChatSvc.Store().DeleteSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": deleted})
}

func (h *Handler) GetCurrentSession(c *gin.Context) {
	sess, err := h.ChatSvc.Store().CurrentSession(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess) // null when no current session
}

type setCurrentReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) SetCurrentSession(c *gin.Context) {
	var req setCurrentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, err := h.ChatSvc.Store().SetCurrentSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess)
}

type appendMessageReq struct {
	Role    string         `json:"role" binding:"required"`
	Content string         `json:"content" binding:"required"`
	Files   []chat.FileRef `json:"files"`
}

func (h *Handler) AppendMessage(c *gin.Context) {
	var req appendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	switch req.Role {
	case chat.RoleUser, chat.RoleAssistant, chat.RoleSystem:
	default:
		fail(c, http.StatusBadRequest, 10002, fmt.Sprintf("unknown role %q", req.Role))
		return
	}

	msg, err := h.ChatSvc.Store().AppendMessage(c.Request.Context(), c.Param("id"), chat.Message{
		Role:    req.Role,
		Content: req.Content,
		Files:   req.Files,
	})
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, msg)
}

func (h *Handler) UpdateMessage(c *gin.Context) {
	var upd chat.MessageUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	msg, err := h.ChatSvc.Store().UpdateMessage(c.Request.Context(), c.Param("id"), c.Param("message_id"), upd)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, msg)
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	deleted, err := h.ChatSvc.Store().DeleteMessage(c.Request.Context(), c.Param("id"), c.Param("message_id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": deleted})
}

type askReq struct {
	SessionID string         `json:"session_id"`
	Prompt    string         `json:"prompt" binding:"required"`
	Files     []chat.FileRef `json:"files"`
}

func (h *Handler) Ask(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	answer, err := h.ChatSvc.Ask(c.Request.Context(), req.SessionID, req.Prompt, req.Files)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, answer)
}

type cancelAskReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) CancelAsk(c *gin.Context) {
	var req cancelAskReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	h.ChatSvc.CancelInflight(req.SessionID)
	ok(c, gin.H{"canceled": true})
}

type newChatReq struct {
	Title string `json:"title"`
}

func (h *Handler) NewChat(c *gin.Context) {
	var req newChatReq
	_ = c.ShouldBindJSON(&req)

	sess, err := h.ChatSvc.NewChat(c.Request.Context(), req.Title)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, sess)
}

func (h *Handler) AskStream(c *gin.Context) {
	var req askReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, canFlush := c.Writer.(http.Flusher)
	if !canFlush {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	writeEvent := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, b)
		flusher.Flush()
	}

	ctx := c.Request.Context()
	chunks, answers, errs := h.ChatSvc.AskStream(ctx, req.SessionID, req.Prompt)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case chunk, open := <-chunks:
			if !open {
				chunks = nil
				continue
			}
			writeEvent("chunk", gin.H{"delta": chunk})

		case <-ticker.C:
			writeEvent("ping", gin.H{"ts": time.Now().Unix()})

		case err := <-errs:
			if err == nil {
				continue
			}
			writeEvent("error", gin.H{"message": err.Error()})
			return

		case answer := <-answers:
			writeEvent("done", answer)
			return

		case <-ctx.Done():
			return
		}
	}
}

type submitJobReq struct {
	SessionID      string  `json:"session_id"`
	Prompt         string  `json:"prompt" binding:"required"`
	IdempotencyKey *string `json:"idempotency_key"`
}

func (h *Handler) SubmitJob(c *gin.Context) {
	if h.Publisher == nil {
		fail(c, http.StatusServiceUnavailable, 50301, "job queue unavailable")
		return
	}

	var req submitJobReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	job, created, err := h.ChatSvc.SubmitJob(c.Request.Context(), req.SessionID, req.Prompt, req.IdempotencyKey)
	if err != nil {
		h.failErr(c, err)
		return
	}

	if created {
		if err := h.Publisher.PublishJob(c.Request.Context(), job.ID, job.SessionID); err != nil {
			h.failErr(c, fmt.Errorf("publish job: %w", err))
			return
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{
		"code":    0,
		"message": "ok",
		"data":    gin.H{"job": job, "created": created},
	})
}

func (h *Handler) GetJob(c *gin.Context) {
	job, err := h.ChatSvc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, job)
}

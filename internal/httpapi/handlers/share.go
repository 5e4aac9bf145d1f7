package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chattrix/chattrix/internal/share"
)

// SharePasswordHeader carries the share password on resolve requests so
// it never lands in access logs as part of the URL.
const SharePasswordHeader = "X-Share-Password"

type createShareReq struct {
	SessionID string        `json:"session_id" binding:"required"`
	Options   share.Options `json:"options"`
}

func (h *Handler) CreateShare(c *gin.Context) {
	var req createShareReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, err := h.ChatSvc.Store().GetSession(c.Request.Context(), req.SessionID)
	if err != nil {
		h.failErr(c, err)
		return
	}

	rec, err := h.ShareSvc.Create(c.Request.Context(), sess, req.Options)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, rec.View())
}

func (h *Handler) ResolveShare(c *gin.Context) {
	res, err := h.ShareSvc.Resolve(c.Request.Context(), c.Param("id"), c.GetHeader(SharePasswordHeader))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, res)
}

func (h *Handler) ListShares(c *gin.Context) {
	shares, err := h.ShareSvc.List(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"shares": shares, "count": len(shares)})
}

func (h *Handler) UpdateShare(c *gin.Context) {
	var upd share.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	rec, err := h.ShareSvc.UpdateSettings(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, rec.View())
}

func (h *Handler) DeleteShare(c *gin.Context) {
	deleted, err := h.ShareSvc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"deleted": deleted})
}

func (h *Handler) SweepShares(c *gin.Context) {
	removed, err := h.ShareSvc.SweepExpired(c.Request.Context())
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, gin.H{"removed": removed})
}

// ShareSummary previews what a share of the session would look like.
func (h *Handler) ShareSummary(c *gin.Context) {
	sess, err := h.ChatSvc.Store().GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.failErr(c, err)
		return
	}
	ok(c, share.Summarize(sess))
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/common"
	"github.com/chattrix/chattrix/internal/config"
	"github.com/chattrix/chattrix/internal/export"
	"github.com/chattrix/chattrix/internal/share"
	"github.com/chattrix/chattrix/internal/store/rabbitmq"
)

type Handler struct {
	Cfg       config.Config
	ChatSvc   *chat.Service
	ShareSvc  *share.Service
	Publisher *rabbitmq.Publisher
	Logger    *zap.Logger
}

func NewHandler(cfg config.Config, chatSvc *chat.Service, shareSvc *share.Service, pub *rabbitmq.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Cfg:       cfg,
		ChatSvc:   chatSvc,
		ShareSvc:  shareSvc,
		Publisher: pub,
		Logger:    logger,
	}
}

func ok(c *gin.Context, data any) {
	common.OK(c, data)
}

func fail(c *gin.Context, httpStatus int, code int, msg string) {
	common.Fail(c, httpStatus, code, msg)
}

// failErr maps service errors to the envelope with stable codes.
func (h *Handler) failErr(c *gin.Context, err error) {
	if reason, denied := share.Denial(err); denied {
		switch reason {
		case share.DeniedNotFound:
			fail(c, http.StatusNotFound, 40404, err.Error())
		case share.DeniedExpired:
			fail(c, http.StatusGone, 41001, err.Error())
		case share.DeniedPasswordRequired:
			fail(c, http.StatusUnauthorized, 40102, err.Error())
		case share.DeniedAccessLimit:
			fail(c, http.StatusForbidden, 40301, err.Error())
		default:
			fail(c, http.StatusForbidden, 40300, err.Error())
		}
		return
	}

	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		fail(c, http.StatusNotFound, 40401, "session not found")
	case errors.Is(err, chat.ErrMessageNotFound):
		fail(c, http.StatusNotFound, 40402, "message not found")
	case errors.Is(err, chat.ErrJobNotFound):
		fail(c, http.StatusNotFound, 40403, "job not found")
	case errors.Is(err, chat.ErrAskCanceled):
		fail(c, http.StatusConflict, 40901, "ask canceled")
	case errors.Is(err, export.ErrUnsupportedFormat):
		fail(c, http.StatusBadRequest, 40002, err.Error())
	case errors.Is(err, export.ErrInvalidSession):
		fail(c, http.StatusBadRequest, 40003, err.Error())
	default:
		h.Logger.Error("request failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
		fail(c, http.StatusInternalServerError, 50000, "internal error")
	}
}

func (h *Handler) Ping(c *gin.Context) {
	ok(c, gin.H{"message": "pong"})
}

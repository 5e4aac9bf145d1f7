package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chattrix/chattrix/internal/chat"
	"github.com/chattrix/chattrix/internal/common"
	"github.com/chattrix/chattrix/internal/config"
	"github.com/chattrix/chattrix/internal/httpapi/handlers"
	"github.com/chattrix/chattrix/internal/httpapi/middleware"
	"github.com/chattrix/chattrix/internal/share"
	"github.com/chattrix/chattrix/internal/store/rabbitmq"
)

func NewRouter(cfg config.Config, chatSvc *chat.Service, shareSvc *share.Service, pub *rabbitmq.Publisher, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(cfg, chatSvc, shareSvc, pub, logger)

	r.GET("/ping", h.Ping)

	// sessions
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions/cleanup", h.CleanupSessions)
	r.GET("/sessions/:id", h.GetSession)
	r.PATCH("/sessions/:id", h.UpdateSession)
	r.DELETE("/sessions/:id", h.DeleteSession)
	r.GET("/current-session", h.GetCurrentSession)
	r.PUT("/current-session", h.SetCurrentSession)

	// messages
	r.POST("/sessions/:id/messages", h.AppendMessage)
	r.PATCH("/sessions/:id/messages/:message_id", h.UpdateMessage)
	r.DELETE("/sessions/:id/messages/:message_id", h.DeleteMessage)

	// orchestration
	r.POST("/ask", h.Ask)
	r.POST("/ask/stream", h.AskStream)
	r.POST("/ask/cancel", h.CancelAsk)
	r.POST("/new-chat", h.NewChat)
	r.POST("/jobs", h.SubmitJob)
	r.GET("/jobs/:id", h.GetJob)

	// export
	r.GET("/sessions/:id/export", h.ExportSession)
	r.GET("/sessions/:id/export/preview", h.ExportPreview)
	r.POST("/export", h.ExportMultiple)
	r.GET("/export/stats", h.ExportStats)
	r.POST("/import", h.ImportSession)

	// shares
	r.POST("/shares", h.CreateShare)
	r.GET("/shares", h.ListShares)
	r.POST("/shares/sweep", h.SweepShares)
	r.GET("/shares/:id", h.ResolveShare)
	r.PATCH("/shares/:id", h.UpdateShare)
	r.DELETE("/shares/:id", h.DeleteShare)
	r.GET("/sessions/:id/share-summary", h.ShareSummary)

	// settings and local storage maintenance
	r.GET("/settings", h.GetSettings)
	r.PATCH("/settings", h.UpdateSettings)
	r.GET("/prompt-history", h.GetPromptHistory)
	r.DELETE("/prompt-history", h.DeletePromptHistory)
	r.GET("/legacy-chats", h.ListLegacyChats)
	r.GET("/legacy-chats/:id", h.GetLegacyChat)
	r.PUT("/legacy-chats/:id", h.PutLegacyChat)
	r.DELETE("/legacy-chats/:id", h.DeleteLegacyChat)
	r.GET("/storage", h.GetStorageSize)
	r.DELETE("/storage", h.ClearAllData)

	// remote history mirror
	r.GET("/history", h.GetRemoteHistory)
	r.DELETE("/history", h.ClearRemoteHistory)

	return r
}

package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/igronus/notify/internal/api/handlers/notification"
	"github.com/igronus/notify/internal/api/handlers/stream"
	"github.com/igronus/notify/internal/middlewares"
)

// New builds the HTTP routing table. The stream endpoint shares the
// /notifications path with the authoring API, as an upgrade-only GET.
func New(handler *notification.Handler, streamHandler *stream.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	e.GET("/health", handler.Health)

	e.POST("/notifications", handler.Create)
	e.GET("/notifications", streamHandler.Serve)
	e.GET("/notifications/stats/recipients", handler.TopRecipients)
	e.GET("/notifications/:id", handler.GetByID)
	e.GET("/notifications/:id/status", handler.GetStatus)

	return e
}

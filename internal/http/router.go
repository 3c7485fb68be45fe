package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/internal/http/handlers"
	"github.com/you/incidentsvc/internal/http/middleware"
)

// StaticMount serves a directory of uploaded media under URLPath
type StaticMount struct {
	URLPath string
	Dir     string
}

// BuildRouter wires every route. mh may be nil when media is served statically.
func BuildRouter(logger *zap.Logger, rh *handlers.ReportHandlers, ah *handlers.AdminHandlers, mh *handlers.MediaHandlers, adminMW gin.HandlerFunc, static *StaticMount) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	if static != nil && static.Dir != "" {
		r.Static(static.URLPath, static.Dir)
	}
	if mh != nil {
		r.GET("/media/:id", mh.Get)
	}

	api := r.Group("/api")

	reports := api.Group("/reports")
	reports.GET("", rh.List)
	reports.GET("/:id", rh.Get)
	reports.POST("/attempts", rh.CreateAttempt)
	reports.GET("/attempts/:id", rh.GetAttempt)
	reports.POST("/attempts/:id/resend", rh.Resend)
	reports.POST("/attempts/:id/confirm", rh.Confirm)
	reports.DELETE("/attempts/:id", rh.CancelAttempt)

	adm := api.Group("/admin").Use(adminMW)
	adm.POST("/verify", ah.Verify)
	adm.GET("/dashboard", ah.Dashboard)
	adm.GET("/reports", ah.List)
	adm.PATCH("/reports/:id/status", ah.UpdateStatus)
	adm.POST("/reports/:id/flag", ah.ToggleFlag)
	adm.DELETE("/reports/:id", ah.Delete)
	adm.POST("/reports/bulk-delete", ah.BulkDelete)

	return r
}

package routes

import (
	"fixit-be/controllers"

	"github.com/gin-gonic/gin"
)

// Middleware are the handlers the route groups are built from.
type Middleware struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	IssueLimiter gin.HandlerFunc
}

// Register mounts every route group on r.
func Register(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	if mw.IssueLimiter == nil {
		mw.IssueLimiter = func(c *gin.Context) { c.Next() }
	}
	r.GET("/health", ctl.HealthCheck)
	AuthRoutes(r, ctl, mw)
	IssueRoutes(r, ctl, mw)
	UserRoutes(r, ctl, mw)
	NotificationRoutes(r, ctl, mw)
	GovernmentRoutes(r, ctl, mw)
	AdminRoutes(r, ctl, mw)
}

package routes

import (
	"fixit-be/controllers"
	"fixit-be/middlewares"
	"fixit-be/models"

	"github.com/gin-gonic/gin"
)

func GovernmentRoutes(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	gov := r.Group("/api/government", mw.Auth, middlewares.RequireRoles(models.RoleGovernment, models.RoleManager))
	{
		gov.GET("/dashboard", ctl.GetDashboard)
		gov.GET("/thresholds", ctl.GetThresholds)
		gov.PUT("/thresholds/:department", ctl.SetThreshold)
		gov.DELETE("/thresholds/:department", ctl.DeleteThreshold)
		gov.PUT("/issues/:id/assign", ctl.AssignIssue)
	}
}

func AdminRoutes(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	admin := r.Group("/api/admin", mw.Auth, middlewares.RequireRoles(models.RoleAdmin))
	{
		admin.PUT("/issues/:id/status", ctl.SetIssueStatus)
		admin.PUT("/issues/:id/spam", ctl.MarkSpam)
		admin.DELETE("/issues/:id", ctl.PurgeIssue)
		admin.PUT("/users/:id/role", ctl.SetUserRole)
	}
}

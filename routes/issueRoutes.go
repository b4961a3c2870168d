package routes

import (
	"fixit-be/controllers"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	issue := r.Group("/api/issues")
	{
		issue.POST("", mw.Auth, mw.IssueLimiter, ctl.CreateIssue)
		issue.GET("", mw.OptionalAuth, ctl.GetAllIssues)
		issue.GET("/nearby", mw.OptionalAuth, ctl.GetNearbyIssues)
		issue.GET("/:id", mw.OptionalAuth, ctl.GetIssue)
		issue.DELETE("/:id", mw.Auth, ctl.DeleteIssue)
		issue.POST("/:id/comments", mw.Auth, ctl.AddComment)
		issue.POST("/:id/vote", mw.Auth, ctl.VoteIssue)

		issue.PUT("/:id/start-work", mw.Auth, ctl.StartWork)
		issue.PUT("/:id/resolve", mw.Auth, ctl.ResolveIssue)
		issue.PUT("/:id/approve-fix", mw.Auth, ctl.ApproveFix)
		issue.PUT("/:id/reject-fix", mw.Auth, ctl.RejectFix)
	}
}

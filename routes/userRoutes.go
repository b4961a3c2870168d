package routes

import (
	"fixit-be/controllers"

	"github.com/gin-gonic/gin"
)

func UserRoutes(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	users := r.Group("/api/users", mw.Auth)
	{
		users.GET("/me/votes", ctl.GetMyVotes)
		users.GET("/me/stats", ctl.GetMyStats)
	}

	rewards := r.Group("/api/rewards", mw.Auth)
	{
		rewards.GET("", ctl.GetRewards)
		rewards.POST("/:id/redeem", ctl.RedeemReward)
	}
}

func NotificationRoutes(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	notifications := r.Group("/api/notifications", mw.Auth)
	{
		notifications.GET("", ctl.GetNotifications)
		notifications.GET("/unread-count", ctl.GetUnreadCount)
		notifications.PUT("/read-all", ctl.MarkAllNotificationsRead)
		notifications.PUT("/:id/read", ctl.MarkNotificationRead)
	}
}

package routes

import (
	"fixit-be/controllers"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, ctl *controllers.Controller, mw Middleware) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", ctl.RegisterUser)
		auth.POST("/login", ctl.LoginUser)
		auth.GET("/me", mw.Auth, ctl.GetMe)
		auth.POST("/logout", ctl.LogoutUser)
	}
}

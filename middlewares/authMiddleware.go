package middlewares

import (
	"log"
	"net/http"
	"strings"

	"fixit-be/models"
	"fixit-be/repository"
	authUtils "fixit-be/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// AuthCookie carries the token for browser clients.
	AuthCookie = "auth_token"
	// UserKey holds the *models.User of the caller.
	UserKey = "user"
	// UserIDKey holds the caller's id as a hex string.
	UserIDKey = "user_id"
)

func tokenFrom(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if authHeader != "" {
		// Extracting token from "Bearer <token>" format
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil {
		return cookie
	}
	return ""
}

// authenticate resolves the caller. It returns a status and message when the
// request carries no usable credentials.
func authenticate(c *gin.Context, secret string, users repository.UserRepository) (*models.User, int, string) {
	tokenString := tokenFrom(c)
	if tokenString == "" {
		return nil, http.StatusUnauthorized, "No authorization token provided"
	}

	userID, err := authUtils.ParseToken(secret, tokenString)
	if err != nil {
		log.Printf("Token validation failed: %v", err)
		return nil, http.StatusUnauthorized, "Invalid authorization token"
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token claims"
	}

	user, err := users.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, http.StatusUnauthorized, "User no longer exists"
	}
	return user, 0, ""
}

// AuthMiddleware requires a valid token and loads the caller from storage so
// role changes take effect immediately.
func AuthMiddleware(secret string, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, status, msg := authenticate(c, secret, users)
		if user == nil {
			c.JSON(status, gin.H{"error": msg})
			c.Abort()
			return
		}
		c.Set(UserKey, user)
		c.Set(UserIDKey, user.ID.Hex())
		c.Next()
	}
}

// OptionalAuth loads the caller when credentials are present and lets
// anonymous requests through.
func OptionalAuth(secret string, users repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, _, _ := authenticate(c, secret, users); user != nil {
			c.Set(UserKey, user)
			c.Set(UserIDKey, user.ID.Hex())
		}
		c.Next()
	}
}

// CurrentUser returns the caller stored by the auth middlewares, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"fixit-be/apperrors"
	"fixit-be/health"
	"fixit-be/middlewares"
	"fixit-be/models"
	"fixit-be/repository"
	"fixit-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

// Controller holds everything the HTTP handlers call into.
type Controller struct {
	Users         repository.UserRepository
	Issues        *services.IssueService
	Lifecycle     *services.Lifecycle
	Votes         *services.VoteService
	Dashboard     *services.DashboardService
	Thresholds    *services.ThresholdService
	Notifications *services.NotificationService
	Rewards       *services.RewardService
	Health        *health.Checker

	JWTSecret  string
	Domain     string
	Production bool
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError writes err as {"error": message} with the matching status.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": apperrors.PublicMessage(err)})
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user := middlewares.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	return user, true
}

func parseObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return primitive.NilObjectID, false
	}
	return id, true
}

// readImage returns the multipart "image" file, or nil when none was sent.
// The caller closes the returned closer.
func readImage(c *gin.Context) (*models.ImageUpload, func(), error) {
	header, err := c.FormFile("image")
	if err == http.ErrMissingFile {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, apperrors.Validation("Invalid image upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, apperrors.Validation("Invalid image upload")
	}
	return &models.ImageUpload{Reader: file, Size: header.Size, Filename: header.Filename}, func() { file.Close() }, nil
}

package controllers

import (
	"net/http"

	"fixit-be/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetDashboard returns the overdue report for the caller's scope.
func (ctl *Controller) GetDashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := ctl.Dashboard.Dashboard(ctx, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ctl *Controller) GetThresholds(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	views, err := ctl.Thresholds.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"defaults":    ctl.Thresholds.Defaults(),
		"departments": views,
	})
}

func (ctl *Controller) SetThreshold(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var input struct {
		MaxPendingHours    float64 `json:"maxPendingHours" binding:"required"`
		MaxInProgressHours float64 `json:"maxInProgressHours" binding:"required"`
		Description        string  `json:"description" binding:"max=300"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	threshold, err := ctl.Thresholds.Set(ctx, user, c.Param("department"), services.ThresholdInput{
		MaxPendingHours:    input.MaxPendingHours,
		MaxInProgressHours: input.MaxInProgressHours,
		Description:        input.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, threshold)
}

// DeleteThreshold returns a department to the default limits.
func (ctl *Controller) DeleteThreshold(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ctl.Thresholds.Deactivate(ctx, user, c.Param("department")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Threshold reset to defaults"})
}

func (ctl *Controller) AssignIssue(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	var input struct {
		AssigneeID string `json:"assigneeId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	assignee, err := primitive.ObjectIDFromHex(input.AssigneeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assigneeId"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ctl.Issues.Assign(ctx, id, user, assignee)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ViewOf(issue, user))
}

package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"fixit-be/middlewares"
	"fixit-be/models"
	"fixit-be/repository"
	"fixit-be/services"

	"github.com/gin-gonic/gin"
)

// CreateIssue handles the multipart report form.
func (ctl *Controller) CreateIssue(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var input struct {
		Title       string   `form:"title" binding:"omitempty,max=200"`
		Description string   `form:"description" binding:"omitempty,max=1000"`
		Category    string   `form:"category" binding:"omitempty,department"`
		Severity    string   `form:"severity" binding:"omitempty,oneof=low medium high critical"`
		Latitude    *float64 `form:"latitude" binding:"required"`
		Longitude   *float64 `form:"longitude" binding:"required"`
		Address     string   `form:"address" binding:"omitempty,max=300"`
		IsAnonymous bool     `form:"isAnonymous"`
		Tags        string   `form:"tags"`
	}
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image, closeImage, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeImage()

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ctl.Issues.Create(ctx, user, services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Severity:    input.Severity,
		Latitude:    *input.Latitude,
		Longitude:   *input.Longitude,
		Address:     input.Address,
		IsAnonymous: input.IsAnonymous,
		Tags:        strings.Split(input.Tags, ","),
		Image:       image,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, services.ViewOf(issue, user))
}

// GetAllIssues handles retrieving issues with filtering and pagination
func (ctl *Controller) GetAllIssues(c *gin.Context) {
	viewer := middlewares.CurrentUser(c)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	filter := repository.IssueFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   c.DefaultQuery("sort", "newest"),
		Page:   page,
		Limit:  limit,
	}
	if category := c.Query("category"); category != "" && category != "all" {
		filter.Category = models.Department(strings.ToLower(category))
	}
	if status := c.Query("status"); status != "" && status != "all" {
		filter.Status = models.IssueStatus(status)
	}
	if c.Query("mine") == "true" && viewer != nil {
		filter.ReportedBy = &viewer.ID
	}
	if c.Query("assigned") == "true" && viewer != nil {
		filter.AssignedTo = &viewer.ID
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := ctl.Issues.List(ctx, filter, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetNearbyIssues lists issues around ?lat=&lng=, within ?radius= km.
func (ctl *Controller) GetNearbyIssues(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng are required"})
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "1"), 64)

	ctx, cancel := requestContext(c)
	defer cancel()

	issues, err := ctl.Issues.Nearby(ctx, lat, lng, radius, middlewares.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

func (ctl *Controller) GetIssue(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ctl.Issues.Get(ctx, id, middlewares.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// DeleteIssue soft-deletes an issue of the caller.
func (ctl *Controller) DeleteIssue(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ctl.Issues.Remove(ctx, id, user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

func (ctl *Controller) AddComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Text string `json:"text" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := ctl.Issues.AddComment(ctx, id, user, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// VoteIssue toggles the caller's vote.
func (ctl *Controller) VoteIssue(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	var input struct {
		VoteType string `json:"voteType" binding:"required,oneof=upvote downvote"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := ctl.Votes.Vote(ctx, id, user, models.VoteType(input.VoteType))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

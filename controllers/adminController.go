package controllers

import (
	"net/http"

	"fixit-be/models"
	"fixit-be/services"

	"github.com/gin-gonic/gin"
)

// SetIssueStatus is the admin status override.
func (ctl *Controller) SetIssueStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Status string `json:"status" binding:"required"`
		Note   string `json:"note" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ctl.Lifecycle.SetStatus(ctx, id, user, models.IssueStatus(input.Status), input.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ViewOf(issue, user))
}

func (ctl *Controller) MarkSpam(c *gin.Context) {
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

	issue, err := ctl.Issues.MarkSpam(ctx, id, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ViewOf(issue, user))
}

// PurgeIssue physically removes an issue.
func (ctl *Controller) PurgeIssue(c *gin.Context) {
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

	if err := ctl.Issues.Purge(ctx, id, user); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue permanently deleted"})
}

// SetUserRole promotes or demotes a user. Department-bound roles need a
// department.
func (ctl *Controller) SetUserRole(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Role       string `json:"role" binding:"required,role"`
		Department string `json:"department" binding:"omitempty,department"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.Role(input.Role)
	var dept *models.Department
	if input.Department != "" {
		d, _ := models.ParseDepartment(input.Department)
		dept = &d
	}
	if role.NeedsDepartment() && dept == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A department is required for role " + input.Role})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ctl.Users.SetRole(ctx, id, role, dept); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated"})
}

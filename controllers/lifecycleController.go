package controllers

import (
	"net/http"

	"fixit-be/models"
	"fixit-be/services"

	"github.com/gin-gonic/gin"
)

// withProof runs a transition that needs a multipart "image" proof.
func (ctl *Controller) withProof(c *gin.Context, run func(*gin.Context, *models.User, *models.ImageUpload) (*models.Issue, error)) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	proof, closeProof, err := readImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeProof()

	issue, err := run(c, user, proof)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ViewOf(issue, user))
}

func (ctl *Controller) StartWork(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	ctl.withProof(c, func(c *gin.Context, user *models.User, proof *models.ImageUpload) (*models.Issue, error) {
		ctx, cancel := requestContext(c)
		defer cancel()
		return ctl.Lifecycle.StartWork(ctx, id, user, proof)
	})
}

func (ctl *Controller) ResolveIssue(c *gin.Context) {
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	ctl.withProof(c, func(c *gin.Context, user *models.User, proof *models.ImageUpload) (*models.Issue, error) {
		ctx, cancel := requestContext(c)
		defer cancel()
		return ctl.Lifecycle.Resolve(ctx, id, user, proof)
	})
}

func (ctl *Controller) ApproveFix(c *gin.Context) {
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

	issue, err := ctl.Lifecycle.ApproveFix(ctx, id, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ViewOf(issue, user))
}

func (ctl *Controller) RejectFix(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := parseObjectID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Reason string `json:"reason" binding:"max=500"`
	}
	// The reason is optional, so an empty body is fine.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ctl.Lifecycle.RejectFix(ctx, id, user, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services.ViewOf(issue, user))
}

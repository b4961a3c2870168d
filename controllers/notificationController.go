package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) GetNotifications(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := ctl.Notifications.List(ctx, user.ID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (ctl *Controller) GetUnreadCount(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	count, err := ctl.Notifications.UnreadCount(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (ctl *Controller) MarkNotificationRead(c *gin.Context) {
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

	if err := ctl.Notifications.MarkRead(ctx, id, user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (ctl *Controller) MarkAllNotificationsRead(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := ctl.Notifications.MarkAllRead(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

package controllers

import (
	"net/http"

	"fixit-be/health"

	"github.com/gin-gonic/gin"
)

func (ctl *Controller) HealthCheck(c *gin.Context) {
	if ctl.Health == nil {
		c.JSON(http.StatusOK, gin.H{"status": health.StatusOK})
		return
	}
	report := ctl.Health.Check(c.Request.Context())
	status := http.StatusOK
	if report.Status == health.StatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

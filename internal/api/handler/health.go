package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/octobridge/octobridge/consts"
)

// Health reports service liveness and build information
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": consts.ServiceName,
		"version": consts.Version,
		"commit":  consts.GitCommit,
		"uptime":  consts.GetUptime().String(),
	})
}

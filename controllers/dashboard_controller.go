package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/services"
)

// GetDashboardStats handles GET /api/v1/dashboard/stats
func GetDashboardStats(c *gin.Context) {
	stats, err := services.GetDashboardService().Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load dashboard statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

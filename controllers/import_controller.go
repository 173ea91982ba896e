package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/services"
)

// ImportOrdersRequest represents the request body for a bulk import
type ImportOrdersRequest struct {
	Rows []services.ImportRow `json:"rows" binding:"required"`
}

// ImportOrders handles POST /api/v1/orders/import.
// Failed rows are reported in the result; the response is 200 whenever the batch was processed.
func ImportOrders(c *gin.Context) {
	var req ImportOrdersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	result, err := services.GetImportService().ImportOrders(c.Request.Context(), req.Rows)
	if err != nil {
		respondError(c, err, "Failed to import orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/services"
)

// AssignStaffRequest represents the request body for assigning staff to an order's current stage
type AssignStaffRequest struct {
	StaffID uint `json:"staff_id" binding:"required,gt=0"`
}

// StageNotesRequest carries optional notes for completing a stage, or the reason for rework
type StageNotesRequest struct {
	Notes string `json:"notes"`
}

// AssignStaff handles POST /api/v1/orders/:id/assign
func AssignStaff(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	order, err := services.GetWorkflowService().AssignStaff(c.Request.Context(), orderID, req.StaffID)
	if err != nil {
		respondError(c, err, "Failed to assign staff")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// CompleteStage handles POST /api/v1/orders/:id/complete-stage
func CompleteStage(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	// The body is optional; an empty one, chunked or not, decodes to io.EOF
	var req StageNotesRequest
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			bindingError(c, err)
			return
		}
	}

	completion, err := services.GetWorkflowService().CompleteCurrentStage(c.Request.Context(), orderID, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to complete stage")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    completion,
	})
}

// RequestRework handles POST /api/v1/orders/:id/rework - sends an order in QC back to beading
func RequestRework(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req StageNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	order, err := services.GetWorkflowService().RequestRework(c.Request.Context(), orderID, req.Notes)
	if err != nil {
		respondError(c, err, "Failed to request rework")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// MarkCollected handles POST /api/v1/orders/:id/collect
func MarkCollected(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := services.GetWorkflowService().MarkCollected(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "Failed to mark order as collected")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

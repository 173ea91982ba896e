package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/models"
	"github.com/kendall-kelly/tailoring-orders-api/services"
)

// CreateStaffRequest represents the request body for registering a staff member
type CreateStaffRequest struct {
	Name  string      `json:"name" binding:"required"`
	Phone string      `json:"phone" binding:"required"`
	Role  models.Role `json:"role" binding:"required"`
}

// UpdateStaffRequest represents the request body for editing a staff member
type UpdateStaffRequest struct {
	Name     *string      `json:"name"`
	Phone    *string      `json:"phone"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// CreateStaff handles POST /api/v1/staff
func CreateStaff(c *gin.Context) {
	var req CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	staff, err := services.GetStaffService().CreateStaff(c.Request.Context(), services.CreateStaffInput{
		Name:  req.Name,
		Phone: req.Phone,
		Role:  req.Role,
	})
	if err != nil {
		respondError(c, err, "Failed to create staff member")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    staff,
	})
}

// ListStaff handles GET /api/v1/staff?role=&availability=&include_inactive=
func ListStaff(c *gin.Context) {
	filter := services.StaffFilter{
		Availability: services.Availability(c.Query("availability")),
	}
	if role := c.Query("role"); role != "" {
		r := models.Role(role)
		filter.Role = &r
	}
	if includeInactive := c.Query("include_inactive"); includeInactive != "" {
		value, err := strconv.ParseBool(includeInactive)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "include_inactive must be true or false")
			return
		}
		filter.IncludeInactive = value
	}

	staff, err := services.GetStaffService().ListStaff(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve staff")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    staff,
	})
}

// GetStaff handles GET /api/v1/staff/:id
func GetStaff(c *gin.Context) {
	staffID, ok := idParam(c, "id")
	if !ok {
		return
	}

	staff, err := services.GetStaffService().GetStaff(c.Request.Context(), staffID)
	if err != nil {
		respondError(c, err, "Failed to retrieve staff member")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    staff,
	})
}

// UpdateStaff handles PUT /api/v1/staff/:id
func UpdateStaff(c *gin.Context) {
	staffID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	staff, err := services.GetStaffService().UpdateStaff(c.Request.Context(), staffID, services.StaffPatch{
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, err, "Failed to update staff member")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    staff,
	})
}

// DeleteStaff handles DELETE /api/v1/staff/:id?hard=true.
// A hard delete of someone with work history is downgraded to deactivation.
func DeleteStaff(c *gin.Context) {
	staffID, ok := idParam(c, "id")
	if !ok {
		return
	}

	forceHard := false
	if hard := c.Query("hard"); hard != "" {
		value, err := strconv.ParseBool(hard)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "hard must be true or false")
			return
		}
		forceHard = value
	}

	deletion, err := services.GetStaffService().DeleteStaff(c.Request.Context(), staffID, forceHard)
	if err != nil {
		respondError(c, err, "Failed to delete staff member")
		return
	}

	message := "Staff member deactivated"
	switch {
	case deletion.Kind == services.HardDelete:
		message = "Staff member deleted"
	case deletion.FellBackToSoft():
		message = "Staff member has work history and was deactivated instead of deleted"
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"data":    deletion,
	})
}

// ListStaffAssignments handles GET /api/v1/staff/:id/assignments
func ListStaffAssignments(c *gin.Context) {
	staffID, ok := idParam(c, "id")
	if !ok {
		return
	}

	assignments, err := services.GetStaffService().ListStaffAssignments(c.Request.Context(), staffID)
	if err != nil {
		respondError(c, err, "Failed to retrieve assignments")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    assignments,
	})
}

package controllers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/services"
	"github.com/kendall-kelly/tailoring-orders-api/utils"
)

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondError maps a service error onto the API envelope. Business rule messages are
// returned verbatim; anything unexpected is logged and reported as a database error.
func respondError(c *gin.Context, err error, fallback string) {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		errorResponse(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	var workflowErr *services.WorkflowError
	if errors.As(err, &workflowErr) {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, services.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, services.ErrInvariantViolation):
			status = http.StatusConflict
		case errors.Is(err, services.ErrValidation):
			status = http.StatusBadRequest
		}
		errorResponse(c, status, workflowErr.Code, workflowErr.Message)
		return
	}

	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", fallback)
}

func bindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// idParam reads a positive numeric path parameter, writing a 400 when it is malformed
func idParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || value == 0 {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name+": "+c.Param(name))
		return 0, false
	}
	return uint(value), true
}

// queryInt reads an optional integer query parameter; a malformed value is ignored
func queryInt(c *gin.Context, name string) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return value
}

package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/models"
	"github.com/kendall-kelly/tailoring-orders-api/services"
	"github.com/kendall-kelly/tailoring-orders-api/utils"
)

// CreateOrderRequest represents the JSON body for creating an order
type CreateOrderRequest struct {
	CustomerName           string              `json:"customer_name" binding:"required"`
	CustomerPhone          string              `json:"customer_phone" binding:"required"`
	CustomerEmail          string              `json:"customer_email"`
	GarmentType            string              `json:"garment_type" binding:"required"`
	Gender                 models.Gender       `json:"gender" binding:"required"`
	ExpectedCollectionDate string              `json:"expected_collection_date" binding:"required"`
	Measurements           models.Measurements `json:"measurements"`
	FabricType             string              `json:"fabric_type"`
	SpecialInstructions    string              `json:"special_instructions"`
}

// createOrderForm is the multipart variant; measurements arrive as a JSON string
type createOrderForm struct {
	CustomerName           string `form:"customer_name" binding:"required"`
	CustomerPhone          string `form:"customer_phone" binding:"required"`
	CustomerEmail          string `form:"customer_email"`
	GarmentType            string `form:"garment_type" binding:"required"`
	Gender                 string `form:"gender" binding:"required"`
	ExpectedCollectionDate string `form:"expected_collection_date" binding:"required"`
	Measurements           string `form:"measurements" binding:"required"`
	FabricType             string `form:"fabric_type"`
	SpecialInstructions    string `form:"special_instructions"`
}

// UpdateOrderRequest represents the request body for editing an order. Omitted fields are unchanged.
type UpdateOrderRequest struct {
	CustomerName           *string              `json:"customer_name"`
	CustomerPhone          *string              `json:"customer_phone"`
	CustomerEmail          *string              `json:"customer_email"`
	GarmentType            *string              `json:"garment_type"`
	Gender                 *models.Gender       `json:"gender"`
	ExpectedCollectionDate *string              `json:"expected_collection_date"`
	Measurements           *models.Measurements `json:"measurements"`
	FabricType             *string              `json:"fabric_type"`
	SpecialInstructions    *string              `json:"special_instructions"`
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// fabricPhotoFromForm returns the uploaded fabric_photo, or nil when the form has none
func fabricPhotoFromForm(c *gin.Context) (*services.PhotoUpload, error) {
	fileHeader, err := c.FormFile("fabric_photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, &utils.FileUploadError{Code: "INVALID_FILE", Message: "Could not read fabric_photo"}
	}
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return nil, err
	}
	return services.PhotoFromFileHeader(fileHeader)
}

func bindCreateOrder(c *gin.Context) (services.CreateOrderInput, error) {
	if !isMultipart(c) {
		var req CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return services.CreateOrderInput{}, err
		}
		due, err := services.ParseDueDate(req.ExpectedCollectionDate)
		if err != nil {
			return services.CreateOrderInput{}, err
		}
		return services.CreateOrderInput{
			CustomerName:           req.CustomerName,
			CustomerPhone:          req.CustomerPhone,
			CustomerEmail:          req.CustomerEmail,
			GarmentType:            req.GarmentType,
			Gender:                 req.Gender,
			ExpectedCollectionDate: due,
			Measurements:           req.Measurements,
			FabricType:             req.FabricType,
			SpecialInstructions:    req.SpecialInstructions,
		}, nil
	}

	var form createOrderForm
	if err := c.ShouldBind(&form); err != nil {
		return services.CreateOrderInput{}, err
	}
	var measurements models.Measurements
	if err := json.Unmarshal([]byte(form.Measurements), &measurements); err != nil {
		return services.CreateOrderInput{}, &services.WorkflowError{
			Kind:    services.ErrValidation,
			Code:    "VALIDATION_ERROR",
			Message: "Measurements must be a JSON object",
		}
	}
	due, err := services.ParseDueDate(form.ExpectedCollectionDate)
	if err != nil {
		return services.CreateOrderInput{}, err
	}
	photo, err := fabricPhotoFromForm(c)
	if err != nil {
		return services.CreateOrderInput{}, err
	}
	return services.CreateOrderInput{
		CustomerName:           form.CustomerName,
		CustomerPhone:          form.CustomerPhone,
		CustomerEmail:          form.CustomerEmail,
		GarmentType:            form.GarmentType,
		Gender:                 models.Gender(strings.ToLower(form.Gender)),
		ExpectedCollectionDate: due,
		Measurements:           measurements,
		FabricType:             form.FabricType,
		SpecialInstructions:    form.SpecialInstructions,
		FabricPhoto:            photo,
	}, nil
}

// CreateOrder handles POST /api/v1/orders - accepts JSON, or multipart with an optional fabric_photo
func CreateOrder(c *gin.Context) {
	input, err := bindCreateOrder(c)
	if err != nil {
		if isRequestError(err) {
			respondError(c, err, "Failed to create order")
			return
		}
		bindingError(c, err)
		return
	}

	order, err := services.GetWorkflowService().CreateOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// isRequestError reports errors that already carry an API code
func isRequestError(err error) bool {
	var workflowErr *services.WorkflowError
	var uploadErr *utils.FileUploadError
	return errors.As(err, &workflowErr) || errors.As(err, &uploadErr)
}

// ListOrders handles GET /api/v1/orders?stage=&collected=&search=&sort=&page=&limit=
func ListOrders(c *gin.Context) {
	filter := services.OrderFilter{
		Search: c.Query("search"),
		Sort:   services.OrderSort(c.Query("sort")),
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
	}
	if stage := c.Query("stage"); stage != "" {
		s := models.Stage(stage)
		filter.Stage = &s
	}
	if collected := c.Query("collected"); collected != "" {
		value, err := strconv.ParseBool(collected)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "collected must be true or false")
			return
		}
		filter.Collected = &value
	}

	orders, total, err := services.GetWorkflowService().ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to retrieve orders")
		return
	}

	page, limit := services.NormalizePage(filter.Page, filter.Limit)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    orders,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := services.GetWorkflowService().GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "Failed to retrieve order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func GetOrderHistory(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	history, err := services.GetWorkflowService().GetOrderHistory(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "Failed to retrieve order history")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    history,
	})
}

// UpdateOrder handles PUT /api/v1/orders/:id
func UpdateOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	patch := services.OrderPatch{
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		CustomerEmail:       req.CustomerEmail,
		GarmentType:         req.GarmentType,
		Gender:              req.Gender,
		Measurements:        req.Measurements,
		FabricType:          req.FabricType,
		SpecialInstructions: req.SpecialInstructions,
	}
	if req.ExpectedCollectionDate != nil {
		due, err := services.ParseDueDate(*req.ExpectedCollectionDate)
		if err != nil {
			respondError(c, err, "Failed to update order")
			return
		}
		patch.ExpectedCollectionDate = &due
	}

	order, err := services.GetWorkflowService().UpdateOrder(c.Request.Context(), orderID, patch)
	if err != nil {
		respondError(c, err, "Failed to update order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// ReplaceFabricPhoto handles PUT /api/v1/orders/:id/fabric-photo (multipart, field fabric_photo)
func ReplaceFabricPhoto(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	photo, err := fabricPhotoFromForm(c)
	if err != nil {
		respondError(c, err, "Failed to read fabric photo")
		return
	}
	if photo == nil {
		errorResponse(c, http.StatusBadRequest, "MISSING_FILE", "fabric_photo file is required")
		return
	}

	order, err := services.GetWorkflowService().ReplaceFabricPhoto(c.Request.Context(), orderID, photo)
	if err != nil {
		respondError(c, err, "Failed to replace fabric photo")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func DeleteOrder(c *gin.Context) {
	orderID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := services.GetWorkflowService().DeleteOrder(c.Request.Context(), orderID); err != nil {
		respondError(c, err, "Failed to delete order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

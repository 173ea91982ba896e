package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/models"
	"github.com/kendall-kelly/tailoring-orders-api/services"
	"github.com/kendall-kelly/tailoring-orders-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	return router
}

type controllerEnv struct {
	db       *gorm.DB
	services *testutil.TestServices
	router   *gin.Engine
}

// newControllerEnv wires a fresh database and service graph and mounts every handler
func newControllerEnv(t *testing.T) *controllerEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	env := &controllerEnv{
		db:       db,
		services: testutil.InitTestServices(t, db),
		router:   setupTestRouter(),
	}

	r := env.router
	r.POST("/staff", CreateStaff)
	r.GET("/staff", ListStaff)
	r.GET("/staff/:id", GetStaff)
	r.PUT("/staff/:id", UpdateStaff)
	r.DELETE("/staff/:id", DeleteStaff)
	r.GET("/staff/:id/assignments", ListStaffAssignments)

	r.POST("/orders", CreateOrder)
	r.POST("/orders/import", ImportOrders)
	r.GET("/orders", ListOrders)
	r.GET("/orders/:id", GetOrder)
	r.PUT("/orders/:id", UpdateOrder)
	r.DELETE("/orders/:id", DeleteOrder)
	r.GET("/orders/:id/history", GetOrderHistory)
	r.PUT("/orders/:id/fabric-photo", ReplaceFabricPhoto)
	r.POST("/orders/:id/assign", AssignStaff)
	r.POST("/orders/:id/complete-stage", CompleteStage)
	r.POST("/orders/:id/rework", RequestRework)
	r.POST("/orders/:id/collect", MarkCollected)

	r.GET("/dashboard/stats", GetDashboardStats)
	return env
}

// do sends a JSON request and decodes the JSON response
func (e *controllerEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "response is JSON: %s", w.Body.String())
	return w, response
}

func (e *controllerEnv) createStaff(t *testing.T, name, phone string, role models.Role) *models.Staff {
	t.Helper()
	staff, err := e.services.Staff.CreateStaff(t.Context(), services.CreateStaffInput{Name: name, Phone: phone, Role: role})
	require.NoError(t, err)
	return staff
}

func (e *controllerEnv) createOrder(t *testing.T, name string) *models.Order {
	t.Helper()
	w, response := e.do(t, http.MethodPost, "/orders", orderPayload(name))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var order models.Order
	data, err := json.Marshal(response["data"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &order))
	return &order
}

func orderPayload(name string) map[string]interface{} {
	return map[string]interface{}{
		"customer_name":            name,
		"customer_phone":           "08031234567",
		"customer_email":           "customer@example.com",
		"garment_type":             "agbada",
		"gender":                   "male",
		"expected_collection_date": "2030-06-30",
		"measurements": map[string]interface{}{
			"male": map[string]interface{}{"chest": 42, "waist": 36},
		},
		"fabric_type": "aso-oke",
	}
}

// multipartRequest builds a form request; fileName == "" leaves out the fabric_photo part
func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("fabric_photo", fileName)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(method, path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func orderPath(id uint, suffix string) string {
	return fmt.Sprintf("/orders/%d%s", id, suffix)
}

func errorCode(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func errorMessage(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	message, _ := errObj["message"].(string)
	return message
}

package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func importRow(name, dueDate string) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"phone":        "08031234567",
		"garment_type": "kaftan",
		"gender":       "male",
		"due_date":     dueDate,
		"measurements": map[string]interface{}{"male": map[string]interface{}{"chest": 40}},
	}
}

func TestImportOrders(t *testing.T) {
	env := newControllerEnv(t)

	w, response := env.do(t, http.MethodPost, "/orders/import", map[string]interface{}{
		"rows": []interface{}{
			importRow("Amaka", "2030-05-01"),
			importRow("Bola", "whenever"),
			importRow("Chinedu Okafor", "2030-05-03"),
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["processed"])
	assert.Equal(t, float64(2), data["succeeded"])
	assert.Equal(t, float64(1), data["failed"])
	assert.NotEmpty(t, data["batch_id"])

	errs := data["errors"].([]interface{})
	require.Len(t, errs, 1)
	rowErr := errs[0].(map[string]interface{})
	assert.Equal(t, float64(2), rowErr["row"])
	assert.Equal(t, "Bola", rowErr["customer"])
	assert.Contains(t, rowErr["error"], "due date")

	w, response = env.do(t, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, response["data"].([]interface{}), 2)
}

func TestImportOrders_RejectsWholeBatch(t *testing.T) {
	env := newControllerEnv(t)

	tooMany := make([]interface{}, 0, 6)
	for i := 0; i < 6; i++ {
		tooMany = append(tooMany, importRow("Amaka", "2030-05-01"))
	}

	tests := []struct {
		name          string
		body          map[string]interface{}
		expectedError string
	}{
		{"no rows field", map[string]interface{}{}, "VALIDATION_ERROR"},
		{"empty rows", map[string]interface{}{"rows": []interface{}{}}, "VALIDATION_ERROR"},
		{"over the row limit", map[string]interface{}{"rows": tooMany}, "IMPORT_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := env.do(t, http.MethodPost, "/orders/import", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.expectedError, errorCode(response))
		})
	}
}

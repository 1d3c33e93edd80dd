package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("body %q: %v", w.Body.String(), err)
	}
	return out
}

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(RequestIDKey, "3f1c7e0a-0000-4000-8000-000000000001")
	return c, w
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		write   func(c *gin.Context)
		status  int
		success bool
		message string
	}{
		{
			name:    "success defaults to 200",
			write:   func(c *gin.Context) { Success(c, 0, map[string]int{"id": 1}, "user", nil) },
			status:  http.StatusOK,
			success: true,
			message: "user",
		},
		{
			name:    "created",
			write:   func(c *gin.Context) { Success(c, http.StatusCreated, map[string]int{"id": 2}, "user created", nil) },
			status:  http.StatusCreated,
			success: true,
			message: "user created",
		},
		{
			name:    "error defaults to 400",
			write:   func(c *gin.Context) { Error[any](c, 0, "bad request", nil) },
			status:  http.StatusBadRequest,
			message: "bad request",
		},
		{
			name:    "invalid",
			write:   func(c *gin.Context) { Invalid(c, map[string]string{"email": "can't be blank"}) },
			status:  http.StatusUnprocessableEntity,
			message: "validation failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext()
			tt.write(c)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			body := decode(t, w)
			if body["success"] != tt.success || body["message"] != tt.message || body["status"] != float64(tt.status) {
				t.Fatalf("body = %v", body)
			}
			if body["request_id"] != "3f1c7e0a-0000-4000-8000-000000000001" {
				t.Fatalf("request_id = %v", body["request_id"])
			}
		})
	}
}

func TestInvalidCarriesFields(t *testing.T) {
	c, w := testContext()
	Invalid(c, map[string]string{"reset_password_token": "is invalid"})
	body := decode(t, w)
	errs, _ := body["error"].(map[string]any)
	if errs["reset_password_token"] != "is invalid" {
		t.Fatalf("error = %v", body["error"])
	}
	if _, ok := body["data"]; ok {
		t.Fatal("error envelope carries data")
	}
}

package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(roles []string) *gin.Engine {
		r := gin.New()
		r.GET("/admin", func(c *gin.Context) {
			c.Set(ContextCompanyIDKey, uuid.New())
			c.Set(ContextSubjectKey, "admin")
			c.Set(ContextRolesKey, roles)
			c.Next()
		}, RequireRole(RoleCompanyAdmin), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}

	rec := httptest.NewRecorder()
	newRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error != "forbidden" {
		t.Fatalf("unexpected body %s (%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	newRouter([]string{RoleCompanyAdmin}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected admin to pass, got %d", rec.Code)
	}
}

package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizhub-backend/internal/model"
)

func TestStrongPassword(t *testing.T) {
	cases := map[string]bool{
		"Secret123":  true,
		"secret123":  false,
		"SECRET123":  false,
		"SecretWord": false,
		"":           false,
	}
	for in, want := range cases {
		if got := StrongPassword(in); got != want {
			t.Errorf("StrongPassword(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBindTranslatesFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	Setup()

	body := `{"email":"not-an-email","username":"al","password":"weakpassword"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")

	var req model.RegisterRequest
	fields := Bind(c, &req)
	if fields == nil {
		t.Fatal("expected validation errors")
	}
	for _, f := range []string{"email", "username", "password"} {
		if fields[f] == "" {
			t.Errorf("missing error for %s: %v", f, fields)
		}
	}
}

func TestBindReportsSyntaxErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	var req model.LoginRequest
	if fields := Bind(c, &req); fields["detail"] == "" {
		t.Fatalf("fields = %v", fields)
	}
}

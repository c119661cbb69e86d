package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"billsplit/internal/auth"

	"github.com/gin-gonic/gin"
)

func newIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer("test-secret-key-for-testing-only", time.Hour)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	return issuer
}

func protectedRouter(issuer *auth.TokenIssuer, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware(issuer))
	if len(roles) > 0 {
		router.Use(RequireRole(roles...))
	}
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString("subject")})
	})
	return router
}

func serve(router *gin.Engine, header, value string) int {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	issuer := newIssuer(t)
	router := protectedRouter(issuer)

	token, err := issuer.GenerateToken("admin", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}

	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"invalid format", "InvalidFormat", http.StatusUnauthorized},
		{"invalid token", "Bearer invalid_token_xyz", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := "Authorization"
			if tt.value == "" {
				header = ""
			}
			if got := serve(router, header, tt.value); got != tt.want {
				t.Errorf("expected status %d, got %d", tt.want, got)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	issuer := newIssuer(t)
	router := protectedRouter(issuer, auth.RoleAdmin)

	admin, _ := issuer.GenerateToken("admin", auth.RoleAdmin)
	viewer, _ := issuer.GenerateToken("someone", "VIEWER")

	if got := serve(router, "Authorization", "Bearer "+admin); got != http.StatusOK {
		t.Errorf("expected admin to pass, got %d", got)
	}
	if got := serve(router, "Authorization", "Bearer "+viewer); got != http.StatusForbidden {
		t.Errorf("expected viewer to be forbidden, got %d", got)
	}
}

func TestWebhookSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(WebhookSecret("s3cret"))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	if got := serve(router, SecretTokenHeader, "s3cret"); got != http.StatusOK {
		t.Errorf("expected matching secret to pass, got %d", got)
	}
	if got := serve(router, SecretTokenHeader, "wrong"); got != http.StatusUnauthorized {
		t.Errorf("expected wrong secret to be rejected, got %d", got)
	}
	if got := serve(router, "", ""); got != http.StatusUnauthorized {
		t.Errorf("expected missing secret to be rejected, got %d", got)
	}

	open := gin.New()
	open.Use(WebhookSecret(""))
	open.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })
	if got := serve(open, "", ""); got != http.StatusOK {
		t.Errorf("expected empty secret to disable the check, got %d", got)
	}
}

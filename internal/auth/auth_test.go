package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T, password string) (*Service, *TokenIssuer) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	issuer, err := NewTokenIssuer("test-secret-key-12345", time.Hour)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	return NewService(string(hash), issuer), issuer
}

func TestJWTFlow(t *testing.T) {
	issuer, err := NewTokenIssuer("test-secret-key-12345", time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token, err := issuer.GenerateToken("admin", RoleAdmin)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	subject, role, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}
	if subject != "admin" || role != RoleAdmin {
		t.Fatalf("unexpected claims: %s %s", subject, role)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", time.Hour)
	b, _ := NewTokenIssuer("secret-b", time.Hour)

	token, _ := a.GenerateToken("admin", RoleAdmin)
	if _, _, err := b.ValidateToken(token); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestLogin(t *testing.T) {
	service, issuer := newTestService(t, "Password@123")

	token, err := service.Login("Password@123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, role, err := issuer.ValidateToken(token); err != nil || role != RoleAdmin {
		t.Fatalf("expected admin token, got role=%q err=%v", role, err)
	}

	if _, err := service.Login("wrong"); err != ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service, _ := newTestService(t, "Password@123")

	r := gin.New()
	r.POST("/auth/login", NewHandler(service).Login)

	tests := []struct {
		body string
		want int
	}{
		{`{"password":"Password@123"}`, http.StatusOK},
		{`{"password":"nope"}`, http.StatusUnauthorized},
		{`not json`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(tt.body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("%s: expected status %d, got %d", tt.body, tt.want, w.Code)
		}
		if tt.want == http.StatusOK {
			var resp map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp["token"] == "" {
				t.Error("expected token in response")
			}
		}
	}
}

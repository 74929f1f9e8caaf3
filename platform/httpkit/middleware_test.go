package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type testJWTConfig struct{ secret string }

func (c testJWTConfig) GetJWTAccessSecret() string { return c.secret }

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id := GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"user": id.UserID().String(), "admin": id.IsAdmin()})
	})
	r.GET("/", handlers...)
	return r
}

func doRequest(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	userID := uuid.New()
	valid := signToken(t, jwt.MapClaims{
		"sub": userID.String(), "type": "access", "roles": []string{"agent"},
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	refresh := signToken(t, jwt.MapClaims{
		"sub": userID.String(), "type": "refresh", "exp": time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.MapClaims{
		"sub": userID.String(), "type": "access", "exp": time.Now().Add(-time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		token  string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"valid", valid, http.StatusOK},
		{"wrong type", refresh, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"garbage", "not-a-token", http.StatusUnauthorized},
	}

	r := newTestRouter(AuthRequired(testJWTConfig{secret: testSecret}))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doRequest(r, tt.token); w.Code != tt.status {
				t.Fatalf("expected %d, got %d (%s)", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	agentToken := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(), "type": "access", "roles": []any{"agent"},
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	adminToken := signToken(t, jwt.MapClaims{
		"sub": uuid.NewString(), "type": "access", "roles": []any{"admin"},
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	r := newTestRouter(AuthRequired(testJWTConfig{secret: testSecret}), RequireRole(RoleAdmin))
	if w := doRequest(r, agentToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected agent to be forbidden, got %d", w.Code)
	}
	if w := doRequest(r, adminToken); w.Code != http.StatusOK {
		t.Fatalf("expected admin to pass, got %d", w.Code)
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(0, 2, nil)
	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("expected burst of two to be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("expected other ip to have its own bucket")
	}
}

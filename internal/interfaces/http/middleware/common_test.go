package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/bridge/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(mw...)
	router.POST("/sync", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestSecure(t *testing.T) {
	router := newRouter(Secure())
	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestServiceToken(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key-at-least-32-chars", "erp-bridge", time.Hour)
	valid, _, err := tokens.Issue("scheduler", 0)
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "erp-bridge",
		Subject:   "scheduler",
		Audience:  jwt.ClaimStrings{auth.Audience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}).SignedString([]byte("test-secret-key-at-least-32-chars"))
	require.NoError(t, err)
	foreign, _, err := auth.NewTokenService("another-secret-another-secret-00", "erp-bridge", time.Hour).Issue("scheduler", 0)
	require.NoError(t, err)

	tests := []struct {
		name    string
		tokens  *auth.TokenService
		header  string
		want    int
		message string
	}{
		{"disabled without secret", auth.NewTokenService("", "erp-bridge", time.Hour), "", http.StatusOK, ""},
		{"valid token", tokens, "Bearer " + valid, http.StatusOK, ""},
		{"missing header", tokens, "", http.StatusUnauthorized, "missing API token"},
		{"wrong scheme", tokens, "Basic " + valid, http.StatusUnauthorized, "missing API token"},
		{"static string", tokens, "Bearer test-secret-key-at-least-32-chars", http.StatusUnauthorized, "invalid API token"},
		{"signed with another secret", tokens, "Bearer " + foreign, http.StatusUnauthorized, "invalid API token"},
		{"expired", tokens, "Bearer " + expired, http.StatusUnauthorized, "API token has expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			router := gin.New()
			router.Use(ServiceToken(tt.tokens))
			router.POST("/sync", func(c *gin.Context) {
				subject = c.GetString("token_subject")
				c.String(http.StatusOK, "ok")
			})
			req := httptest.NewRequest(http.MethodPost, "/sync", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "ERR_UNAUTHORIZED")
				assert.Contains(t, w.Body.String(), tt.message)
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
			if tt.name == "valid token" {
				assert.Equal(t, "scheduler", subject)
			}
		})
	}
}

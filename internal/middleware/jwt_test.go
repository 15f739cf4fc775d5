package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/eduops/cohort-sync-api/internal/models"
	"github.com/eduops/cohort-sync-api/internal/service"
	"github.com/eduops/cohort-sync-api/pkg/config"
)

const testSecret = "test-secret"

func buildProtectedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	tokens := service.NewTokenService(config.JWTConfig{Secret: testSecret})
	router := gin.New()
	router.Use(JWT(tokens))
	router.GET("/protected", func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"subject": claims.Subject})
	})
	return router
}

func signToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	claims := models.JWTClaims{
		Subject: "ops-runner",
		Role:    "service",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTAllowsValidToken(t *testing.T) {
	router := buildProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Now().Add(time.Hour)))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), "ops-runner")
}

func TestJWTRejectsMissingHeader(t *testing.T) {
	router := buildProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTRejectsMalformedHeader(t *testing.T) {
	router := buildProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	router := buildProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, time.Now().Add(-time.Hour)))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	router := buildProtectedRouter()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", time.Now().Add(time.Hour)))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

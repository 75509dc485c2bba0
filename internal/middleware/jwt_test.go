package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certifyme/attest-api/internal/models"
	"github.com/certifyme/attest-api/internal/service"
	"github.com/certifyme/attest-api/pkg/config"
)

func newAuthTestRouter(t *testing.T, authService *service.AuthService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/admin", JWT(authService), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.UserID})
	})
	return r
}

func TestJWTAcceptsIssuedToken(t *testing.T) {
	authService := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Hour}, nil)
	r := newAuthTestRouter(t, authService)

	token, err := authService.IssueToken("registrar-7", models.RoleAdmin)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "registrar-7")
}

func TestJWTRejectsMissingOrMalformedHeader(t *testing.T) {
	authService := service.NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)
	r := newAuthTestRouter(t, authService)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRejectsForeignSignature(t *testing.T) {
	authService := service.NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)
	other := service.NewAuthService(config.JWTConfig{Secret: "other-secret"}, nil)
	r := newAuthTestRouter(t, authService)

	token, err := other.IssueToken("registrar-7", models.RoleAdmin)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleBlocksNonAdmins(t *testing.T) {
	authService := service.NewAuthService(config.JWTConfig{Secret: "test-secret"}, nil)
	r := newAuthTestRouter(t, authService)

	token, err := authService.IssueToken("issuer-1", models.RoleIssuer)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "insufficient role")
}

func TestExpiredTokenRejected(t *testing.T) {
	authService := service.NewAuthService(config.JWTConfig{Secret: "test-secret", Expiration: time.Nanosecond}, nil)
	r := newAuthTestRouter(t, authService)

	token, err := authService.IssueToken("registrar-7", models.RoleAdmin)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

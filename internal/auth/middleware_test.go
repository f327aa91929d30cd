package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/curbfleet/mds-provider/internal/mds"
)

func newAuthedRouter(t *testing.T) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewKeyStore()
	key, err := store.Generate(testProvider)
	require.NoError(t, err)
	gate := NewGate(testProvider, nil, NewAPIKeyVerifier(store))

	r := gin.New()
	r.Use(Middleware(gate, zap.NewNop()))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/vehicles", func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"provider": id.Provider})
	})
	return r, key
}

func TestMiddlewarePublicPathsBypass(t *testing.T) {
	r, _ := newAuthedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRejectsAnonymous(t *testing.T) {
	r, _ := newAuthedRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vehicles", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, mds.ContentType, w.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "authentication_required", body["error"])
	assert.NotEmpty(t, body["error_description"])
}

func TestMiddlewareAcceptsAPIKey(t *testing.T) {
	r, key := newAuthedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/vehicles", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, testProvider, body["provider"])
}

func TestMiddlewareRejectsForeignProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewKeyStore()
	key, err := store.Generate("someone-else")
	require.NoError(t, err)
	gate := NewGate(testProvider, nil, NewAPIKeyVerifier(store))

	r := gin.New()
	r.Use(Middleware(gate, zap.NewNop()))
	r.GET("/vehicles", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/vehicles", nil)
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "invalid_provider", body["error"])
}

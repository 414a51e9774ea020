package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/shelfscan/config"
	"github.com/use-agent/shelfscan/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(IdentityKey))
	})
	return r
}

func get(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.False(t, resp.Success)
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"k1", "", "k2"}))

	w := get(r, "X-API-Key", "k1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "k1", w.Body.String())

	w = get(r, "Authorization", "Bearer k2")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(r, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.ErrCodeUnauthorized, errorCode(t, w))

	w = get(r, "X-API-Key", "nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_NoKeysIsOpen(t *testing.T) {
	r := newEngine(Auth([]string{""}))
	assert.Equal(t, http.StatusOK, get(r, "", "").Code)
}

func TestRateLimit_PerIdentity(t *testing.T) {
	r := newEngine(Auth([]string{"a", "b"}), RateLimit(config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	assert.Equal(t, http.StatusOK, get(r, "X-API-Key", "a").Code)
	assert.Equal(t, http.StatusOK, get(r, "X-API-Key", "a").Code)

	w := get(r, "X-API-Key", "a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, models.ErrCodeRateLimited, errorCode(t, w))

	assert.Equal(t, http.StatusOK, get(r, "X-API-Key", "b").Code, "other keys keep their own bucket")
}

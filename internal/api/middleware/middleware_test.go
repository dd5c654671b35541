package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"flavor-remix/internal/pkg/common"
)

func TestMain(m *testing.M) {
	common.Logger = zap.NewNop()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func decodeBody(t *testing.T, recorder *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	payload := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	return payload
}

func TestRequestIDFromHeaderFallback(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	// 呼叫端自帶的標識優先
	c.Request.Header.Set("X-Request-ID", "caller-id")
	assert.Equal(t, "caller-id", requestIDFrom(c))

	// 沒帶時退回 requestid 中間件寫入回應標頭的值
	c.Request.Header.Del("X-Request-ID")
	c.Writer.Header().Set("X-Request-ID", "generated-id")
	assert.Equal(t, "generated-id", requestIDFrom(c))
}

func TestRateLimiterRefusesWhenDrained(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)

	allowed, _ := limiter.Allow()
	assert.True(t, allowed)
	allowed, _ = limiter.Allow()
	assert.True(t, allowed)

	allowed, wait := limiter.Allow()
	assert.False(t, allowed)
	assert.GreaterOrEqual(t, wait, 500*time.Millisecond)
}

func TestRateLimitMiddlewareRetryAfter(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(1, time.Minute))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	payload := decodeBody(t, second)
	assert.Equal(t, common.ErrCodeTooManyRequests, payload["code"])

	// Retry-After 以秒為單位，允許小數，底線半秒
	seconds, err := strconv.ParseFloat(second.Header().Get("Retry-After"), 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seconds, 0.5)
}

func TestBodySizeLimitRejectsOversizedBody(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimit(8))
	router.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("way past the cap"))
	router.ServeHTTP(recorder, request)

	require.Equal(t, http.StatusRequestEntityTooLarge, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, common.ErrCodePayloadTooLarge, payload["code"])
	assert.Equal(t, float64(8), payload["max_size"])
}

func TestBodySizeLimitAllowsSmallBody(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimit(1 << 10))
	router.POST("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"ok":true}`))
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRecoveryReturnsInternalErrorCode(t *testing.T) {
	router := gin.New()
	router.Use(Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("boom") })

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, recorder.Code)
	payload := decodeBody(t, recorder)
	assert.Equal(t, common.ErrCodeInternalError, payload["code"])
}

package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"flavor-remix/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 建議重試間隔的下限；上游用戶端解析 Retry-After 時也以此為底
const minRetryAfter = 500 * time.Millisecond

// RateLimiter 令牌桶限流器
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	rate     float64 // 每秒補充的令牌數
	lastTime time.Time
}

// NewRateLimiter 創建新的限流器
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:   float64(requests),
		capacity: float64(requests),
		rate:     float64(requests) / window.Seconds(),
		lastTime: time.Now(),
	}
}

// Allow 嘗試取走一枚令牌
// 令牌不足時回傳拒絕與補上下一枚令牌所需的等待時間
func (rl *RateLimiter) Allow() (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.lastTime).Seconds() * rl.rate
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	rl.lastTime = now

	if rl.tokens >= 1 {
		rl.tokens--
		return true, 0
	}

	wait := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
	if wait < minRetryAfter {
		wait = minRetryAfter
	}
	return false, wait
}

// RateLimit 限流中間件
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(requests, window)

	return func(c *gin.Context) {
		allowed, wait := limiter.Allow()
		if !allowed {
			common.LogWarn("請求超出限流",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestIDFrom(c)),
				zap.Duration("retry_after", wait),
			)

			c.Header("Retry-After", strconv.FormatFloat(wait.Seconds(), 'f', -1, 64))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"code":        common.ErrCodeTooManyRequests,
				"retry_after": wait.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

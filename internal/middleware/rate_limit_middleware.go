package middleware

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/examsim-api/internal/domain/repository"
)

// RateLimitConfig содержит настройки rate limiting
type RateLimitConfig struct {
	// MaxRequests - максимальное количество запросов за Window
	MaxRequests int
	// Window - временное окно для подсчёта запросов
	Window time.Duration
	// KeyPrefix - префикс для ключей в Redis
	KeyPrefix string
}

// BuildRateLimitConfig возвращает конфигурацию для endpoints сборки экзаменов
func BuildRateLimitConfig(maxRequests, windowSeconds int) RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: maxRequests,
		Window:      time.Duration(windowSeconds) * time.Second,
		KeyPrefix:   "rl:build",
	}
}

// RateLimiter создаёт middleware для rate limiting на основе счётчиков в кеше
type RateLimiter struct {
	cache repository.CacheRepository
	now   func() time.Time
}

// NewRateLimiter создает новый RateLimiter
func NewRateLimiter(cache repository.CacheRepository) *RateLimiter {
	return &RateLimiter{cache: cache, now: time.Now}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// Ключ формируется из IP + endpoint path; окно фиксированное, начинается с первого запроса.
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		path := c.FullPath() // Gin route pattern, e.g. "/api/exams"
		if path == "" {
			path = c.Request.URL.Path
		}

		key := fmt.Sprintf("%s:%s:%s", cfg.KeyPrefix, clientIP, path)

		count, err := rl.cache.Increment(key)
		if err != nil {
			// При ошибке Redis пропускаем запрос (fail-open), но логируем
			log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
			c.Next()
			return
		}

		now := rl.now()
		resetIn := rl.windowRemaining(key, count, cfg.Window, now)

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		retryAfter := int(math.Ceil(resetIn.Seconds()))

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", now.Add(resetIn).Unix()))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for IP=%s path=%s. Count=%d, Limit=%d",
				clientIP, path, count, cfg.MaxRequests)

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// windowRemaining возвращает время до сброса счётчика.
// Первый запрос открывает окно; счётчик без срока жизни (не удалось выставить TTL ранее)
// получает новое окно, иначе он никогда не сбросится.
func (rl *RateLimiter) windowRemaining(key string, count int64, window time.Duration, now time.Time) time.Duration {
	if count > 1 {
		ttl, err := rl.cache.TTL(key)
		if err != nil {
			log.Printf("[RateLimiter] Failed to read TTL for key %s: %v", key, err)
			return window
		}
		if ttl > 0 {
			return ttl
		}
	}

	if err := rl.cache.ExpireAt(key, now.Add(window)); err != nil {
		log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
	}
	return window
}

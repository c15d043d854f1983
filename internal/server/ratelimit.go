package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
	"serotonyl.ru/labubu-roulette/internal/transport/httpx"
)

// Префикс ключей счётчиков в Redis
const rateKeyPrefix = "roulette:rate:"

// RateLimiter — окно фиксированной длины на счётчике Redis (INCR + EXPIRE).
// Счётчик общий для всех экземпляров сервиса.
type RateLimiter struct {
	client *goredis.Client
	limit  int64
	window time.Duration
}

// NewRateLimiter создаёт ограничитель: не более limit запросов за window.
func NewRateLimiter(client *goredis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, limit: int64(limit), window: window}
}

// Allow учитывает запрос по ключу. Если лимит исчерпан, возвращает false
// и время до открытия окна.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	redisKey := rateKeyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ошибка счётчика запросов: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("ошибка TTL счётчика запросов: %w", err)
		}
	}
	if count <= l.limit {
		return true, 0, nil
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ошибка чтения TTL: %w", err)
	}
	if ttl < 0 {
		// ключ без TTL остался бы навсегда
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
		ttl = l.window
	}
	return false, ttl, nil
}

// Middleware ограничивает маршрут по адресу клиента. Если Redis
// недоступен, запрос пропускается.
func (l *RateLimiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := scope + ":" + clientIP(r)
			ok, retryAfter, err := l.Allow(r.Context(), key)
			if err != nil {
				log.WithError(err).WithField("scope", scope).Warn("Rate limit недоступен, пропускаем запрос")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				log.WithFields(log.Fields{
					"scope": scope,
					"ip":    clientIP(r),
				}).Debug("rate limited")
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second)/time.Second)))
				httpx.WriteError(w, r, common.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

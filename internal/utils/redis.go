package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotHeld ключ уже истек или принадлежит другому владельцу
var ErrLockNotHeld = errors.New("lock not held")

// Удаляем ключ только если в нем наш токен, иначе можно снять чужую блокировку после истечения TTL
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient обертка над Redis клиентом для блокировок
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient создает новый Redis клиент
func NewRedisClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// PlanLockKey ключ блокировки запусков по плану
func PlanLockKey(planID string) string {
	return "kuchnia:plan-lock:" + planID
}

// AcquireLock SET NX PX со случайным токеном. ok=false значит ключ занят
func (r *RedisClient) AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.New().String()
	ok, err = r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// ReleaseLock снимает блокировку, если она все еще наша
func (r *RedisClient) ReleaseLock(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, r.client, []string{key}, token).Int64()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Ping проверяет доступность Redis (для /health)
func (r *RedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

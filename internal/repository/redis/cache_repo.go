package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yourusername/examsim-api/internal/domain/repository"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
)

// operationTimeout ограничивает каждую операцию с Redis
const operationTimeout = 2 * time.Second

// CacheRepo реализует repository.CacheRepository
type CacheRepo struct {
	client redis.UniversalClient
}

var _ repository.CacheRepository = (*CacheRepo)(nil)

// NewCacheRepo создает новый репозиторий кеша
func NewCacheRepo(client redis.UniversalClient) (*CacheRepo, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client cannot be nil for CacheRepo")
	}
	return &CacheRepo{client: client}, nil
}

func (r *CacheRepo) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), operationTimeout)
}

// Delete удаляет значение из кеша
func (r *CacheRepo) Delete(key string) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Del(ctx, key).Err()
}

// Increment увеличивает значение на 1
func (r *CacheRepo) Increment(key string) (int64, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Incr(ctx, key).Result()
}

// SetJSON сохраняет структуру JSON в кеше
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.Set(ctx, key, data, expiration).Err()
}

// GetJSON получает структуру JSON из кеша. Отсутствующий ключ - apperrors.ErrNotFound.
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	ctx, cancel := r.ctx()
	defer cancel()
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// ExpireAt устанавливает время истечения ключа
func (r *CacheRepo) ExpireAt(key string, expiration time.Time) error {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.ExpireAt(ctx, key, expiration).Err()
}

// TTL возвращает оставшееся время жизни ключа.
// Redis отвечает -2 для отсутствующего ключа и -1 для ключа без срока, оба случая дают 0.
func (r *CacheRepo) TTL(key string) (time.Duration, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// SetNX устанавливает значение ключа, только если ключ не существует.
// Возвращает true, если ключ был установлен, false - если ключ уже существовал.
func (r *CacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	ctx, cancel := r.ctx()
	defer cancel()
	return r.client.SetNX(ctx, key, value, expiration).Result()
}

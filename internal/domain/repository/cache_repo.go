package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	Delete(key string) error
	Increment(key string) (int64, error)
	SetJSON(key string, value interface{}, expiration time.Duration) error
	GetJSON(key string, dest interface{}) error
	ExpireAt(key string, expiration time.Time) error
	// TTL возвращает оставшееся время жизни ключа; 0, если ключа нет или срок не задан
	TTL(key string) (time.Duration, error)
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)
}

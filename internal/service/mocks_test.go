package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/examsim-api/internal/domain/entity"
	"github.com/yourusername/examsim-api/internal/domain/repository"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
)

// mockItemRepo реализует repository.ItemRepository
type mockItemRepo struct {
	mock.Mock
}

func (m *mockItemRepo) CreateBatch(ctx context.Context, items []entity.Item) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *mockItemRepo) GetByID(ctx context.Context, id uint) (*entity.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Item), args.Error(1)
}

func (m *mockItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]entity.Item, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Item), args.Error(1)
}

func (m *mockItemRepo) CountByDifficulty(ctx context.Context, filter repository.ItemFilter) (map[entity.Difficulty]int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.Difficulty]int64), args.Error(1)
}

func (m *mockItemRepo) DeleteByBank(ctx context.Context, bank string) (int64, error) {
	args := m.Called(ctx, bank)
	return args.Get(0).(int64), args.Error(1)
}

// memoryCache - CacheRepository в памяти с JSON-сериализацией, как у Redis-реализации
type memoryCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Increment(key string) (int64, error) {
	return 0, errors.New("increment is not used by services")
}

func (c *memoryCache) SetJSON(key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

func (c *memoryCache) GetJSON(key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet != nil {
		return c.failGet
	}
	raw, ok := c.data[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Exists(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok, nil
}

func (c *memoryCache) ExpireAt(string, time.Time) error { return nil }

func (c *memoryCache) TTL(string) (time.Duration, error) { return 0, nil }

func (c *memoryCache) SetNX(key string, value interface{}, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	raw, _ := json.Marshal(value)
	c.data[key] = raw
	return true, nil
}

// testPool создаёт пул: модуль legislation (easy/medium/hard) и specialty
func testPool() []entity.Item {
	var pool []entity.Item
	add := func(module, category string, d entity.Difficulty, n int) {
		for i := 0; i < n; i++ {
			id := uint(len(pool) + 1)
			pool = append(pool, entity.Item{
				ID:          id,
				Bank:        module,
				Prompt:      "Q",
				Options:     entity.StringArray{"A", "B", "C", "D"},
				AnswerIndex: 0,
				Difficulty:  d,
				Module:      module,
				Category:    category,
			})
		}
	}
	add("legislation", "", entity.DifficultyEasy, 15)
	add("legislation", "", entity.DifficultyMedium, 25)
	add("legislation", "", entity.DifficultyHard, 10)
	add("specialty", "", entity.DifficultyMedium, 80)
	return pool
}

func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }
func intPtr(v int) *int       { return &v }

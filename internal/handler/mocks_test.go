package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/examsim-api/internal/config"
	"github.com/yourusername/examsim-api/internal/domain/entity"
	"github.com/yourusername/examsim-api/internal/domain/repository"
	"github.com/yourusername/examsim-api/internal/middleware"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
	"github.com/yourusername/examsim-api/internal/service"
	"github.com/yourusername/examsim-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryItemRepo - ItemRepository в памяти
type memoryItemRepo struct {
	mu     sync.Mutex
	items  []entity.Item
	nextID uint
}

func (r *memoryItemRepo) CreateBatch(_ context.Context, items []entity.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range items {
		r.nextID++
		it.ID = r.nextID
		r.items = append(r.items, it)
	}
	return nil
}

func (r *memoryItemRepo) GetByID(_ context.Context, id uint) (*entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id {
			item := r.items[i].Clone()
			return &item, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memoryItemRepo) List(_ context.Context, filter repository.ItemFilter) ([]entity.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Item
	for _, it := range r.items {
		if matches(it, filter) {
			out = append(out, it.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryItemRepo) CountByDifficulty(_ context.Context, filter repository.ItemFilter) (map[entity.Difficulty]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[entity.Difficulty]int64)
	for _, it := range r.items {
		if matches(it, filter) {
			counts[it.Difficulty]++
		}
	}
	return counts, nil
}

func (r *memoryItemRepo) DeleteByBank(_ context.Context, bank string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	var deleted int64
	for _, it := range r.items {
		if it.Bank == bank {
			deleted++
			continue
		}
		kept = append(kept, it)
	}
	r.items = kept
	return deleted, nil
}

func matches(it entity.Item, filter repository.ItemFilter) bool {
	if filter.Bank != "" && it.Bank != filter.Bank {
		return false
	}
	if len(filter.Modules) == 0 {
		return true
	}
	for _, m := range filter.Modules {
		if it.Module == m {
			return true
		}
	}
	return false
}

// memoryCache - CacheRepository в памяти
type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
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
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if raw, ok := c.data[key]; ok {
		_ = json.Unmarshal(raw, &n)
	}
	n++
	c.data[key], _ = json.Marshal(n)
	return n, nil
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
	raw, ok := c.data[key]
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) ExpireAt(string, time.Time) error { return nil }

func (c *memoryCache) TTL(string) (time.Duration, error) { return 0, nil }

func (c *memoryCache) SetNX(key string, value interface{}, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[key]; ok {
		return false, nil
	}
	c.data[key], _ = json.Marshal(value)
	return true, nil
}

// seedItems заполняет банк: legislation 12/20/8 (easy/medium/hard), specialty 40 medium
func seedItems(repo *memoryItemRepo) {
	add := func(module string, d entity.Difficulty, n int) {
		items := make([]entity.Item, n)
		for i := range items {
			items[i] = entity.Item{
				Bank:        module,
				Prompt:      "Вопрос " + module,
				Options:     entity.StringArray{"Да", "Нет", "Не знаю", "=SUM(A1)"},
				AnswerIndex: 1,
				Explanation: "Пояснение",
				Rationales:  entity.StringArray{"r-Да", "r-Нет", "r-Не знаю", "r-=SUM(A1)"},
				Difficulty:  d,
				Module:      module,
			}
		}
		_ = repo.CreateBatch(context.Background(), items)
	}
	add("legislation", entity.DifficultyEasy, 12)
	add("legislation", entity.DifficultyMedium, 20)
	add("legislation", entity.DifficultyHard, 8)
	add("specialty", entity.DifficultyMedium, 40)
}

// newTestRouter собирает роутер с теми же маршрутами, что и API
func newTestRouter() (*gin.Engine, *memoryItemRepo) {
	repo := &memoryItemRepo{}
	seedItems(repo)
	cache := newMemoryCache()

	engineCfg := config.EngineConfig{
		DefaultLimit:    10,
		MaxLimit:        100,
		Ratios:          map[string]float64{"easy": 0.3, "medium": 0.5, "hard": 0.2},
		AntiGuessing:    true,
		CacheTTLMinutes: 60,
	}
	simulationCfg := config.SimulationConfig{
		DurationMinutes: 180,
		Sections: []config.SimulationSection{
			{Module: "legislation", Limit: 10, SeedOffset: 0},
			{Module: "specialty", Limit: 20, SeedOffset: 99},
		},
	}
	adaptiveCfg := config.AdaptiveConfig{StartLevel: 2, StreakUp: 2, StreakDown: 2, FallbackToHigher: true, SessionTTLMinutes: 60}

	examService := service.NewExamService(repo, cache, engineCfg, simulationCfg)
	adaptiveService := service.NewAdaptiveService(repo, cache, engineCfg, adaptiveCfg)

	examHandler := NewExamHandler(examService)
	adaptiveHandler := NewAdaptiveHandler(adaptiveService)
	itemHandler := NewItemHandler(examService)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/exams", examHandler.BuildExam)
	api.POST("/exams/simulation", examHandler.BuildSimulation)
	examID := middleware.ExtractExamIDParam("id", "examID")
	api.GET("/exams/:id", examID, examHandler.GetExam)
	api.POST("/exams/:id/grade", examID, examHandler.GradeExam)
	api.GET("/exams/:id/export", examID, examHandler.ExportExam)
	api.POST("/adaptive", adaptiveHandler.Start)
	api.POST("/adaptive/:id/answer", middleware.ExtractUUIDParam("id", "sessionID"), adaptiveHandler.Answer)
	api.GET("/items/stats", itemHandler.GetPoolStats)
	api.GET("/items/:id", middleware.ExtractUintParam("id", "itemID"), itemHandler.GetItem)
	admin := api.Group("/admin", middleware.NewAdminMiddleware(auth.NewAdminTokens(testAdminSecret)).RequireAdmin())
	admin.POST("/items/import", itemHandler.ImportBank)
	return r, repo
}

// unknownExamID - ID корректного формата, которого нет в кеше
const unknownExamID = "00000000deadbeef"

// unknownSessionID - UUID несуществующей сессии
const unknownSessionID = "6f1c2a4e-8b3d-4c5e-9f70-1a2b3c4d5e6f"

// testAdminSecret - ключ подписи административных токенов тестового роутера
const testAdminSecret = "handler-test-admin-secret-0123456"

// doRequest выполняет запрос к роутеру
func doRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	return doRequestWithHeaders(r, method, path, body, nil)
}

// doAdminRequest выполняет запрос с действующим административным токеном
func doAdminRequest(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	token, err := auth.NewAdminTokens(testAdminSecret).Generate("tests", time.Hour)
	require.NoError(t, err)
	return doRequestWithHeaders(r, method, path, body, map[string]string{"Authorization": "Bearer " + token})
}

func doRequestWithHeaders(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req, _ = http.NewRequest(method, path, nil)
	case string:
		req, _ = http.NewRequest(method, path, bytes.NewBufferString(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, _ := json.Marshal(b)
		req, _ = http.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/examsim-api/internal/config"
	"github.com/yourusername/examsim-api/internal/domain/entity"
	"github.com/yourusername/examsim-api/internal/domain/repository"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
	"github.com/yourusername/examsim-api/internal/service/examengine"
)

const examCacheKeyPrefix = "exam:"

// BuildRequest - параметры сборки экзамена
type BuildRequest struct {
	Modules    []string
	Categories []string
	// Limit: 0 = лимит по умолчанию из конфигурации
	Limit int
	// Ratios: nil = доли из конфигурации, пустая карта = равномерная выборка
	Ratios map[string]float64
	// Seed: nil = случайный seed, который возвращается в экзамене для воспроизведения
	Seed *int64
	// AntiGuessing: nil = значение из конфигурации
	AntiGuessing *bool
}

// ExamSection описывает раздел собранного экзамена
type ExamSection struct {
	Module string `json:"module"`
	Seed   int64  `json:"seed"`
	Offset int    `json:"offset"` // индекс первого вопроса раздела в Items
	Count  int    `json:"count"`
}

// Exam - собранный экзамен. Хранится в кеше целиком, вместе с ключами ответов.
type Exam struct {
	ID              string        `json:"id"`
	Seed            int64         `json:"seed"`
	Modules         []string      `json:"modules,omitempty"`
	Categories      []string      `json:"categories,omitempty"`
	Items           []entity.Item `json:"items"`
	Sections        []ExamSection `json:"sections,omitempty"`
	DurationMinutes int           `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// GradeReview - разбор ответа на один вопрос
type GradeReview struct {
	ItemID      uint   `json:"item_id"`
	Selected    int    `json:"selected"`
	AnswerIndex int    `json:"answer_index"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
	// Rationales - пояснения к каждому варианту в порядке вариантов экзамена
	Rationales []string `json:"rationales,omitempty"`
}

// GradeResult - итог проверки экзамена с разбором
type GradeResult struct {
	entity.ExamResult
	Review []GradeReview `json:"review"`
}

// PoolStats - статистика банка вопросов
type PoolStats struct {
	Total        int64            `json:"total"`
	ByDifficulty map[string]int64 `json:"by_difficulty"`
}

// ExamService собирает, хранит и проверяет экзамены
type ExamService struct {
	itemRepo   repository.ItemRepository
	cacheRepo  repository.CacheRepository
	engine     config.EngineConfig
	simulation config.SimulationConfig
	newSeed    func() int64
}

// NewExamService создает новый сервис экзаменов
func NewExamService(
	itemRepo repository.ItemRepository,
	cacheRepo repository.CacheRepository,
	engine config.EngineConfig,
	simulation config.SimulationConfig,
) *ExamService {
	return &ExamService{
		itemRepo:   itemRepo,
		cacheRepo:  cacheRepo,
		engine:     engine,
		simulation: simulation,
		newSeed:    randomSeed,
	}
}

// randomSeed возвращает seed из допустимого 32-битного диапазона
func randomSeed() int64 {
	return int64(uint32(time.Now().UnixNano()))
}

// BuildExam собирает экзамен по запросу. Одинаковые запросы с одинаковым seed
// возвращают один и тот же экзамен из кеша.
func (s *ExamService) BuildExam(ctx context.Context, req BuildRequest) (*Exam, error) {
	limit := req.Limit
	if limit == 0 {
		limit = s.engine.DefaultLimit
	}
	if limit < 0 {
		return nil, examengine.ErrInvalidLimit
	}
	if limit > s.engine.MaxLimit {
		return nil, fmt.Errorf("%w: limit %d exceeds maximum %d", apperrors.ErrValidation, limit, s.engine.MaxLimit)
	}

	seed := s.newSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	if err := examengine.ValidateSeed(seed); err != nil {
		return nil, err
	}
	antiGuessing := s.engine.AntiGuessing
	if req.AntiGuessing != nil {
		antiGuessing = *req.AntiGuessing
	}
	ratios := req.Ratios
	if ratios == nil {
		ratios = s.engine.Ratios
	}

	modules := normalizeList(req.Modules)
	categories := normalizeList(req.Categories)
	cfg := examengine.Config{
		Limit:        limit,
		Ratios:       toDifficultyRatios(ratios),
		Seed:         seed,
		AntiGuessing: antiGuessing,
	}

	pool, err := loadPool(ctx, s.itemRepo, modules, categories)
	if err != nil {
		return nil, err
	}

	// Версия пула входит в ID: после импорта или замены банка кеш не отдаёт старый экзамен
	id := fingerprint("exam", modules, categories, cfg, poolVersion(pool))
	if cached, ok := s.cachedExam(id); ok {
		return cached, nil
	}

	items, err := examengine.BuildExam(pool, cfg)
	if err != nil {
		return nil, err
	}

	exam := &Exam{
		ID:         id,
		Seed:       seed,
		Modules:    modules,
		Categories: categories,
		Items:      items,
		CreatedAt:  time.Now().UTC(),
	}
	s.storeExam(exam)

	log.Printf("[ExamService] Собран экзамен %s: %d вопросов из пула %d (seed=%d, модули=%v)",
		id, len(items), len(pool), seed, modules)
	return exam, nil
}

// BuildSimulation собирает полный экзамен из разделов конфигурации.
// Раздел i собирается с seed+SeedOffset, поэтому разделы не повторяют выборку друг друга.
func (s *ExamService) BuildSimulation(ctx context.Context, seed *int64) (*Exam, error) {
	base := s.newSeed()
	if seed != nil {
		base = *seed
	}
	if err := examengine.ValidateSeed(base); err != nil {
		return nil, err
	}

	pools := make([][]entity.Item, len(s.simulation.Sections))
	versions := make([]string, len(s.simulation.Sections))
	for i, section := range s.simulation.Sections {
		pool, err := s.itemRepo.List(ctx, repository.ItemFilter{Modules: []string{section.Module}})
		if err != nil {
			return nil, fmt.Errorf("failed to load pool for module %q: %w", section.Module, err)
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: no items in module %q", apperrors.ErrNotFound, section.Module)
		}
		pools[i] = pool
		versions[i] = poolVersion(pool)
	}

	id := fingerprint("simulation", nil, nil, examengine.Config{Seed: base}, strings.Join(versions, ","), s.simulation.Sections)
	if cached, ok := s.cachedExam(id); ok {
		return cached, nil
	}

	exam := &Exam{
		ID:              id,
		Seed:            base,
		DurationMinutes: s.simulation.DurationMinutes,
		Items:           []entity.Item{},
		CreatedAt:       time.Now().UTC(),
	}

	for i, section := range s.simulation.Sections {
		pool := pools[i]

		// Смещённый seed заворачивается в 32-битный диапазон
		sectionSeed := int64(uint32(base + section.SeedOffset))
		items, err := examengine.BuildExam(pool, examengine.Config{
			Limit:        section.Limit,
			Ratios:       toDifficultyRatios(s.engine.Ratios),
			Seed:         sectionSeed,
			AntiGuessing: s.engine.AntiGuessing,
		})
		if err != nil {
			return nil, err
		}

		exam.Sections = append(exam.Sections, ExamSection{
			Module: section.Module,
			Seed:   sectionSeed,
			Offset: len(exam.Items),
			Count:  len(items),
		})
		exam.Modules = append(exam.Modules, section.Module)
		exam.Items = append(exam.Items, items...)
	}

	s.storeExam(exam)
	log.Printf("[ExamService] Собрана симуляция %s: %d вопросов, %d разделов (seed=%d)",
		id, len(exam.Items), len(exam.Sections), base)
	return exam, nil
}

// GetExam возвращает ранее собранный экзамен
func (s *ExamService) GetExam(ctx context.Context, id string) (*Exam, error) {
	var exam Exam
	if err := s.cacheRepo.GetJSON(examCacheKeyPrefix+id, &exam); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: exam %s", apperrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load exam %s: %w", id, err)
	}
	return &exam, nil
}

// GradeExam проверяет ответы. answers[i] - выбранный вариант для i-го вопроса, -1 = без ответа.
// Недостающие ответы считаются пропущенными.
func (s *ExamService) GradeExam(ctx context.Context, id string, answers []int) (*GradeResult, error) {
	exam, err := s.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(answers) > len(exam.Items) {
		return nil, fmt.Errorf("%w: got %d answers for %d items", apperrors.ErrValidation, len(answers), len(exam.Items))
	}

	result := &GradeResult{
		ExamResult: Grade(exam.Items, answers),
		Review:     make([]GradeReview, len(exam.Items)),
	}
	for i := range exam.Items {
		item := &exam.Items[i]
		selected := -1
		if i < len(answers) {
			selected = answers[i]
		}
		result.Review[i] = GradeReview{
			ItemID:      item.ID,
			Selected:    selected,
			AnswerIndex: item.AnswerIndex,
			Correct:     item.IsCorrect(selected),
			Explanation: item.Explanation,
			Rationales:  item.Rationales,
		}
	}
	return result, nil
}

// PoolStats возвращает количество вопросов по сложностям
func (s *ExamService) PoolStats(ctx context.Context, modules []string, bank string) (*PoolStats, error) {
	counts, err := s.itemRepo.CountByDifficulty(ctx, repository.ItemFilter{Modules: normalizeList(modules), Bank: bank})
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}

	stats := &PoolStats{ByDifficulty: make(map[string]int64, len(counts))}
	for d, n := range counts {
		key := string(d)
		if !d.Valid() {
			key = "untagged"
		}
		stats.ByDifficulty[key] += n
		stats.Total += n
	}
	return stats, nil
}

// GetItem возвращает вопрос банка по ID
func (s *ExamService) GetItem(ctx context.Context, id uint) (*entity.Item, error) {
	return s.itemRepo.GetByID(ctx, id)
}

// ImportBank проверяет и сохраняет банк вопросов. При replace старые вопросы банка удаляются.
func (s *ExamService) ImportBank(ctx context.Context, bank string, items []entity.Item, replace bool) (int, error) {
	bank = strings.TrimSpace(bank)
	if bank == "" {
		return 0, fmt.Errorf("%w: bank name is required", apperrors.ErrValidation)
	}
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: no questions provided", apperrors.ErrValidation)
	}

	for i := range items {
		it := &items[i]
		if strings.TrimSpace(it.Prompt) == "" {
			return 0, fmt.Errorf("%w: empty prompt for question #%d", apperrors.ErrValidation, i+1)
		}
		if it.OptionsCount() < 2 {
			return 0, fmt.Errorf("%w: question #%d needs at least two options", apperrors.ErrValidation, i+1)
		}
		if !it.HasValidAnswer() {
			return 0, fmt.Errorf("%w: invalid answer_index for question #%d", apperrors.ErrValidation, i+1)
		}
		if it.Difficulty != "" && !it.Difficulty.Valid() {
			return 0, fmt.Errorf("%w: invalid difficulty %q for question #%d", apperrors.ErrValidation, it.Difficulty, i+1)
		}
		it.ID = 0
		it.Bank = bank
		if it.Module == "" {
			it.Module = bank
		}
	}

	if replace {
		deleted, err := s.itemRepo.DeleteByBank(ctx, bank)
		if err != nil {
			return 0, fmt.Errorf("failed to clear bank %q: %w", bank, err)
		}
		log.Printf("[ExamService] Банк %q очищен: удалено %d вопросов", bank, deleted)
	}

	if err := s.itemRepo.CreateBatch(ctx, items); err != nil {
		log.Printf("[ExamService] Ошибка импорта банка %q: %v", bank, err)
		return 0, fmt.Errorf("failed to import bank %q: %w", bank, err)
	}

	log.Printf("[ExamService] Импорт банка %q: добавлено %d вопросов", bank, len(items))
	return len(items), nil
}

// loadPool загружает пул модулей и применяет фильтр категорий.
// Если ни один вопрос пула не размечен категорией, фильтр игнорируется.
func loadPool(ctx context.Context, itemRepo repository.ItemRepository, modules, categories []string) ([]entity.Item, error) {
	pool, err := itemRepo.List(ctx, repository.ItemFilter{Modules: modules})
	if err != nil {
		return nil, fmt.Errorf("failed to load item pool: %w", err)
	}

	if len(categories) > 0 {
		pool = filterByCategory(pool, categories)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no items match modules %v and categories %v", apperrors.ErrNotFound, modules, categories)
	}
	return pool, nil
}

func filterByCategory(pool []entity.Item, categories []string) []entity.Item {
	hasCategory := false
	for i := range pool {
		if pool[i].Category != "" {
			hasCategory = true
			break
		}
	}
	if !hasCategory {
		return pool
	}

	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}
	out := make([]entity.Item, 0, len(pool))
	for i := range pool {
		if _, ok := wanted[pool[i].Category]; ok {
			out = append(out, pool[i])
		}
	}
	return out
}

func (s *ExamService) cachedExam(id string) (*Exam, bool) {
	var exam Exam
	err := s.cacheRepo.GetJSON(examCacheKeyPrefix+id, &exam)
	if err == nil {
		return &exam, true
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		// Кеш недоступен: собираем заново
		log.Printf("[ExamService] Ошибка чтения кеша для экзамена %s: %v", id, err)
	}
	return nil, false
}

func (s *ExamService) storeExam(exam *Exam) {
	ttl := time.Duration(s.engine.CacheTTLMinutes) * time.Minute
	if err := s.cacheRepo.SetJSON(examCacheKeyPrefix+exam.ID, exam, ttl); err != nil {
		log.Printf("[ExamService] Не удалось сохранить экзамен %s в кеш: %v", exam.ID, err)
	}
}

// poolVersion - отпечаток содержимого пула: число вопросов, их ID и время последнего изменения
func poolVersion(pool []entity.Item) string {
	h := fnv.New64a()
	var latest time.Time
	for i := range pool {
		fmt.Fprintf(h, "%d:%d;", pool[i].ID, pool[i].UpdatedAt.UnixNano())
		if pool[i].UpdatedAt.After(latest) {
			latest = pool[i].UpdatedAt
		}
	}
	return fmt.Sprintf("%d/%016x/%d", len(pool), h.Sum64(), latest.UnixNano())
}

// fingerprint строит детерминированный ID экзамена по нормализованным параметрам
// и версии пула (FNV-64a)
func fingerprint(kind string, modules, categories []string, cfg examengine.Config, pool string, sections ...[]config.SimulationSection) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|m=%s|c=%s|l=%d|s=%d|ag=%t|p=%s", kind,
		strings.Join(modules, ","), strings.Join(categories, ","), cfg.Limit, cfg.Seed, cfg.AntiGuessing, pool)

	tags := make([]string, 0, len(cfg.Ratios))
	for d := range cfg.Ratios {
		tags = append(tags, string(d))
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(h, "|r.%s=%g", tag, cfg.Ratios[entity.Difficulty(tag)])
	}
	if cfg.Ratios != nil && len(cfg.Ratios) == 0 {
		h.Write([]byte("|uniform"))
	}

	for _, list := range sections {
		for _, sec := range list {
			fmt.Fprintf(h, "|sec=%s:%d:%d", sec.Module, sec.Limit, sec.SeedOffset)
		}
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// normalizeList убирает пустые значения и дубликаты и сортирует список
func normalizeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func toDifficultyRatios(ratios map[string]float64) map[entity.Difficulty]float64 {
	if ratios == nil {
		return nil
	}
	out := make(map[entity.Difficulty]float64, len(ratios))
	for tag, w := range ratios {
		out[entity.Difficulty(strings.ToLower(strings.TrimSpace(tag)))] = w
	}
	return out
}

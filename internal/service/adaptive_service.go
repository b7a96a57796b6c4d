package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/examsim-api/internal/config"
	"github.com/yourusername/examsim-api/internal/domain/entity"
	"github.com/yourusername/examsim-api/internal/domain/repository"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
	"github.com/yourusername/examsim-api/internal/service/examengine"
)

const (
	adaptiveSessionKeyPrefix = "adaptive:session:"
	adaptiveLockKeyPrefix    = "adaptive:lock:"
	adaptiveLockTTL          = 10 * time.Second
)

// StartAdaptiveRequest - параметры адаптивной сессии
type StartAdaptiveRequest struct {
	Modules    []string
	Categories []string
	// Limit: 0 = лимит по умолчанию из конфигурации
	Limit        int
	Seed         *int64
	AntiGuessing *bool
}

// AdaptiveSession хранится в Redis между ответами
type AdaptiveSession struct {
	ID           string                `json:"id"`
	Seed         int64                 `json:"seed"`
	Modules      []string              `json:"modules,omitempty"`
	Categories   []string              `json:"categories,omitempty"`
	Limit        int                   `json:"limit"`
	AntiGuessing bool                  `json:"anti_guessing"`
	State        examengine.QueueState `json:"state"`
	Current      *entity.Item          `json:"current,omitempty"` // выданный вопрос с итоговым порядком вариантов
	CreatedAt    time.Time             `json:"created_at"`
}

// AdaptiveStep - результат шага адаптивной сессии
type AdaptiveStep struct {
	SessionID string       `json:"session_id"`
	Item      *entity.Item `json:"item,omitempty"`
	Number    int          `json:"number"` // порядковый номер выданного вопроса, с 1
	Level     string       `json:"level"`

	// Разбор предыдущего ответа
	LastCorrect     *bool    `json:"last_correct,omitempty"`
	LastAnswerIndex *int     `json:"last_answer_index,omitempty"`
	LastExplanation string   `json:"last_explanation,omitempty"`
	LastRationales  []string `json:"last_rationales,omitempty"`

	Finished bool               `json:"finished"`
	Result   *entity.ExamResult `json:"result,omitempty"`
}

// AdaptiveService ведёт адаптивные сессии: вопрос за вопросом, со сменой сложности по ответам
type AdaptiveService struct {
	itemRepo  repository.ItemRepository
	cacheRepo repository.CacheRepository
	engine    config.EngineConfig
	adaptive  config.AdaptiveConfig
	newSeed   func() int64
}

// NewAdaptiveService создает новый сервис адаптивных сессий
func NewAdaptiveService(
	itemRepo repository.ItemRepository,
	cacheRepo repository.CacheRepository,
	engine config.EngineConfig,
	adaptive config.AdaptiveConfig,
) *AdaptiveService {
	return &AdaptiveService{
		itemRepo:  itemRepo,
		cacheRepo: cacheRepo,
		engine:    engine,
		adaptive:  adaptive,
		newSeed:   randomSeed,
	}
}

func (s *AdaptiveService) policy() *examengine.DifficultyPolicy {
	return &examengine.DifficultyPolicy{
		StartLevel:       s.adaptive.StartLevel,
		StreakUp:         s.adaptive.StreakUp,
		StreakDown:       s.adaptive.StreakDown,
		FallbackToHigher: s.adaptive.FallbackToHigher,
	}
}

// Start создаёт сессию и выдаёт первый вопрос
func (s *AdaptiveService) Start(ctx context.Context, req StartAdaptiveRequest) (*AdaptiveStep, error) {
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

	session := &AdaptiveSession{
		ID:           uuid.NewString(),
		Seed:         s.newSeed(),
		Modules:      normalizeList(req.Modules),
		Categories:   normalizeList(req.Categories),
		Limit:        limit,
		AntiGuessing: s.engine.AntiGuessing,
		CreatedAt:    time.Now().UTC(),
	}
	if req.Seed != nil {
		session.Seed = *req.Seed
	}
	if req.AntiGuessing != nil {
		session.AntiGuessing = *req.AntiGuessing
	}

	queue, state, err := s.queue(ctx, session)
	if err != nil {
		return nil, err
	}

	item, next, err := queue.Next(state, false)
	if err != nil {
		// Пул не пуст (проверено при загрузке), сюда попадаем только при ошибке состояния
		return nil, err
	}
	session.State = next
	session.Current = &item

	if err := s.saveSession(session); err != nil {
		return nil, err
	}

	log.Printf("[AdaptiveService] Сессия %s начата (seed=%d, лимит=%d, модули=%v)",
		session.ID, session.Seed, limit, session.Modules)
	return s.step(session, nil), nil
}

// Answer принимает ответ на текущий вопрос и выдаёт следующий.
// selected == nil означает пропуск (засчитывается как неправильный).
// После последнего вопроса шаг содержит итог; повторные вызовы возвращают ErrExhausted и итог.
func (s *AdaptiveService) Answer(ctx context.Context, sessionID string, selected *int) (*AdaptiveStep, error) {
	lockKey := adaptiveLockKeyPrefix + sessionID
	acquired, err := s.cacheRepo.SetNX(lockKey, 1, adaptiveLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock session %s: %w", sessionID, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: session %s is busy", apperrors.ErrConflict, sessionID)
	}
	defer func() {
		if err := s.cacheRepo.Delete(lockKey); err != nil {
			log.Printf("[AdaptiveService] Не удалось снять блокировку сессии %s: %v", sessionID, err)
		}
	}()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State.Phase == examengine.PhaseExhausted || session.Current == nil {
		return s.step(session, nil), fmt.Errorf("%w: session %s is finished", apperrors.ErrExhausted, sessionID)
	}

	correct := selected != nil && session.Current.IsCorrect(*selected)
	last := &answerFeedback{
		correct:     correct,
		answerIndex: session.Current.AnswerIndex,
		explanation: session.Current.Explanation,
		rationales:  session.Current.Rationales,
	}

	queue, _, err := s.queue(ctx, session)
	if err != nil {
		return nil, err
	}

	item, next, err := queue.Next(session.State, correct)
	switch {
	case errors.Is(err, examengine.ErrQueueExhausted):
		session.State = next
		session.Current = nil
		log.Printf("[AdaptiveService] Сессия %s завершена: %d/%d", sessionID, next.Correct, next.Answered)
	case err != nil:
		return nil, err
	default:
		session.State = next
		session.Current = &item
	}

	if err := s.saveSession(session); err != nil {
		return nil, err
	}
	return s.step(session, last), nil
}

// GetSession возвращает сессию по ID
func (s *AdaptiveService) GetSession(ctx context.Context, sessionID string) (*AdaptiveSession, error) {
	var session AdaptiveSession
	if err := s.cacheRepo.GetJSON(adaptiveSessionKeyPrefix+sessionID, &session); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: adaptive session %s", apperrors.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return &session, nil
}

// queue восстанавливает очередь по параметрам сессии. Пул загружается заново и должен
// совпасть по размеру с сохранённым состоянием.
func (s *AdaptiveService) queue(ctx context.Context, session *AdaptiveSession) (*examengine.AdaptiveQueue, examengine.QueueState, error) {
	pool, err := loadPool(ctx, s.itemRepo, session.Modules, session.Categories)
	if err != nil {
		return nil, examengine.QueueState{}, err
	}
	return examengine.NewAdaptiveQueue(pool, examengine.AdaptiveConfig{
		Limit:        session.Limit,
		Seed:         session.Seed,
		AntiGuessing: session.AntiGuessing,
		Policy:       s.policy(),
	})
}

func (s *AdaptiveService) saveSession(session *AdaptiveSession) error {
	ttl := time.Duration(s.adaptive.SessionTTLMinutes) * time.Minute
	if err := s.cacheRepo.SetJSON(adaptiveSessionKeyPrefix+session.ID, session, ttl); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

type answerFeedback struct {
	correct     bool
	answerIndex int
	explanation string
	rationales  []string
}

func (s *AdaptiveService) step(session *AdaptiveSession, last *answerFeedback) *AdaptiveStep {
	st := &AdaptiveStep{
		SessionID: session.ID,
		Item:      session.Current,
		Number:    len(session.State.Served),
		Level:     string(entity.DifficultyFromLevel(session.State.Level)),
	}
	if last != nil {
		st.LastCorrect = &last.correct
		st.LastAnswerIndex = &last.answerIndex
		st.LastExplanation = last.explanation
		st.LastRationales = last.rationales
	}
	if session.State.Phase == examengine.PhaseExhausted {
		result := newExamResult(session.State.Correct, session.State.Answered)
		st.Finished = true
		st.Result = &result
	}
	return st
}

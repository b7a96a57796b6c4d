package examengine

import (
	"fmt"

	"github.com/yourusername/examsim-api/internal/domain/entity"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
)

// QueuePhase - фаза адаптивной очереди
type QueuePhase string

const (
	PhaseIdle      QueuePhase = "idle"      // ни один вопрос ещё не выдан
	PhaseActive    QueuePhase = "active"    // идёт выдача
	PhaseExhausted QueuePhase = "exhausted" // терминальное состояние
)

// AdaptiveConfig - параметры адаптивной очереди
type AdaptiveConfig struct {
	// Limit - максимум вопросов; 0 = весь пул
	Limit        int
	Seed         int64
	AntiGuessing bool
	Policy       *DifficultyPolicy
}

// QueueState - состояние адаптивной очереди между вызовами Next.
// Значение передаётся внутрь и возвращается наружу, сервис хранит его в JSON.
type QueueState struct {
	Phase    QueuePhase `json:"phase"`
	PoolSize int        `json:"pool_size"`
	Served   []int      `json:"served"` // индексы пула в порядке выдачи
	Level    int        `json:"level"`
	Streak   int        `json:"streak"`
	Answered int        `json:"answered"`
	Correct  int        `json:"correct"`
	RNG      uint32     `json:"rng"`
}

func (s QueueState) clone() QueueState {
	out := s
	out.Served = append([]int(nil), s.Served...)
	return out
}

// AdaptiveQueue выдаёт вопросы по одному, смещая сложность по ответам.
// Сам по себе неизменяем: всё изменяемое живёт в QueueState.
type AdaptiveQueue struct {
	pool         []entity.Item
	byLevel      map[int][]int // уровень (0 = без метки) → индексы пула
	limit        int
	antiGuessing bool
	policy       DifficultyPolicy
}

// NewAdaptiveQueue создаёт очередь и её начальное состояние
func NewAdaptiveQueue(pool []entity.Item, cfg AdaptiveConfig) (*AdaptiveQueue, QueueState, error) {
	if cfg.Limit < 0 {
		return nil, QueueState{}, ErrInvalidLimit
	}
	if err := ValidateSeed(cfg.Seed); err != nil {
		return nil, QueueState{}, err
	}

	limit := len(pool)
	if cfg.Limit > 0 {
		limit = min(cfg.Limit, len(pool))
	}

	q := &AdaptiveQueue{
		pool:         pool,
		byLevel:      make(map[int][]int, 4),
		limit:        limit,
		antiGuessing: cfg.AntiGuessing,
		policy:       cfg.Policy.normalized(),
	}
	for i := range pool {
		lvl := pool[i].Difficulty.Level()
		q.byLevel[lvl] = append(q.byLevel[lvl], i)
	}

	state := QueueState{
		Phase:    PhaseIdle,
		PoolSize: len(pool),
		Served:   []int{},
		Level:    q.policy.StartLevel,
		RNG:      deriveSeed(cfg.Seed, streamAdaptive),
	}
	return q, state, nil
}

// Next применяет ответ на предыдущий вопрос и выдаёт следующий.
// В фазе idle wasLastCorrect игнорируется. Когда лимит достигнут или пул исчерпан,
// очередь переходит в exhausted и возвращает ErrQueueExhausted; из exhausted переходов нет.
// Входное состояние не изменяется.
func (q *AdaptiveQueue) Next(state QueueState, wasLastCorrect bool) (entity.Item, QueueState, error) {
	if state.Phase == PhaseExhausted {
		return entity.Item{}, state, ErrQueueExhausted
	}
	if state.PoolSize != len(q.pool) {
		return entity.Item{}, state, fmt.Errorf("%w: pool size changed from %d to %d",
			apperrors.ErrConflict, state.PoolSize, len(q.pool))
	}

	st := state.clone()

	if st.Phase == PhaseActive {
		st.Answered++
		if wasLastCorrect {
			st.Correct++
		}
		st.Level, st.Streak = q.policy.ApplyFeedback(st.Level, st.Streak, wasLastCorrect)
	}

	if len(st.Served) >= q.limit {
		st.Phase = PhaseExhausted
		return entity.Item{}, st, ErrQueueExhausted
	}

	served := make(map[int]struct{}, len(st.Served))
	for _, idx := range st.Served {
		served[idx] = struct{}{}
	}

	g := RestoreGenerator(st.RNG)
	picked := -1
	for _, lvl := range q.policy.SearchOrder(st.Level) {
		remaining := make([]int, 0, len(q.byLevel[lvl]))
		for _, idx := range q.byLevel[lvl] {
			if _, ok := served[idx]; !ok {
				remaining = append(remaining, idx)
			}
		}
		if len(remaining) > 0 {
			picked = remaining[g.Intn(len(remaining))]
			break
		}
	}

	if picked < 0 {
		st.Phase = PhaseExhausted
		return entity.Item{}, st, ErrQueueExhausted
	}

	item := q.pool[picked].Clone()
	if q.antiGuessing {
		permuteOptions(&item, g)
	}

	st.Served = append(st.Served, picked)
	st.RNG = g.State()
	st.Phase = PhaseActive
	return item, st, nil
}

// BuildAdaptiveQueue прогоняет очередь целиком по заранее известной последовательности ответов.
// feedback[i] - правильность ответа на i-й выданный вопрос. Выдаётся не больше
// len(feedback)+1 вопросов: для каждого следующего вопроса нужен ответ на предыдущий.
func BuildAdaptiveQueue(pool []entity.Item, cfg AdaptiveConfig, feedback []bool) ([]entity.Item, error) {
	q, state, err := NewAdaptiveQueue(pool, cfg)
	if err != nil {
		return []entity.Item{}, err
	}

	out := make([]entity.Item, 0, min(q.limit, len(feedback)+1))
	for i := 0; i <= len(feedback); i++ {
		last := i > 0 && feedback[i-1]
		item, next, err := q.Next(state, last)
		if err != nil {
			break // очередь исчерпана
		}
		state = next
		out = append(out, item)
	}
	return out, nil
}

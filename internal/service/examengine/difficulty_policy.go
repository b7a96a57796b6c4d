package examengine

import "github.com/yourusername/examsim-api/internal/domain/entity"

// DifficultyPolicy содержит настройки адаптивной смены сложности
type DifficultyPolicy struct {
	// StartLevel - уровень первого вопроса (1=easy, 2=medium, 3=hard)
	StartLevel int

	// StreakUp - сколько правильных ответов подряд поднимают уровень на 1
	StreakUp int

	// StreakDown - сколько неправильных ответов подряд опускают уровень на 1
	StreakDown int

	// FallbackToHigher - при отсутствии вопросов нужного уровня искать сначала более сложные (true)
	// или более лёгкие (false). Вопросы без метки сложности всегда проверяются последними.
	FallbackToHigher bool
}

// DefaultDifficultyPolicy возвращает настройки по умолчанию
func DefaultDifficultyPolicy() *DifficultyPolicy {
	return &DifficultyPolicy{
		StartLevel:       entity.DifficultyMedium.Level(),
		StreakUp:         2,
		StreakDown:       2,
		FallbackToHigher: true,
	}
}

// normalized подставляет значения по умолчанию вместо нулевых/некорректных
func (p *DifficultyPolicy) normalized() DifficultyPolicy {
	def := DefaultDifficultyPolicy()
	if p == nil {
		return *def
	}
	out := *p
	if out.StartLevel < entity.MinDifficultyLevel || out.StartLevel > entity.MaxDifficultyLevel {
		out.StartLevel = def.StartLevel
	}
	if out.StreakUp <= 0 {
		out.StreakUp = def.StreakUp
	}
	if out.StreakDown <= 0 {
		out.StreakDown = def.StreakDown
	}
	return out
}

// ApplyFeedback обновляет серию и уровень после ответа.
// streak > 0 - число правильных ответов подряд, streak < 0 - неправильных.
// После смены уровня серия обнуляется.
func (p *DifficultyPolicy) ApplyFeedback(level, streak int, correct bool) (int, int) {
	if correct {
		if streak < 0 {
			streak = 0
		}
		streak++
		if streak >= p.StreakUp {
			return min(entity.MaxDifficultyLevel, level+1), 0
		}
		return level, streak
	}

	if streak > 0 {
		streak = 0
	}
	streak--
	if -streak >= p.StreakDown {
		return max(entity.MinDifficultyLevel, level-1), 0
	}
	return level, streak
}

// SearchOrder возвращает порядок перебора уровней для целевого уровня.
// Уровень 0 (вопросы без метки) всегда последний.
func (p *DifficultyPolicy) SearchOrder(target int) []int {
	var order []int

	if p.FallbackToHigher {
		// Сначала вверх (сложнее), потом вниз (легче)
		for lvl := target; lvl <= entity.MaxDifficultyLevel; lvl++ {
			order = append(order, lvl)
		}
		for lvl := target - 1; lvl >= entity.MinDifficultyLevel; lvl-- {
			order = append(order, lvl)
		}
	} else {
		// Сначала вниз (легче), потом вверх (сложнее)
		for lvl := target; lvl >= entity.MinDifficultyLevel; lvl-- {
			order = append(order, lvl)
		}
		for lvl := target + 1; lvl <= entity.MaxDifficultyLevel; lvl++ {
			order = append(order, lvl)
		}
	}

	return append(order, 0)
}

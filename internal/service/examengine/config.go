package examengine

import (
	"fmt"
	"math"

	"github.com/yourusername/examsim-api/internal/domain/entity"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
)

// Ошибки движка. Обе оборачивают apperrors.ErrValidation.
var (
	ErrInvalidLimit   = fmt.Errorf("%w: exam limit must be positive", apperrors.ErrValidation)
	ErrInvalidSeed    = fmt.Errorf("%w: invalid seed", apperrors.ErrValidation)
	ErrQueueExhausted = fmt.Errorf("%w: adaptive queue exhausted", apperrors.ErrExhausted)
)

// Config - параметры сборки экзамена
type Config struct {
	// Limit - максимальное число вопросов в результате
	Limit int
	// Ratios - желаемые доли по сложности. Пустая карта = без ограничений (равномерная выборка)
	Ratios map[entity.Difficulty]float64
	// Seed - одинаковый seed на одном пуле даёт одинаковый результат
	Seed int64
	// AntiGuessing - перераспределять позицию правильного ответа
	AntiGuessing bool
}

// DefaultRatios возвращает стандартное распределение 30/50/20
func DefaultRatios() map[entity.Difficulty]float64 {
	return map[entity.Difficulty]float64{
		entity.DifficultyEasy:   0.3,
		entity.DifficultyMedium: 0.5,
		entity.DifficultyHard:   0.2,
	}
}

// tagOrder - фиксированный порядок сложностей при разрешении ничьих в целевых количествах
var tagOrder = []entity.Difficulty{entity.DifficultyMedium, entity.DifficultyEasy, entity.DifficultyHard}

// normalizeRatios отбрасывает неизвестные метки и некорректные веса и нормирует сумму к 1.
// Возвращает nil, если ограничений нет.
func normalizeRatios(ratios map[entity.Difficulty]float64) map[entity.Difficulty]float64 {
	if len(ratios) == 0 {
		return nil
	}

	var sum float64
	clean := make(map[entity.Difficulty]float64, 3)
	for _, tag := range tagOrder {
		w, ok := ratios[tag]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			continue
		}
		clean[tag] = w
		sum += w
	}
	if sum <= 0 {
		return nil
	}

	for tag, w := range clean {
		clean[tag] = w / sum
	}
	return clean
}

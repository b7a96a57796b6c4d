// Package examengine собирает воспроизводимые экзамены и адаптивные очереди из пула вопросов.
//
// Движок не выполняет ввод-вывод и не хранит состояние между вызовами: каждый вызов
// создаёт собственные генераторы из seed, поэтому один пул можно безопасно
// использовать параллельно с разными seed.
package examengine

import (
	"github.com/yourusername/examsim-api/internal/domain/entity"
)

// BuildExam собирает экзамен из пула.
//
// Длина результата = min(cfg.Limit, len(pool)). Один и тот же (pool, cfg) всегда даёт
// одинаковую последовательность, включая порядок вариантов при AntiGuessing.
// Возвращаются копии вопросов, пул не изменяется.
//
// Ошибки: ErrInvalidLimit при Limit <= 0, ErrInvalidSeed при seed вне 32-битного диапазона.
// В обоих случаях возвращается пустой срез.
func BuildExam(pool []entity.Item, cfg Config) ([]entity.Item, error) {
	if cfg.Limit <= 0 {
		return []entity.Item{}, ErrInvalidLimit
	}
	if err := ValidateSeed(cfg.Seed); err != nil {
		return []entity.Item{}, err
	}
	if len(pool) == 0 {
		return []entity.Item{}, nil
	}

	n := min(cfg.Limit, len(pool))

	var picked []int
	if ratios := normalizeRatios(cfg.Ratios); ratios == nil {
		// Без долей - равномерная выборка по всему пулу
		picked = Shuffle(poolIndices(len(pool)), newStream(cfg.Seed, streamUniform))[:n]
	} else {
		picked = sampleByRatios(pool, n, ratios, cfg.Seed)
		// Итоговое перемешивание, чтобы вопросы не шли группами по сложности
		picked = Shuffle(picked, newStream(cfg.Seed, streamFinal))
	}

	exam := make([]entity.Item, n)
	for i, idx := range picked {
		exam[i] = pool[idx].Clone()
	}

	if cfg.AntiGuessing {
		applyAntiGuessing(exam, newStream(cfg.Seed, streamAntiGuessing))
	}

	return exam, nil
}

func poolIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

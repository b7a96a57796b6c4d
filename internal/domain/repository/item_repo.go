package repository

import (
	"context"

	"github.com/yourusername/examsim-api/internal/domain/entity"
)

// ItemFilter задаёт выборку вопросов из банка. Пустые поля не ограничивают выборку.
// Категории фильтруются в сервисе: если ни у одного вопроса модуля нет категории,
// фильтр по категориям не применяется.
type ItemFilter struct {
	Modules []string
	Bank    string
}

// ItemRepository определяет методы для работы с банком вопросов
type ItemRepository interface {
	// CreateBatch сохраняет пакет вопросов в одной транзакции
	CreateBatch(ctx context.Context, items []entity.Item) error

	// GetByID возвращает вопрос по ID
	GetByID(ctx context.Context, id uint) (*entity.Item, error)

	// List возвращает вопросы по фильтру, упорядоченные по id.
	// Стабильный порядок пула обязателен: от него зависит результат сборки по seed.
	List(ctx context.Context, filter ItemFilter) ([]entity.Item, error)

	// CountByDifficulty возвращает количество вопросов каждой сложности по фильтру
	CountByDifficulty(ctx context.Context, filter ItemFilter) (map[entity.Difficulty]int64, error)

	// DeleteByBank удаляет все вопросы банка и возвращает число удалённых
	DeleteByBank(ctx context.Context, bank string) (int64, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/examsim-api/internal/domain/entity"
	"github.com/yourusername/examsim-api/internal/domain/repository"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
)

// batchSize - размер пакета при вставке банка вопросов
const batchSize = 200

// ItemRepo реализует repository.ItemRepository
type ItemRepo struct {
	db *gorm.DB
}

var _ repository.ItemRepository = (*ItemRepo)(nil)

// NewItemRepo создает новый репозиторий вопросов
func NewItemRepo(db *gorm.DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// CreateBatch создает пакет вопросов
func (r *ItemRepo) CreateBatch(ctx context.Context, items []entity.Item) error {
	if len(items) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Банки содержат диакритику (ă, î, ș, ț), кодировка задаётся явно
		if err := tx.Exec("SET CLIENT_ENCODING TO 'UTF8'").Error; err != nil {
			return err
		}
		return tx.CreateInBatches(&items, batchSize).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: item already exists", apperrors.ErrConflict)
		}
		return fmt.Errorf("create items batch failed: %w", err)
	}
	return nil
}

// GetByID возвращает вопрос по ID
func (r *ItemRepo) GetByID(ctx context.Context, id uint) (*entity.Item, error) {
	var item entity.Item
	err := r.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// List возвращает вопросы по фильтру в порядке id
func (r *ItemRepo) List(ctx context.Context, filter repository.ItemFilter) ([]entity.Item, error) {
	var items []entity.Item
	err := applyItemFilter(r.db.WithContext(ctx), filter).Order("id").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CountByDifficulty возвращает количество вопросов по сложностям
func (r *ItemRepo) CountByDifficulty(ctx context.Context, filter repository.ItemFilter) (map[entity.Difficulty]int64, error) {
	var rows []struct {
		Difficulty entity.Difficulty
		Count      int64
	}

	err := applyItemFilter(r.db.WithContext(ctx).Model(&entity.Item{}), filter).
		Select("difficulty, COUNT(*) as count").
		Group("difficulty").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.Difficulty]int64, len(rows))
	for _, row := range rows {
		counts[row.Difficulty] += row.Count
	}
	return counts, nil
}

// DeleteByBank удаляет все вопросы банка
func (r *ItemRepo) DeleteByBank(ctx context.Context, bank string) (int64, error) {
	result := r.db.WithContext(ctx).Where("bank = ?", bank).Delete(&entity.Item{})
	return result.RowsAffected, result.Error
}

func applyItemFilter(query *gorm.DB, filter repository.ItemFilter) *gorm.DB {
	if len(filter.Modules) > 0 {
		query = query.Where("module IN ?", filter.Modules)
	}
	if filter.Bank != "" {
		query = query.Where("bank = ?", filter.Bank)
	}
	return query
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

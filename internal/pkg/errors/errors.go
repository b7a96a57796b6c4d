package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных
	// (например, лимит экзамена <= 0 или seed вне 32-битного диапазона).
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния: дубликат при импорте,
	// параллельный ответ в одной адаптивной сессии.
	ErrConflict = errors.New("resource state conflict")

	// ErrExhausted используется, когда адаптивная очередь исчерпана
	// (закончился пул или достигнут лимит вопросов).
	ErrExhausted = errors.New("resource exhausted")
)

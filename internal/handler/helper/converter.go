package helper

import (
	"github.com/yourusername/examsim-api/internal/domain/entity"
)

// ItemOption представляет вариант ответа для фронтенда
type ItemOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ConvertOptionsToObjects преобразует массив строк в массив объектов с id и text.
// ID - 0-based индекс, именно его клиент присылает в ответах.
func ConvertOptionsToObjects(options entity.StringArray) []ItemOption {
	converted := make([]ItemOption, len(options))
	for i, opt := range options {
		if opt == "" {
			opt = "(пустой вариант)"
		}
		converted[i] = ItemOption{ID: i, Text: opt}
	}
	return converted
}

package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray - пользовательский тип для хранения списков строк в JSONB
// (варианты ответа, пояснения к вариантам)
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	// NULL из базы превращаем в пустой список
	if value == nil {
		*o = StringArray{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		// pgx может вернуть jsonb как строку
		raw = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(raw) == 0 {
		*o = StringArray{}
		return nil
	}

	return json.Unmarshal(raw, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Difficulty - метка сложности вопроса
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Уровни сложности для адаптивной очереди: 1=easy, 2=medium, 3=hard
const (
	MinDifficultyLevel = 1
	MaxDifficultyLevel = 3
)

// Valid сообщает, является ли метка одной из известных сложностей
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Level возвращает числовой уровень сложности (0 для неизвестной/пустой метки)
func (d Difficulty) Level() int {
	switch d {
	case DifficultyEasy:
		return 1
	case DifficultyMedium:
		return 2
	case DifficultyHard:
		return 3
	}
	return 0
}

// DifficultyFromLevel обратное преобразование к Level.
// Уровни вне диапазона прижимаются к границам.
func DifficultyFromLevel(level int) Difficulty {
	switch {
	case level <= MinDifficultyLevel:
		return DifficultyEasy
	case level >= MaxDifficultyLevel:
		return DifficultyHard
	}
	return DifficultyMedium
}

// Item представляет вопрос из банка (законодательство, специальность, психология и т.д.)
type Item struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Bank        string      `gorm:"size:64;not null;index" json:"bank"`
	Prompt      string      `gorm:"type:text;not null" json:"prompt"`
	Options     StringArray `gorm:"type:jsonb;not null" json:"options"`
	AnswerIndex int         `gorm:"not null" json:"answer_index"`
	Explanation string      `gorm:"type:text" json:"explanation,omitempty"`
	Rationales  StringArray `gorm:"type:jsonb" json:"rationales,omitempty"`
	Difficulty  Difficulty  `gorm:"size:16;index" json:"difficulty,omitempty"`
	Module      string      `gorm:"size:64;index" json:"module,omitempty"`
	Category    string      `gorm:"size:64" json:"category,omitempty"`
	Passage     string      `gorm:"type:text" json:"passage,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Item) TableName() string {
	return "items"
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (i *Item) IsCorrect(selectedOption int) bool {
	return i.HasValidAnswer() && selectedOption == i.AnswerIndex
}

// OptionsCount возвращает количество вариантов ответа
func (i *Item) OptionsCount() int {
	return len(i.Options)
}

// IsValidOption проверяет, является ли индекс допустимым вариантом
func (i *Item) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(i.Options)
}

// HasValidAnswer сообщает, указывает ли AnswerIndex на существующий вариант
func (i *Item) HasValidAnswer() bool {
	return i.IsValidOption(i.AnswerIndex)
}

// Clone возвращает копию вопроса с собственными срезами Options и Rationales.
// Исходный вопрос из пула никогда не изменяется.
func (i Item) Clone() Item {
	out := i
	if i.Options != nil {
		out.Options = append(StringArray(nil), i.Options...)
	}
	if i.Rationales != nil {
		out.Rationales = append(StringArray(nil), i.Rationales...)
	}
	return out
}

// ExamResult - итог проверки ответов по экзамену
type ExamResult struct {
	Correct int     `json:"correct"`
	Total   int     `json:"total"`
	Mark    float64 `json:"mark"`   // Оценка по шкале 0..10
	Passed  bool    `json:"passed"` // Оценка >= PassMark
}

// PassMark - проходная оценка по шкале 0..10
const PassMark = 6.0

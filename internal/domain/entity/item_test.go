package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_IsCorrect(t *testing.T) {
	// Arrange
	item := &Item{
		ID:          1,
		Bank:        "legislation",
		Prompt:      "Care este termenul de prescripție?",
		Options:     StringArray{"1 an", "3 ani", "5 ani", "10 ani"},
		AnswerIndex: 1,
	}

	// Act & Assert
	assert.True(t, item.IsCorrect(1), "IsCorrect должен вернуть true для правильного ответа")
	assert.False(t, item.IsCorrect(0), "IsCorrect должен вернуть false для неправильного ответа")
	assert.False(t, item.IsCorrect(-1), "Отрицательный индекс не может быть правильным")
}

func TestItem_IsCorrect_InvalidAnswerIndex(t *testing.T) {
	// Arrange: AnswerIndex указывает за пределы вариантов
	item := &Item{Options: StringArray{"A", "B"}, AnswerIndex: 5}

	// Act & Assert
	assert.False(t, item.HasValidAnswer())
	assert.False(t, item.IsCorrect(5), "Вопрос с некорректным ключом не засчитывает ни один ответ")
}

func TestItem_IsValidOption(t *testing.T) {
	item := &Item{Options: StringArray{"A", "B", "C", "D"}}

	assert.True(t, item.IsValidOption(0), "Индекс 0 должен быть валидным")
	assert.True(t, item.IsValidOption(3), "Индекс 3 должен быть валидным")
	assert.False(t, item.IsValidOption(-1), "Отрицательный индекс должен быть невалидным")
	assert.False(t, item.IsValidOption(4), "Индекс вне диапазона должен быть невалидным")
	assert.Equal(t, 4, item.OptionsCount())
}

func TestItem_OptionsCount_Empty(t *testing.T) {
	item := &Item{}

	assert.Equal(t, 0, item.OptionsCount())
	assert.False(t, item.HasValidAnswer())
}

func TestItem_Clone(t *testing.T) {
	// Arrange
	orig := Item{
		ID:          7,
		Options:     StringArray{"A", "B", "C"},
		Rationales:  StringArray{"ra", "rb", "rc"},
		AnswerIndex: 2,
	}

	// Act
	cp := orig.Clone()
	cp.Options[0] = "X"
	cp.Rationales[0] = "rx"
	cp.AnswerIndex = 0

	// Assert
	assert.Equal(t, "A", orig.Options[0], "Изменение копии не должно затрагивать оригинал")
	assert.Equal(t, "ra", orig.Rationales[0])
	assert.Equal(t, 2, orig.AnswerIndex)
	assert.Nil(t, Item{}.Clone().Options, "nil-срезы остаются nil")
}

func TestItem_TableName(t *testing.T) {
	assert.Equal(t, "items", Item{}.TableName())
}

func TestStringArray_Scan(t *testing.T) {
	testCases := []struct {
		name     string
		input    interface{}
		expected StringArray
	}{
		{"байты", []byte(`["A","B"]`), StringArray{"A", "B"}},
		{"строка", `["Da","Nu"]`, StringArray{"Da", "Nu"}},
		{"NULL", nil, StringArray{}},
		{"пустые байты", []byte{}, StringArray{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var arr StringArray
			require.NoError(t, arr.Scan(tc.input))
			assert.Equal(t, tc.expected, arr)
		})
	}
}

func TestStringArray_Scan_UnsupportedType(t *testing.T) {
	var arr StringArray
	assert.Error(t, arr.Scan(42), "Неподдерживаемый тип должен вернуть ошибку")
}

func TestStringArray_Value(t *testing.T) {
	v, err := StringArray{"A", "B"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["A","B"]`, string(v.([]byte)))

	v, err = StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(v.([]byte)), "Пустой список сохраняется как [] а не null")
}

func TestDifficulty_Level(t *testing.T) {
	testCases := []struct {
		difficulty Difficulty
		level      int
		valid      bool
	}{
		{DifficultyEasy, 1, true},
		{DifficultyMedium, 2, true},
		{DifficultyHard, 3, true},
		{"", 0, false},
		{"extreme", 0, false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.level, tc.difficulty.Level(), "Level(%q)", tc.difficulty)
		assert.Equal(t, tc.valid, tc.difficulty.Valid(), "Valid(%q)", tc.difficulty)
	}
}

func TestDifficultyFromLevel(t *testing.T) {
	assert.Equal(t, DifficultyEasy, DifficultyFromLevel(1))
	assert.Equal(t, DifficultyMedium, DifficultyFromLevel(2))
	assert.Equal(t, DifficultyHard, DifficultyFromLevel(3))
	assert.Equal(t, DifficultyEasy, DifficultyFromLevel(-5), "Уровень ниже диапазона прижимается к easy")
	assert.Equal(t, DifficultyHard, DifficultyFromLevel(10), "Уровень выше диапазона прижимается к hard")
}

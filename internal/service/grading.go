package service

import (
	"math"

	"github.com/yourusername/examsim-api/internal/domain/entity"
)

// Grade считает оценку по шкале 0..10: правильные / всего × 10, округление до сотых.
// answers[i] относится к items[i]; недостающие ответы считаются неправильными.
func Grade(items []entity.Item, answers []int) entity.ExamResult {
	correct := 0
	for i := range items {
		if i < len(answers) && items[i].IsCorrect(answers[i]) {
			correct++
		}
	}
	return newExamResult(correct, len(items))
}

func newExamResult(correct, total int) entity.ExamResult {
	result := entity.ExamResult{Correct: correct, Total: total}
	if total == 0 {
		return result
	}
	mark := float64(correct) / float64(total) * 10
	result.Mark = math.Round(mark*100) / 100
	result.Passed = result.Mark >= entity.PassMark
	return result
}

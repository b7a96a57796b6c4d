package examengine

import (
	"github.com/yourusername/examsim-api/internal/domain/entity"
)

// applyAntiGuessing переставляет варианты каждого вопроса последовательности
func applyAntiGuessing(items []entity.Item, g *Generator) {
	for i := range items {
		permuteOptions(&items[i], g)
	}
}

// permuteOptions ставит правильный вариант в равновероятную позицию, остальные перемешивает.
// Позиция не зависит от предыдущих вопросов: ни повтор, ни смена позиции не подсказывают ответ.
// Текст варианта всегда остаётся связан со своей правильностью и своим пояснением.
// Вопросы с менее чем двумя вариантами или некорректным AnswerIndex не трогаются.
func permuteOptions(item *entity.Item, g *Generator) {
	k := len(item.Options)
	if k < 2 || !item.HasValidAnswer() {
		return
	}

	target := g.Intn(k)

	others := make([]int, 0, k-1)
	for i := 0; i < k; i++ {
		if i != item.AnswerIndex {
			others = append(others, i)
		}
	}
	others = Shuffle(others, g)

	// order[новая позиция] = старая позиция
	order := make([]int, k)
	next := 0
	for slot := 0; slot < k; slot++ {
		if slot == target {
			order[slot] = item.AnswerIndex
			continue
		}
		order[slot] = others[next]
		next++
	}

	item.Options = reorder(item.Options, order)
	if len(item.Rationales) == k {
		item.Rationales = reorder(item.Rationales, order)
	}
	item.AnswerIndex = target
}

func reorder(values entity.StringArray, order []int) entity.StringArray {
	out := make(entity.StringArray, len(order))
	for slot, old := range order {
		out[slot] = values[old]
	}
	return out
}

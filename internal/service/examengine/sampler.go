package examengine

import (
	"math"

	"github.com/yourusername/examsim-api/internal/domain/entity"
)

type bucketKey int

const (
	bucketEasy bucketKey = iota
	bucketMedium
	bucketHard
	bucketUntagged
	bucketCount
)

// Поток генератора для каждой корзины
var bucketStreams = [bucketCount]uint32{streamEasy, streamMedium, streamHard, streamUntagged}

// shortfallOrder - порядок, в котором корзины добирают недостающие места,
// если в целевой корзине не хватило вопросов
var shortfallOrder = []bucketKey{bucketHard, bucketMedium, bucketEasy, bucketUntagged}

func bucketOf(d entity.Difficulty) bucketKey {
	switch d {
	case entity.DifficultyEasy:
		return bucketEasy
	case entity.DifficultyMedium:
		return bucketMedium
	case entity.DifficultyHard:
		return bucketHard
	}
	return bucketUntagged
}

// partition раскладывает индексы пула по корзинам сложности, сохраняя порядок пула
func partition(pool []entity.Item) [bucketCount][]int {
	var buckets [bucketCount][]int
	for i := range pool {
		b := bucketOf(pool[i].Difficulty)
		buckets[b] = append(buckets[b], i)
	}
	return buckets
}

// computeTargets считает целевые количества round(n*ratio) и сводит их сумму ровно к n.
// Избыток снимается с самой большой цели, недостаток добавляется к метке с наибольшей долей.
// Ничьи разрешаются порядком medium → easy → hard.
func computeTargets(n int, ratios map[entity.Difficulty]float64) [bucketCount]int {
	var targets [bucketCount]int
	sum := 0
	for _, tag := range tagOrder {
		t := int(math.Round(float64(n) * ratios[tag]))
		targets[bucketOf(tag)] = t
		sum += t
	}

	for sum > n {
		largest := tagOrder[0]
		for _, tag := range tagOrder[1:] {
			if targets[bucketOf(tag)] > targets[bucketOf(largest)] {
				largest = tag
			}
		}
		targets[bucketOf(largest)]--
		sum--
	}

	for sum < n {
		heaviest := tagOrder[0]
		for _, tag := range tagOrder[1:] {
			if ratios[tag] > ratios[heaviest] {
				heaviest = tag
			}
		}
		targets[bucketOf(heaviest)]++
		sum++
	}

	return targets
}

// sampleByRatios выбирает n индексов пула с учётом долей сложности.
// n не превышает размер пула, поэтому добор по shortfallOrder всегда завершается.
func sampleByRatios(pool []entity.Item, n int, ratios map[entity.Difficulty]float64, seed int64) []int {
	buckets := partition(pool)
	targets := computeTargets(n, ratios)

	var shuffled [bucketCount][]int
	var taken [bucketCount]int
	missing := n
	for b := bucketKey(0); b < bucketCount; b++ {
		shuffled[b] = Shuffle(buckets[b], newStream(seed, bucketStreams[b]))
		taken[b] = min(targets[b], len(shuffled[b]))
		missing -= taken[b]
	}

	// Нехватка в корзине не ошибка: добираем из остатков других корзин
	for _, b := range shortfallOrder {
		if missing == 0 {
			break
		}
		take := min(len(shuffled[b])-taken[b], missing)
		taken[b] += take
		missing -= take
	}

	picked := make([]int, 0, n)
	for b := bucketKey(0); b < bucketCount; b++ {
		picked = append(picked, shuffled[b][:taken[b]]...)
	}
	return picked
}

package examengine

// Shuffle возвращает перестановку seq, полученную алгоритмом Фишера-Йейтса.
// Исходный срез не изменяется; источник случайности - только g.
func Shuffle[T any](seq []T, g *Generator) []T {
	shuffled := make([]T, len(seq))
	copy(shuffled, seq)

	for i := len(shuffled) - 1; i > 0; i-- {
		j := g.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

package examengine

import (
	"fmt"
	"math"
)

// Порождающие константы генератора mulberry32.
// Смена рекуррентной формулы меняет выход для любого seed - это часть контракта.
const (
	mulberryIncrement = 0x6D2B79F5
	streamStride      = 0x9E3779B9 // золотое сечение, разводит потоки друг от друга
	twoPow32          = 4294967296.0
)

// Номера независимых потоков, выводимых из одного seed
const (
	streamEasy uint32 = iota + 1
	streamMedium
	streamHard
	streamUntagged
	streamUniform
	streamFinal
	streamAntiGuessing
	streamAdaptive
)

// Generator - детерминированный генератор псевдослучайных чисел (mulberry32).
// Каждый вызов BuildExam создаёт собственные генераторы, глобального состояния нет,
// поэтому параллельные сборки с разными seed не влияют друг на друга.
type Generator struct {
	state uint32
}

// ValidateSeed проверяет, что seed представим как 32-битное целое.
// Отрицательные значения допустимы и переводятся в uint32 дополнительным кодом.
func ValidateSeed(seed int64) error {
	if seed < math.MinInt32 || seed > math.MaxUint32 {
		return fmt.Errorf("%w: seed %d is outside the 32-bit range", ErrInvalidSeed, seed)
	}
	return nil
}

// NewGenerator создаёт генератор для заданного seed
func NewGenerator(seed int64) (*Generator, error) {
	if err := ValidateSeed(seed); err != nil {
		return nil, err
	}
	return &Generator{state: uint32(seed)}, nil
}

// RestoreGenerator восстанавливает генератор из сохранённого состояния (см. State)
func RestoreGenerator(state uint32) *Generator {
	return &Generator{state: state}
}

// newStream создаёт генератор отдельного потока для уже проверенного seed
func newStream(seed int64, stream uint32) *Generator {
	return &Generator{state: deriveSeed(seed, stream)}
}

// deriveSeed смешивает seed с номером потока (арифметика по модулю 2^32)
func deriveSeed(seed int64, stream uint32) uint32 {
	return uint32(seed) + stream*streamStride
}

// State возвращает внутреннее состояние генератора для сериализации
func (g *Generator) State() uint32 {
	return g.state
}

// Uint32 возвращает следующее 32-битное значение потока
func (g *Generator) Uint32() uint32 {
	g.state += mulberryIncrement
	t := g.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 возвращает значение в [0,1)
func (g *Generator) Float64() float64 {
	return float64(g.Uint32()) / twoPow32
}

// Intn возвращает значение в [0,n). Для n <= 0 возвращает 0 и не тратит значение потока.
func (g *Generator) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(g.Float64() * float64(n))
}

// Package roulette — resolver.go реализует взвешенный розыгрыш приза.
//
// Шансы в каталоге заданы в процентах от 100, а не доли. Если их сумма меньше 100,
// остаток — это вероятность промаха, и перенормировать таблицу нельзя:
// промах исчезнет. Поэтому режим таблицы задаётся явно.
package roulette

import (
	"math/rand/v2"

	"serotonyl.ru/labubu-roulette/internal/features/prizes"
)

// WeightMode — как интерпретировать веса таблицы.
type WeightMode int

const (
	// Absolute — веса в процентах, r берётся из [0, 100),
	// всё, что выше суммы весов, считается промахом.
	Absolute WeightMode = iota
	// Relative — веса относительные, r берётся из [0, сумма),
	// промаха не бывает.
	Relative
)

// Weighted — приз и его эффективный вес в конкретном розыгрыше.
type Weighted struct {
	Prize  prizes.Prize
	Weight float64
}

// WeightTable — упорядоченная таблица розыгрыша.
type WeightTable struct {
	Mode    WeightMode
	Entries []Weighted
}

// Total — сумма положительных весов.
func (t WeightTable) Total() float64 {
	var total float64
	for _, e := range t.Entries {
		if e.Weight > 0 {
			total += e.Weight
		}
	}
	return total
}

// MissChance — вероятность промаха в процентах: max(0, 100 - сумма).
// Для Relative всегда 0.
func (t WeightTable) MissChance() float64 {
	if t.Mode == Relative {
		return 0
	}
	miss := 100 - t.Total()
	if miss < 0 {
		return 0
	}
	return miss
}

// BuildTable строит таблицу в процентах из активного каталога,
// применяя модификатор варианта спина.
func BuildTable(catalog []prizes.Prize, variant Variant) WeightTable {
	entries := make([]Weighted, 0, len(catalog))
	for _, p := range catalog {
		entries = append(entries, Weighted{Prize: p, Weight: p.Chance})
	}
	return ApplyVariant(WeightTable{Mode: Absolute, Entries: entries}, variant)
}

// ApplyVariant возвращает новую таблицу: для премиум спина вес каждой
// части удваивается, призы ЛАБУ не меняются. Исходная таблица не трогается.
func ApplyVariant(t WeightTable, variant Variant) WeightTable {
	out := WeightTable{Mode: t.Mode, Entries: make([]Weighted, len(t.Entries))}
	copy(out.Entries, t.Entries)
	if !variant.Premium() {
		return out
	}
	for i := range out.Entries {
		if out.Entries[i].Prize.Type == prizes.TypePart {
			out.Entries[i].Weight *= 2
		}
	}
	return out
}

// RandomSource выдаёт равномерное число из [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Resolver разыгрывает приз по таблице.
type Resolver struct {
	rnd RandomSource
}

// NewResolver создаёт резолвер. При nil берётся глобальный генератор math/rand/v2.
func NewResolver(rnd RandomSource) *Resolver {
	if rnd == nil {
		rnd = globalSource{}
	}
	return &Resolver{rnd: rnd}
}

// Draw выбирает приз. Идём по таблице, накапливая веса; побеждает первый
// приз, чей накопленный вес >= r (на границе выигрывает более ранний).
// Если r выше суммы всех весов, возвращается miss и missed=true.
func (r *Resolver) Draw(t WeightTable, miss prizes.Prize) (prizes.Prize, bool) {
	total := t.Total()
	if total <= 0 {
		return miss, true
	}

	var roll float64
	switch t.Mode {
	case Relative:
		roll = r.rnd.Float64() * total
	default:
		roll = r.rnd.Float64() * 100
	}

	var cumulative float64
	var last *prizes.Prize
	for i := range t.Entries {
		e := &t.Entries[i]
		if e.Weight <= 0 {
			continue
		}
		cumulative += e.Weight
		last = &e.Prize
		if roll <= cumulative {
			return e.Prize, false
		}
	}

	// Relative не промахивается: хвост от погрешности float достаётся последнему
	if t.Mode == Relative && last != nil {
		return *last, false
	}
	return miss, true
}

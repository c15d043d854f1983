// Package prizes — каталог призов рулетки.
// models.go описывает приз и стартовый набор из 12 секторов.
package prizes

import (
	"time"

	"serotonyl.ru/labubu-roulette/internal/features/collection"
)

// Type — вид приза.
type Type string

const (
	TypePart  Type = "part"  // часть коллекции
	TypeLabu  Type = "labu"  // фиксированная сумма ЛАБУ
	TypeEmpty Type = "empty" // промах, игрокам не показывается
)

// Prize — запись каталога.
// Chance — процент, а не доля: сумма шансов активных призов не обязана
// равняться 100, остаток до 100 и есть вероятность промаха.
type Prize struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	Value      int64                `json:"value"`
	Chance     float64              `json:"chance"`
	Rarity     string               `json:"rarity"`
	Color      string               `json:"color"`
	Icon       string               `json:"icon"`
	IsActive   bool                 `json:"isActive"`
	Type       Type                 `json:"prizeType"`
	PartType   *collection.PartType `json:"partType"`
	PartRarity *collection.Rarity   `json:"partRarity"`
	LabuAmount *int64               `json:"labuAmount"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// RawValue — сумма ЛАБУ приза или 0, поле для клиента.
func (p *Prize) RawValue() int64 {
	if p.LabuAmount == nil {
		return 0
	}
	return *p.LabuAmount
}

// IsPart — приз является частью с заполненными слотом и редкостью.
func (p *Prize) IsPart() bool {
	return p.Type == TypePart && p.PartType != nil && p.PartRarity != nil
}

// missPrize — единственная запись типа empty, на неё ссылаются выигрыши-промахи.
var missPrize = Prize{
	Name:     "Попробуй еще!",
	Value:    0,
	Chance:   0,
	Rarity:   "common",
	Color:    "#6b7280",
	Icon:     "FaTimes",
	IsActive: false,
	Type:     TypeEmpty,
}

func part(name string, chance float64, rarity, color, icon string, slot collection.PartType, tier collection.Rarity) Prize {
	return Prize{
		Name: name, Chance: chance, Rarity: rarity, Color: color, Icon: icon,
		IsActive: true, Type: TypePart, PartType: &slot, PartRarity: &tier,
	}
}

func labu(name string, chance float64, rarity, color, icon string, amount int64) Prize {
	return Prize{
		Name: name, Chance: chance, Rarity: rarity, Color: color, Icon: icon,
		IsActive: true, Type: TypeLabu, LabuAmount: &amount,
	}
}

// DefaultCatalog — 12 секторов: 4.8% обычных частей, 3.2% эксклюзивных,
// 61% ЛАБУ. Итого 69%, оставшийся 31% уходит в промах.
func DefaultCatalog() []Prize {
	return []Prize{
		part("Часть 1 — Обычный", 1.2, "common", "#34d399", "FaUser", collection.Part1, collection.RarityNormal),
		part("Часть 2 — Обычный", 1.2, "common", "#60a5fa", "FaTshirt", collection.Part2, collection.RarityNormal),
		part("Часть 3 — Обычный", 1.2, "common", "#fbbf24", "FaHandPaper", collection.Part3, collection.RarityNormal),
		part("Часть 4 — Обычный", 1.2, "common", "#f97316", "FaShoePrints", collection.Part4, collection.RarityNormal),

		part("Часть 1 — Эксклюзив", 0.8, "rare", "#a855f7", "FaCrown", collection.Part1, collection.RarityExclusive),
		part("Часть 2 — Эксклюзив", 0.8, "rare", "#8b5cf6", "FaGem", collection.Part2, collection.RarityExclusive),
		part("Часть 3 — Эксклюзив", 0.8, "epic", "#ec4899", "FaMagic", collection.Part3, collection.RarityExclusive),
		part("Часть 4 — Эксклюзив", 0.8, "epic", "#ef4444", "FaFire", collection.Part4, collection.RarityExclusive),

		labu("+500 ЛАБУ", 25.0, "common", "#84cc16", "FaCoins", 500),
		labu("+1000 ЛАБУ", 20.0, "common", "#22c55e", "FaMoneyBillWave", 1000),
		labu("+1000 ЛАБУ (повтор)", 15.0, "common", "#16a34a", "FaMoneyBillWave", 1000),
		labu("+5000 ЛАБУ (джекпот)", 1.0, "legendary", "#10b981", "FaGift", 5000),
	}
}

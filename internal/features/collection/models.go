// Package collection ведёт коллекцию частей игрока и проверяет,
// собран ли набор из четырёх частей нужной редкости.
package collection

// PartType — слот части (part1..part4).
type PartType string

// Rarity — уровень набора: обычный или эксклюзивный.
type Rarity string

const (
	Part1 PartType = "part1"
	Part2 PartType = "part2"
	Part3 PartType = "part3"
	Part4 PartType = "part4"

	RarityNormal    Rarity = "normal"
	RarityExclusive Rarity = "exclusive"
)

// Slots — четыре обязательные части набора в каноническом порядке.
var Slots = []PartType{Part1, Part2, Part3, Part4}

// Rarities — все уровни, которые можно собрать независимо.
var Rarities = []Rarity{RarityNormal, RarityExclusive}

// Valid — известный ли это слот.
func (p PartType) Valid() bool {
	for _, s := range Slots {
		if s == p {
			return true
		}
	}
	return false
}

// Valid — известная ли это редкость.
func (r Rarity) Valid() bool {
	return r == RarityNormal || r == RarityExclusive
}

// Entry — строка коллекции: сколько раз игрок получил эту часть.
// На (user, part_type, part_rarity) стоит уникальный индекс.
type Entry struct {
	PartType   PartType `json:"partType"`
	PartRarity Rarity   `json:"partRarity"`
	Quantity   int      `json:"quantity"`
}

// Status — состояние одного набора.
type Status struct {
	Complete bool             `json:"complete"`
	Progress int              `json:"progress"`
	Total    int              `json:"total"`
	Parts    map[PartType]int `json:"parts"`
}

// Overview — обе коллекции игрока в форме, которую ждёт клиент.
type Overview struct {
	NormalCollection      map[PartType]int `json:"normalCollection"`
	CollectibleCollection map[PartType]int `json:"collectibleCollection"`
	Collections           struct {
		Normal     Status `json:"normal"`
		Collection Status `json:"collection"`
	} `json:"collections"`
}

// AnyComplete — собран хотя бы один набор.
func (o Overview) AnyComplete() bool {
	return o.Collections.Normal.Complete || o.Collections.Collection.Complete
}

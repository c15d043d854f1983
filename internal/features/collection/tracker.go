package collection

import "context"

// Evaluate считает прогресс набора rarity по строкам коллекции.
// Набор собран, когда у каждой из четырёх частей quantity >= 1;
// количество дубликатов на результат не влияет.
func Evaluate(entries []Entry, rarity Rarity) Status {
	st := Status{
		Total: len(Slots),
		Parts: make(map[PartType]int),
	}
	for _, e := range entries {
		if e.PartRarity != rarity || !e.PartType.Valid() || e.Quantity < 1 {
			continue
		}
		st.Parts[e.PartType] = e.Quantity
	}
	st.Progress = len(st.Parts)
	st.Complete = st.Progress == st.Total
	return st
}

// BuildOverview собирает обе коллекции для ответа клиенту.
// В картах normalCollection/collectibleCollection все четыре слота есть всегда.
func BuildOverview(entries []Entry) Overview {
	var o Overview
	o.NormalCollection = emptySlots()
	o.CollectibleCollection = emptySlots()
	for _, e := range entries {
		if !e.PartType.Valid() {
			continue
		}
		switch e.PartRarity {
		case RarityNormal:
			o.NormalCollection[e.PartType] = e.Quantity
		case RarityExclusive:
			o.CollectibleCollection[e.PartType] = e.Quantity
		}
	}
	o.Collections.Normal = Evaluate(entries, RarityNormal)
	o.Collections.Collection = Evaluate(entries, RarityExclusive)
	return o
}

func emptySlots() map[PartType]int {
	m := make(map[PartType]int, len(Slots))
	for _, s := range Slots {
		m[s] = 0
	}
	return m
}

// Lister — источник строк коллекции.
type Lister interface {
	List(ctx context.Context, userID int64) ([]Entry, error)
}

// Tracker отвечает на вопросы о коллекции игрока.
type Tracker struct {
	store Lister
}

// NewTracker создаёт трекер поверх хранилища.
func NewTracker(store Lister) *Tracker {
	return &Tracker{store: store}
}

// IsComplete — статус одного набора.
func (t *Tracker) IsComplete(ctx context.Context, userID int64, rarity Rarity) (Status, error) {
	entries, err := t.store.List(ctx, userID)
	if err != nil {
		return Status{}, err
	}
	return Evaluate(entries, rarity), nil
}

// Overview — обе коллекции игрока.
func (t *Tracker) Overview(ctx context.Context, userID int64) (Overview, error) {
	entries, err := t.store.List(ctx, userID)
	if err != nil {
		return Overview{}, err
	}
	return BuildOverview(entries), nil
}

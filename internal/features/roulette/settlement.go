package roulette

import (
	"context"
	"fmt"

	"serotonyl.ru/labubu-roulette/internal/features/collection"
	"serotonyl.ru/labubu-roulette/internal/features/economy"
	"serotonyl.ru/labubu-roulette/internal/features/prizes"
)

// Ledger — записи, которые делает расчёт награды.
// Все методы вызываются внутри транзакции спина.
type Ledger interface {
	// AddCollectionPart вставляет часть с quantity=1; false, если строка уже была.
	AddCollectionPart(ctx context.Context, userID int64, part collection.PartType, rarity collection.Rarity) (bool, error)
	IncrementCollectionPart(ctx context.Context, userID int64, part collection.PartType, rarity collection.Rarity) error
	CreditLabu(ctx context.Context, userID, amount int64, txType, description string, relatedID *int64) error
	CreateWin(ctx context.Context, spinID, userID, prizeID int64) (*Win, error)
}

// Settle применяет выпавший приз к игроку.
//
//   - part: вставка части; если уникальный индекс сказал «уже есть»,
//     дубликат: +duplicateRate ЛАБУ и quantity+1.
//   - labu: начисление labuAmount.
//   - empty: ничего.
//
// В любом случае создаётся Win. Ошибка любой записи возвращается
// вызывающему, и транзакция спина откатывается целиком.
func Settle(ctx context.Context, l Ledger, userID int64, prize prizes.Prize, spin *Spin, duplicateRate int64) (*Settlement, error) {
	res := &Settlement{Prize: prize}
	spinID := spin.ID

	switch prize.Type {
	case prizes.TypePart:
		if !prize.IsPart() {
			return nil, fmt.Errorf("приз %d (%s) без слота части", prize.ID, prize.Name)
		}
		part, rarity := *prize.PartType, *prize.PartRarity

		inserted, err := l.AddCollectionPart(ctx, userID, part, rarity)
		if err != nil {
			return nil, err
		}
		if inserted {
			res.NewPart = true
			res.Message = fmt.Sprintf("🎉 Поздравляем! Вы получили новую часть: %s!", prize.Name)
			break
		}

		res.IsDuplicate = true
		if duplicateRate > 0 {
			desc := fmt.Sprintf("%d ЛАБУ за дубликат: %s", duplicateRate, prize.Name)
			if err := l.CreditLabu(ctx, userID, duplicateRate, economy.TxDuplicateExchange, desc, &spinID); err != nil {
				return nil, err
			}
			res.LabuCredited = duplicateRate
		}
		if err := l.IncrementCollectionPart(ctx, userID, part, rarity); err != nil {
			return nil, err
		}
		res.Message = fmt.Sprintf("😕 Упс! Эта часть у вас уже есть. Получите %d ЛАБУ за дубликат!", duplicateRate)

	case prizes.TypeLabu:
		amount := prize.RawValue()
		if amount > 0 {
			desc := fmt.Sprintf("Получено %d ЛАБУ за спин", amount)
			if err := l.CreditLabu(ctx, userID, amount, economy.TxSpinReward, desc, &spinID); err != nil {
				return nil, err
			}
			res.LabuCredited = amount
		}
		res.Message = fmt.Sprintf("Получено %d ЛАБУ за спин", amount)

	default:
		res.Missed = true
		res.Message = prize.Name
	}

	win, err := l.CreateWin(ctx, spin.ID, userID, prize.ID)
	if err != nil {
		return nil, err
	}
	res.Win = win
	return res, nil
}

// Package settings хранит игровые настройки в таблице key/value
// и отдаёт их неизменяемым снимком, который читается один раз за спин.
package settings

import (
	"strconv"
	"strings"

	"serotonyl.ru/labubu-roulette/internal/config"
)

// Ключи таблицы settings
const (
	KeySpinCost             = "spin_cost"
	KeyPremiumSpinCost      = "premium_spin_cost"
	KeyDuplicateRate        = "duplicate_exchange_rate"
	KeySpinCostStars        = "spin_cost_stars"
	KeyPremiumSpinCostStars = "premium_spin_cost_stars"
)

// Snapshot — значения настроек на момент начала операции.
// Стоимости в копейках, курс дубликата в ЛАБУ, цены в звёздах Telegram.
type Snapshot struct {
	SpinCost              int64
	PremiumSpinCost       int64
	DuplicateExchangeRate int64
	SpinCostStars         int64
	PremiumSpinCostStars  int64
}

// CostFor возвращает стоимость обычного или премиум спина в копейках.
func (s Snapshot) CostFor(premium bool) int64 {
	if premium {
		return s.PremiumSpinCost
	}
	return s.SpinCost
}

// StarsFor возвращает цену спина в звёздах.
func (s Snapshot) StarsFor(premium bool) int64 {
	if premium {
		return s.PremiumSpinCostStars
	}
	return s.SpinCostStars
}

// DefaultsFromConfig — снимок из переменных окружения, используется
// для ключей, которых нет в таблице.
func DefaultsFromConfig(cfg *config.Config) Snapshot {
	return Snapshot{
		SpinCost:              cfg.GameSpinCost,
		PremiumSpinCost:       cfg.GamePremiumSpinCost,
		DuplicateExchangeRate: cfg.GameDuplicateRate,
		SpinCostStars:         cfg.GameSpinCostStars,
		PremiumSpinCostStars:  cfg.GamePremiumSpinCostStars,
	}
}

// Build собирает снимок из строк таблицы. Отсутствующие, нечисловые
// и отрицательные значения заменяются значениями по умолчанию.
func Build(values map[string]string, defaults Snapshot) Snapshot {
	pick := func(key string, def int64) int64 {
		raw, ok := values[key]
		if !ok {
			return def
		}
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || v < 0 {
			return def
		}
		return v
	}

	return Snapshot{
		SpinCost:              pick(KeySpinCost, defaults.SpinCost),
		PremiumSpinCost:       pick(KeyPremiumSpinCost, defaults.PremiumSpinCost),
		DuplicateExchangeRate: pick(KeyDuplicateRate, defaults.DuplicateExchangeRate),
		SpinCostStars:         pick(KeySpinCostStars, defaults.SpinCostStars),
		PremiumSpinCostStars:  pick(KeyPremiumSpinCostStars, defaults.PremiumSpinCostStars),
	}
}

// Known сообщает, можно ли менять ключ через админку.
func Known(key string) bool {
	switch key {
	case KeySpinCost, KeyPremiumSpinCost, KeyDuplicateRate, KeySpinCostStars, KeyPremiumSpinCostStars:
		return true
	}
	return false
}

// seedValues — стартовые значения для новой базы.
var seedValues = []struct {
	key, value, description string
}{
	{KeySpinCost, "12000", "Стоимость обычного спина, копейки"},
	{KeyPremiumSpinCost, "19900", "Стоимость премиум спина, копейки"},
	{KeyDuplicateRate, "300", "ЛАБУ за дубликат части"},
	{KeySpinCostStars, "120", "Обычный спин в звёздах Telegram"},
	{KeyPremiumSpinCostStars, "199", "Премиум спин в звёздах Telegram"},
}

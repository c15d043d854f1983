// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование денег и ЛАБУ, работа с московским временем.
package common

import (
	"fmt"
	"time"
)

// FormatRub переводит копейки в строку рублей.
//
// Примеры:
//
//	FormatRub(12000) → "120 ₽"
//	FormatRub(19950) → "199.50 ₽"
func FormatRub(kopecks int64) string {
	sign := ""
	if kopecks < 0 {
		sign = "-"
		kopecks = -kopecks
	}
	rub, kop := kopecks/100, kopecks%100
	if kop == 0 {
		return fmt.Sprintf("%s%s ₽", sign, FormatNumber(rub))
	}
	return fmt.Sprintf("%s%s.%02d ₽", sign, FormatNumber(rub), kop)
}

// FormatLabu форматирует сумму ЛАБУ: FormatLabu(5000) → "5 000 ЛАБУ".
func FormatLabu(amount int64) string {
	return fmt.Sprintf("%s ЛАБУ", FormatNumber(amount))
}

// MoscowLocation возвращает часовой пояс Europe/Moscow.
// Если tzdata недоступна (scratch-образ), UTC+3 задаётся вручную.
func MoscowLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return time.FixedZone("MSK", 3*60*60)
	}
	return loc
}

// FormatDateTime форматирует время как "02.01.2006 15:04" по Москве.
// Используется в уведомлениях и истории транзакций.
func FormatDateTime(t time.Time) string {
	return t.In(MoscowLocation()).Format("02.01.2006 15:04")
}

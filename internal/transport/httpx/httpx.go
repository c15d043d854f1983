// Package httpx — общие JSON-ответы и отображение ошибок домена
// на HTTP-статусы и машинные коды для клиента Mini App.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/labubu-roulette/internal/common"
)

// Максимальный размер JSON-тела запроса
const maxBodyBytes = 1 << 20

// ErrorBody — тело ответа с ошибкой.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// WriteJSON пишет payload с нужным статусом.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("Не удалось записать JSON-ответ")
	}
}

type errorMapping struct {
	target error
	status int
	code   string
	// detailed — отдавать клиенту полный текст ошибки, а не только сентинел
	detailed bool
}

var errorTable = []errorMapping{
	{common.ErrInsufficientFunds, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", false},
	{common.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR", true},
	{common.ErrInvalidAmount, http.StatusBadRequest, "VALIDATION_ERROR", false},
	{common.ErrReferralAlreadyUsed, http.StatusBadRequest, "REFERRAL_ALREADY_USED", false},
	{common.ErrReferralCodeNotFound, http.StatusBadRequest, "REFERRAL_CODE_NOT_FOUND", false},
	{common.ErrReferralSelf, http.StatusBadRequest, "REFERRAL_SELF", false},
	{common.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", false},
	{common.ErrNotFound, http.StatusNotFound, "NOT_FOUND", false},
	{common.ErrBadSignature, http.StatusBadRequest, "BAD_SIGNATURE", false},
	{common.ErrUnknownProduct, http.StatusBadRequest, "UNKNOWN_PRODUCT", false},
	{common.ErrPaymentsDisabled, http.StatusServiceUnavailable, "PAYMENTS_DISABLED", false},
	{common.ErrUnknownSetting, http.StatusBadRequest, "UNKNOWN_SETTING", true},
	{common.ErrWrongPassword, http.StatusUnauthorized, "WRONG_PASSWORD", false},
	{common.ErrSessionExpired, http.StatusUnauthorized, "SESSION_EXPIRED", false},
	{common.ErrTooManyAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", false},
	{common.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", false},
}

// Classify возвращает HTTP-статус, код и текст для ошибки домена.
// Неизвестные ошибки отдаются как 500 без подробностей.
func Classify(err error) (int, string, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			msg := m.target.Error()
			if m.detailed {
				msg = err.Error()
			}
			return m.status, m.code, msg
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
}

// WriteError пишет ошибку в формате {success:false, error, code}.
// Внутренние ошибки логируются целиком, клиент видит общий текст.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": chimiddleware.GetReqID(r.Context()),
		}).Error("Ошибка обработки запроса")
	}
	WriteJSON(w, status, ErrorBody{Success: false, Error: msg, Code: code})
}

// DecodeJSON читает тело запроса в dst. Пустое или битое тело даёт ErrValidation.
func DecodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("%w: некорректный JSON", common.ErrValidation)
	}
	return nil
}

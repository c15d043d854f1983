package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"serotonyl.ru/labubu-roulette/internal/common"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"insufficient", fmt.Errorf("spin: %w", common.ErrInsufficientFunds), http.StatusPaymentRequired, "INSUFFICIENT_FUNDS", "Недостаточно средств на балансе"},
		{"validation keeps detail", fmt.Errorf("%w: sessionId обязателен", common.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR", "некорректный запрос: sessionId обязателен"},
		{"referral hides wrap", fmt.Errorf("промокод \"X\": %w", common.ErrReferralCodeNotFound), http.StatusBadRequest, "REFERRAL_CODE_NOT_FOUND", "Промокод не найден!"},
		{"not found", common.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND", "пользователь не найден"},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code, msg := Classify(tc.err)
			if status != tc.wantStatus || code != tc.wantCode || msg != tc.wantMsg {
				t.Fatalf("got %d/%s/%q, want %d/%s/%q", status, code, msg, tc.wantStatus, tc.wantCode, tc.wantMsg)
			}
		})
	}
}

func TestWriteErrorShape(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/spin", nil)

	WriteError(rec, req, common.ErrInsufficientFunds)

	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/spin", strings.NewReader("{"))
	var dst struct{}
	if err := DecodeJSON(req, &dst); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package prizes

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubCatalog struct {
	list []Prize
}

func (s stubCatalog) ListActive(context.Context) ([]Prize, error) {
	return s.list, nil
}

func TestDefaultCatalogTotals(t *testing.T) {
	var total, parts float64
	for _, p := range DefaultCatalog() {
		total += p.Chance
		if p.Type == TypePart {
			if !p.IsPart() {
				t.Fatalf("part prize %q has no slot", p.Name)
			}
			parts += p.Chance
		}
	}
	if math.Abs(total-69) > 1e-9 {
		t.Fatalf("catalog total = %v, want 69", total)
	}
	if math.Abs(parts-8) > 1e-9 {
		t.Fatalf("part total = %v, want 8", parts)
	}
}

func TestListAddsRawValue(t *testing.T) {
	h := NewHandler(stubCatalog{list: DefaultCatalog()})
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/prizes", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Success bool `json:"success"`
		Prizes  []struct {
			Name      string `json:"name"`
			PrizeType string `json:"prizeType"`
			RawValue  int64  `json:"rawValue"`
		} `json:"prizes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || len(body.Prizes) != 12 {
		t.Fatalf("unexpected body: %+v", body)
	}
	for _, p := range body.Prizes {
		if p.PrizeType == "part" && p.RawValue != 0 {
			t.Fatalf("part %q must have rawValue 0", p.Name)
		}
		if p.Name == "+5000 ЛАБУ (джекпот)" && p.RawValue != 5000 {
			t.Fatalf("jackpot rawValue = %d", p.RawValue)
		}
	}
}

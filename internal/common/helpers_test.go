package common

import (
	"testing"
	"time"
)

func TestFormatNumber(t *testing.T) {
	cases := map[int64]string{
		0:       "0",
		999:     "999",
		1000:    "1 000",
		2350:    "2 350",
		1000005: "1 000 005",
		-12000:  "-12 000",
	}
	for in, want := range cases {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatRub(t *testing.T) {
	cases := map[int64]string{
		12000:  "120 ₽",
		19950:  "199.50 ₽",
		5:      "0.05 ₽",
		150000: "1 500 ₽",
	}
	for in, want := range cases {
		if got := FormatRub(in); got != want {
			t.Fatalf("FormatRub(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestPluralizeSpins(t *testing.T) {
	cases := map[int64]string{
		1:  "спин",
		2:  "спина",
		5:  "спинов",
		11: "спинов",
		21: "спин",
		24: "спина",
	}
	for in, want := range cases {
		if got := PluralizeSpins(in); got != want {
			t.Fatalf("PluralizeSpins(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDateTimeMoscow(t *testing.T) {
	ts := time.Date(2024, 3, 1, 21, 30, 0, 0, time.UTC)
	if got := FormatDateTime(ts); got != "02.03.2024 00:30" {
		t.Fatalf("unexpected moscow time: %s", got)
	}
}

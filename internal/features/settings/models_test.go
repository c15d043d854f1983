package settings

import "testing"

var testDefaults = Snapshot{
	SpinCost:              10000,
	PremiumSpinCost:       19900,
	DuplicateExchangeRate: 200,
	SpinCostStars:         120,
	PremiumSpinCostStars:  199,
}

func TestBuildFallsBackToDefaults(t *testing.T) {
	snap := Build(map[string]string{}, testDefaults)
	if snap != testDefaults {
		t.Fatalf("empty table must yield defaults, got %+v", snap)
	}
}

func TestBuildOverridesAndIgnoresGarbage(t *testing.T) {
	snap := Build(map[string]string{
		KeySpinCost:        "12000",
		KeyDuplicateRate:   " 300 ",
		KeyPremiumSpinCost: "дорого",
		KeySpinCostStars:   "-5",
	}, testDefaults)

	if snap.SpinCost != 12000 {
		t.Fatalf("spin cost = %d, want 12000", snap.SpinCost)
	}
	if snap.DuplicateExchangeRate != 300 {
		t.Fatalf("duplicate rate = %d, want 300", snap.DuplicateExchangeRate)
	}
	if snap.PremiumSpinCost != 19900 {
		t.Fatalf("non-numeric value must fall back, got %d", snap.PremiumSpinCost)
	}
	if snap.SpinCostStars != 120 {
		t.Fatalf("negative value must fall back, got %d", snap.SpinCostStars)
	}
}

func TestCostFor(t *testing.T) {
	if testDefaults.CostFor(false) != 10000 || testDefaults.CostFor(true) != 19900 {
		t.Fatalf("unexpected costs")
	}
	if testDefaults.StarsFor(true) != 199 {
		t.Fatalf("unexpected premium stars price")
	}
}

func TestKnown(t *testing.T) {
	if !Known(KeyDuplicateRate) {
		t.Fatalf("duplicate rate must be editable")
	}
	if Known("contact_telegram") {
		t.Fatalf("free-form keys must be rejected")
	}
}

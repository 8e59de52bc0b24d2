package analytics

import "testing"

func TestBollingerInsufficientSamples(t *testing.T) {
	closes := closesFrom(1, 2, 3)
	if _, _, _, ok := Bollinger(closes); ok {
		t.Fatal("expected ok=false with fewer than 20 closes")
	}
}

func TestBollingerConstantSeriesBandsCollapseToMiddle(t *testing.T) {
	vals := make([]float64, 20)
	for i := range vals {
		vals[i] = 1.5
	}
	upper, middle, lower, ok := Bollinger(closesFrom(vals...))
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !upper.Equal(middle) || !lower.Equal(middle) {
		t.Fatalf("constant series should collapse bands to the middle: upper=%s middle=%s lower=%s", upper, middle, lower)
	}
}

func TestBollingerUpperAboveLower(t *testing.T) {
	vals := []float64{1.10, 1.12, 1.09, 1.13, 1.08, 1.14, 1.07, 1.15, 1.06, 1.16,
		1.05, 1.17, 1.04, 1.18, 1.03, 1.19, 1.02, 1.20, 1.01, 1.21}
	upper, middle, lower, ok := Bollinger(closesFrom(vals...))
	if !ok {
		t.Fatal("expected ok=true")
	}
	if !upper.GreaterThan(middle) || !middle.GreaterThan(lower) {
		t.Fatalf("expected upper > middle > lower, got upper=%s middle=%s lower=%s", upper, middle, lower)
	}
}

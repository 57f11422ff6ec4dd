package metric

import "testing"

func TestImprovesOnLowerIsBetter(t *testing.T) {
	best := Overwatch{Name: "total_loss", Comparison: LowerIsBetter, Value: 1.0}
	cases := []struct {
		value float64
		want  bool
	}{
		{0.5, true},
		{1.0, false},
		{1.5, false},
	}
	for _, c := range cases {
		got, err := Overwatch{Name: "total_loss", Comparison: LowerIsBetter, Value: c.value}.ImprovesOn(best)
		if err != nil {
			t.Fatalf("ImprovesOn(%v): %v", c.value, err)
		}
		if got != c.want {
			t.Fatalf("ImprovesOn(%v) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestImprovesOnHigherIsBetter(t *testing.T) {
	best := Overwatch{Name: "accuracy", Comparison: HigherIsBetter, Value: 0.8}
	cases := []struct {
		value float64
		want  bool
	}{
		{0.9, true},
		{0.8, false},
		{0.7, false},
	}
	for _, c := range cases {
		got, err := Overwatch{Name: "accuracy", Comparison: HigherIsBetter, Value: c.value}.ImprovesOn(best)
		if err != nil {
			t.Fatalf("ImprovesOn(%v): %v", c.value, err)
		}
		if got != c.want {
			t.Fatalf("ImprovesOn(%v) = %v, want %v", c.value, got, c.want)
		}
	}
}

func TestImprovesOnUnknownComparison(t *testing.T) {
	bad := Overwatch{Comparison: Comparison(42), Value: 1}
	if _, err := bad.ImprovesOn(Overwatch{Value: 2}); err == nil {
		t.Fatalf("expected error for unknown comparison mode")
	}
}

func TestParseComparison(t *testing.T) {
	if c, err := ParseComparison("smaller"); err != nil || c != LowerIsBetter {
		t.Fatalf("ParseComparison(smaller) = %v, %v", c, err)
	}
	if c, err := ParseComparison("bigger"); err != nil || c != HigherIsBetter {
		t.Fatalf("ParseComparison(bigger) = %v, %v", c, err)
	}
	if _, err := ParseComparison("sideways"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

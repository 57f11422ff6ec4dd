// Package metric defines the overwatch metric: the single scalar the
// checkpoint saver and early stopping watch to decide "improvement".
package metric

import "fmt"

// Comparison declares which direction of change counts as improvement.
type Comparison int

const (
	LowerIsBetter Comparison = iota
	HigherIsBetter
)

func (c Comparison) String() string {
	switch c {
	case LowerIsBetter:
		return "lower_is_better"
	case HigherIsBetter:
		return "higher_is_better"
	default:
		return fmt.Sprintf("comparison(%d)", int(c))
	}
}

// ParseComparison maps a config string onto a Comparison.
func ParseComparison(s string) (Comparison, error) {
	switch s {
	case "smaller", "lower", "lower_is_better", "min":
		return LowerIsBetter, nil
	case "bigger", "higher", "higher_is_better", "max":
		return HigherIsBetter, nil
	default:
		return 0, fmt.Errorf("unknown comparison mode: %q", s)
	}
}

// Overwatch is one observation of the watched metric. A fresh value is
// created each time the metric is computed; the saver retains the best
// one seen so far.
type Overwatch struct {
	Name       string
	Comparison Comparison
	Value      float64
}

// ImprovesOn reports whether m is a strict improvement over best per
// m's comparison mode. Equal values are never an improvement. An
// unknown comparison mode is a configuration error.
func (m Overwatch) ImprovesOn(best Overwatch) (bool, error) {
	switch m.Comparison {
	case LowerIsBetter:
		return m.Value < best.Value, nil
	case HigherIsBetter:
		return m.Value > best.Value, nil
	default:
		return false, fmt.Errorf("unknown comparison mode: %v", m.Comparison)
	}
}

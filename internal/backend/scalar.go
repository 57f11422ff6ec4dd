package backend

import "fmt"

// Scalar is the concrete Value used by backends. The gradient path is a
// closure that scatters an upstream gradient into the producing model's
// accumulators.
type Scalar struct {
	v    float64
	back func(grad float64)
}

// NewScalar builds a graph-attached scalar. back receives the upstream
// gradient when Backward runs.
func NewScalar(v float64, back func(grad float64)) *Scalar {
	return &Scalar{v: v, back: back}
}

// Constant builds a scalar with no gradient path.
func Constant(v float64) *Scalar { return &Scalar{v: v} }

func (s *Scalar) Item() float64 { return s.v }

func (s *Scalar) Detach() Value { return &Scalar{v: s.v} }

func (s *Scalar) Backward() error {
	if s.back == nil {
		return ErrDetached
	}
	s.back(1)
	return nil
}

// WeightedSum combines loss terms into a single scalar objective:
// sum(weights[i] * terms[i]). The result's backward pass fans the
// upstream gradient out to every term scaled by its weight.
func WeightedSum(terms []Value, weights []float64) (Value, error) {
	if len(terms) != len(weights) {
		return nil, fmt.Errorf("backend: %d terms but %d weights", len(terms), len(weights))
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("backend: no loss terms to sum")
	}
	total := 0.0
	backs := make([]func(float64), len(terms))
	for i, term := range terms {
		s, ok := term.(*Scalar)
		if !ok {
			return nil, fmt.Errorf("backend: loss term %d does not support backward", i)
		}
		total += weights[i] * s.v
		backs[i] = s.back
	}
	ws := make([]float64, len(weights))
	copy(ws, weights)
	return NewScalar(total, func(grad float64) {
		for i, back := range backs {
			if back != nil {
				back(grad * ws[i])
			}
		}
	}), nil
}

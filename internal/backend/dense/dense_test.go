package dense

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"traind/internal/backend"
)

func TestFromRows(t *testing.T) {
	d, err := FromRows([][]float64{{1, 2}, {3, 4}, {5, 6}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if s := d.Shape(); s[0] != 3 || s[1] != 2 {
		t.Fatalf("shape = %v", s)
	}
	if d.Data()[5] != 6 {
		t.Fatalf("data = %v", d.Data())
	}
	if _, err := FromRows([][]float64{{1, 2}, {3}}); err == nil {
		t.Fatalf("expected error for ragged rows")
	}
	if _, err := FromRows(nil); err == nil {
		t.Fatalf("expected error for empty rows")
	}
}

func TestLinearForwardKnownWeights(t *testing.T) {
	m := NewLinear(2, 1, rand.New(rand.NewSource(7)))
	if err := m.LoadState(backend.State{Params: []backend.Param{
		{Name: "weight", Shape: []int{2, 1}, Data: []float64{2, 3}},
		{Name: "bias", Shape: []int{1}, Data: []float64{1}},
	}}); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	x, _ := FromRows([][]float64{{1, 1}, {2, 0}})
	out, err := m.Forward(backend.ArgOf(x))
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	got := out.Data()
	// row0: 1*2 + 1*3 + 1 = 6; row1: 2*2 + 0*3 + 1 = 5
	if got[0] != 6 || got[1] != 5 {
		t.Fatalf("forward = %v", got)
	}
}

func TestForwardRejectsWrongArity(t *testing.T) {
	m := NewLinear(2, 1, nil)
	if _, err := m.Forward(backend.ArgOf()); err == nil {
		t.Fatalf("expected error for absent input")
	}
	x, _ := FromRows([][]float64{{1, 2, 3}})
	if _, err := m.Forward(backend.ArgOf(x)); err == nil {
		t.Fatalf("expected error for mismatched width")
	}
}

func TestMSEGradientDescentConverges(t *testing.T) {
	// target function: y = 2x - 1
	rng := rand.New(rand.NewSource(3))
	m := NewLinear(1, 1, rng)
	opt := NewSGD(m, 0.05)
	loss := MSE(m)

	var rows, labels [][]float64
	for i := 0; i < 8; i++ {
		x := float64(i) / 4
		rows = append(rows, []float64{x})
		labels = append(labels, []float64{2*x - 1})
	}
	x, _ := FromRows(rows)
	y, _ := FromRows(labels)

	var last float64
	for epoch := 0; epoch < 400; epoch++ {
		opt.ZeroGrad()
		out, err := m.Forward(backend.ArgOf(x))
		if err != nil {
			t.Fatalf("Forward: %v", err)
		}
		v, err := loss(backend.ArgOf(x), out, backend.ArgOf(y), backend.ArgOf())
		if err != nil {
			t.Fatalf("loss: %v", err)
		}
		if err := v.Backward(); err != nil {
			t.Fatalf("Backward: %v", err)
		}
		opt.Step()
		last = v.Item()
	}
	if last > 1e-3 {
		t.Fatalf("expected convergence, final loss %v", last)
	}
	if math.Abs(m.w[0]-2) > 0.1 || math.Abs(m.b[0]+1) > 0.1 {
		t.Fatalf("learned parameters w=%v b=%v", m.w, m.b)
	}
}

func TestDetachedLossCannotBackward(t *testing.T) {
	m := NewLinear(1, 1, nil)
	loss := MSE(m)
	x, _ := FromRows([][]float64{{1}})
	y, _ := FromRows([][]float64{{0}})
	out, err := m.Forward(backend.ArgOf(x))
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	v, err := loss(backend.ArgOf(x), out, backend.ArgOf(y), backend.ArgOf())
	if err != nil {
		t.Fatalf("loss: %v", err)
	}
	if err := v.Detach().Backward(); !errors.Is(err, backend.ErrDetached) {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
}

func TestMAEMetric(t *testing.T) {
	mae := MAE()
	out := New([]int{2, 1}, []float64{1, -1})
	y := New([]int{2, 1}, []float64{0, 1})
	got, err := mae(backend.ArgOf(), out, backend.ArgOf(y), backend.ArgOf())
	if err != nil {
		t.Fatalf("mae: %v", err)
	}
	if got != 1.5 {
		t.Fatalf("mae = %v, want 1.5", got)
	}
}

package dense

import (
	"fmt"
	"math"
	"math/rand"

	"gorgonia.org/tensor"

	"traind/internal/backend"
)

// Linear is y = xW + b over (n, in) input batches. Gradients are
// accumulated by the loss closures built from MSE and applied by SGD.
type Linear struct {
	in, out int

	w []float64 // (in, out) row-major
	b []float64 // (out)

	gradW []float64
	gradB []float64

	// lastIn references the batch of the most recent forward pass. The
	// loss closure needs it to compute dL/dW.
	lastIn *tensor.Dense
}

// NewLinear builds a linear model with Xavier-style initialization.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	m := &Linear{
		in:    in,
		out:   out,
		w:     make([]float64, in*out),
		b:     make([]float64, out),
		gradW: make([]float64, in*out),
		gradB: make([]float64, out),
	}
	scale := math.Sqrt(2.0 / float64(in+out))
	for i := range m.w {
		m.w[i] = rng.NormFloat64() * scale
	}
	return m
}

// Forward computes the batch output and caches the input for the
// backward pass.
func (m *Linear) Forward(inputs backend.Arg) (backend.Tensor, error) {
	x, ok := inputs.Single()
	if !ok {
		return nil, fmt.Errorf("dense: linear model expects exactly one input tensor")
	}
	xd := asDense(x)
	shape := xd.Shape()
	if len(shape) != 2 || shape[1] != m.in {
		return nil, fmt.Errorf("dense: input shape %v does not match (n, %d)", shape, m.in)
	}
	wd := tensor.New(tensor.WithShape(m.in, m.out), tensor.WithBacking(m.w))
	prod, err := tensor.MatMul(xd, wd)
	if err != nil {
		return nil, fmt.Errorf("dense: forward matmul: %w", err)
	}
	out := prod.(*tensor.Dense)
	data := out.Data().([]float64)
	n := shape[0]
	for i := 0; i < n; i++ {
		for j := 0; j < m.out; j++ {
			data[i*m.out+j] += m.b[j]
		}
	}
	m.lastIn = xd
	return &Tensor{d: out}, nil
}

// State snapshots the parameters.
func (m *Linear) State() (backend.State, error) {
	w := make([]float64, len(m.w))
	copy(w, m.w)
	b := make([]float64, len(m.b))
	copy(b, m.b)
	return backend.State{Params: []backend.Param{
		{Name: "weight", Shape: []int{m.in, m.out}, Data: w},
		{Name: "bias", Shape: []int{m.out}, Data: b},
	}}, nil
}

// LoadState restores parameters from a snapshot.
func (m *Linear) LoadState(s backend.State) error {
	for _, p := range s.Params {
		switch p.Name {
		case "weight":
			if len(p.Data) != len(m.w) {
				return fmt.Errorf("dense: weight size %d, want %d", len(p.Data), len(m.w))
			}
			copy(m.w, p.Data)
		case "bias":
			if len(p.Data) != len(m.b) {
				return fmt.Errorf("dense: bias size %d, want %d", len(p.Data), len(m.b))
			}
			copy(m.b, p.Data)
		default:
			return fmt.Errorf("dense: unknown parameter %q", p.Name)
		}
	}
	return nil
}

// accumulate scatters an upstream gradient over the cached activations.
// dOut is dL/dOut for the batch the closure captured.
func (m *Linear) accumulate(x *tensor.Dense, dOut []float64, grad float64) {
	xData := x.Data().([]float64)
	n := x.Shape()[0]
	for i := 0; i < n; i++ {
		for j := 0; j < m.out; j++ {
			g := grad * dOut[i*m.out+j]
			m.gradB[j] += g
			for k := 0; k < m.in; k++ {
				m.gradW[k*m.out+j] += g * xData[i*m.in+k]
			}
		}
	}
}

// SGD applies plain stochastic gradient descent to a Linear model.
type SGD struct {
	model *Linear
	lr    float64
}

func NewSGD(model *Linear, lr float64) *SGD {
	return &SGD{model: model, lr: lr}
}

func (o *SGD) ZeroGrad() {
	for i := range o.model.gradW {
		o.model.gradW[i] = 0
	}
	for i := range o.model.gradB {
		o.model.gradB[i] = 0
	}
}

func (o *SGD) Step() {
	for i := range o.model.w {
		o.model.w[i] -= o.lr * o.model.gradW[i]
	}
	for i := range o.model.b {
		o.model.b[i] -= o.lr * o.model.gradB[i]
	}
}

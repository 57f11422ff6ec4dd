// Package dense is the reference numeric backend: a linear model with
// hand-derived gradients over gorgonia dense tensors. It exists so the
// orchestration core, its tests and the demo session have a real
// backend to drive; production models plug in through the same
// backend contracts.
package dense

import (
	"fmt"

	"gorgonia.org/tensor"

	"traind/internal/backend"
)

// Tensor wraps a gorgonia dense tensor behind the backend contract.
type Tensor struct {
	d *tensor.Dense
}

// New builds a dense tensor from a shape and flat backing data.
func New(shape []int, data []float64) *Tensor {
	return &Tensor{d: tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))}
}

// FromRows stacks equal-length rows into an (n, len(row)) tensor.
func FromRows(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dense: no rows to stack")
	}
	width := len(rows[0])
	flat := make([]float64, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("dense: row %d has length %d, want %d", i, len(row), width)
		}
		flat = append(flat, row...)
	}
	return New([]int{len(rows), width}, flat), nil
}

func (t *Tensor) Shape() []int { return []int(t.d.Shape()) }

func (t *Tensor) Data() []float64 { return t.d.Data().([]float64) }

func (t *Tensor) Detach() backend.Tensor {
	return &Tensor{d: t.d.Clone().(*tensor.Dense)}
}

// asDense converts any backend tensor into a gorgonia dense tensor,
// reusing the underlying storage when it already is one.
func asDense(t backend.Tensor) *tensor.Dense {
	if dt, ok := t.(*Tensor); ok {
		return dt.d
	}
	return tensor.New(tensor.WithShape(t.Shape()...), tensor.WithBacking(t.Data()))
}

// Package backend declares the minimal contract the training core
// requires from a numeric backend: a model with a forward pass,
// graph-capable scalar loss values supporting backward and detach, an
// optimizer with zero-grad and step, and serializable model state.
package backend

import "errors"

// ErrDetached is returned by Backward on a value with no gradient path.
var ErrDetached = errors.New("backend: value is detached from the computation graph")

// Tensor is a batched numeric value handed between the dataset, the
// model and the loss/metric functions.
type Tensor interface {
	Shape() []int
	Data() []float64
	// Detach returns a copy holding the same numbers with no reference
	// back to the producing model.
	Detach() Tensor
}

// Value is a scalar loss term. A freshly computed Value carries a
// gradient path; Detach severs it while preserving the number.
type Value interface {
	Item() float64
	Detach() Value
	// Backward accumulates gradients into the producing model's
	// parameters. Calling it on a detached value fails with ErrDetached.
	Backward() error
}

// Module is a trainable model.
type Module interface {
	Forward(inputs Arg) (Tensor, error)
	State() (State, error)
	LoadState(State) error
}

// Optimizer updates a Module's parameters from accumulated gradients.
type Optimizer interface {
	// ZeroGrad clears the accumulated gradient before a new batch.
	ZeroGrad()
	// Step applies one parameter update from the current gradient.
	Step()
}

// Param is one named parameter tensor of a model's state.
type Param struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// State is a serializable snapshot of a model's parameters.
type State struct {
	Params []Param `json:"params"`
}

// Package run drives the epoch and batch lifecycle: the trainer's
// state machine, the forward-only tester and the shared per-batch
// loss/metric evaluation they both use.
package run

import (
	"fmt"

	"traind/internal/backend"
	"traind/internal/data"
	"traind/internal/metric"
)

// Evaluator computes every configured loss and metric for one
// minibatch. The trainer backpropagates the returned objective; the
// tester discards it.
type Evaluator struct {
	losses  []metric.Loss
	metrics []metric.Metric
}

// NewEvaluator copies the loss and metric tables.
func NewEvaluator(losses []metric.Loss, metrics []metric.Metric) Evaluator {
	return Evaluator{
		losses:  append([]metric.Loss(nil), losses...),
		metrics: append([]metric.Metric(nil), metrics...),
	}
}

// batchResult carries one minibatch's outcome. The scalar maps hold
// detached numbers only; objective is the single graph-attached value.
type batchResult struct {
	objective backend.Value
	total     float64
	losses    map[string]float64
	metrics   map[string]float64
}

// evaluate normalizes the batch fields, runs the forward pass and
// produces the weighted objective plus detached per-loss and per-metric
// scalars.
func (e Evaluator) evaluate(model backend.Module, b data.Batch) (batchResult, error) {
	inputs := backend.ArgOf(b.Inputs...)
	labels := backend.ArgOf(b.Labels...)
	aux := backend.ArgOf(b.Auxiliary...)

	outputs, err := model.Forward(inputs)
	if err != nil {
		return batchResult{}, fmt.Errorf("forward pass: %w", err)
	}

	terms := make([]backend.Value, 0, len(e.losses))
	weights := make([]float64, 0, len(e.losses))
	losses := make(map[string]float64, len(e.losses))
	for _, l := range e.losses {
		v, err := l.Fn(inputs, outputs, labels, aux)
		if err != nil {
			return batchResult{}, fmt.Errorf("loss %s: %w", l.Name, err)
		}
		terms = append(terms, v)
		weights = append(weights, l.Weight)
		losses[l.Name] = v.Detach().Item()
	}
	objective, err := backend.WeightedSum(terms, weights)
	if err != nil {
		return batchResult{}, err
	}

	metrics := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		v, err := m.Fn(inputs, outputs, labels, aux)
		if err != nil {
			return batchResult{}, fmt.Errorf("metric %s: %w", m.Name, err)
		}
		metrics[m.Name] = v
	}

	return batchResult{
		objective: objective,
		total:     objective.Detach().Item(),
		losses:    losses,
		metrics:   metrics,
	}, nil
}

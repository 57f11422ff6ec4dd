package metric

import "traind/internal/backend"

// LossFunc computes one graph-attached scalar loss term from a batch.
type LossFunc func(inputs backend.Arg, outputs backend.Tensor, labels, aux backend.Arg) (backend.Value, error)

// MetricFunc computes one plain scalar metric from a batch.
type MetricFunc func(inputs backend.Arg, outputs backend.Tensor, labels, aux backend.Arg) (float64, error)

// Loss is a named, weighted loss term. Weights scale each term before
// the terms are summed into the single training objective.
type Loss struct {
	Name   string
	Weight float64
	Fn     LossFunc
}

// Metric is a named metric tracked alongside the losses.
type Metric struct {
	Name string
	Fn   MetricFunc
}

// Means reduces per-batch observations to per-epoch means with equal
// weight per batch. A ragged final batch biases the mean slightly; that
// is accepted.
func Means(rows []map[string]float64) map[string]float64 {
	if len(rows) == 0 {
		return map[string]float64{}
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, row := range rows {
		for name, v := range row {
			sums[name] += v
			counts[name]++
		}
	}
	out := make(map[string]float64, len(sums))
	for name, sum := range sums {
		out[name] = sum / float64(counts[name])
	}
	return out
}

package run

import (
	"fmt"

	"traind/internal/backend"
	"traind/internal/data"
	"traind/internal/metric"
)

// Tester runs the model over a dataset in inference mode: same loss
// and metric computation as training, no gradient and no optimizer
// step. The trainer runs it once per epoch for validation; the REPL
// runs it on demand.
type Tester struct {
	model     backend.Module
	dataset   data.Dataset
	eval      Evaluator
	batchSize int
}

// TestResult aggregates one full pass, equal weight per batch.
type TestResult struct {
	TotalLoss float64
	Losses    map[string]float64
	Metrics   map[string]float64
	Batches   int
}

// NewTester builds a forward-only evaluator over dataset.
func NewTester(model backend.Module, dataset data.Dataset, eval Evaluator, batchSize int) *Tester {
	return &Tester{model: model, dataset: dataset, eval: eval, batchSize: batchSize}
}

// Run evaluates every minibatch and returns the per-batch means.
func (t *Tester) Run() (TestResult, error) {
	total := data.NumBatches(t.dataset.Len(), t.batchSize)
	if total == 0 {
		return TestResult{}, fmt.Errorf("tester: empty dataset or invalid batch size %d", t.batchSize)
	}
	lossRows := make([]map[string]float64, 0, total)
	metricRows := make([]map[string]float64, 0, total)
	sum := 0.0
	for i := 0; i < total; i++ {
		batch, err := t.dataset.Batch(i, t.batchSize)
		if err != nil {
			return TestResult{}, fmt.Errorf("tester batch %d: %w", i, err)
		}
		res, err := t.eval.evaluate(t.model, batch)
		if err != nil {
			return TestResult{}, err
		}
		lossRows = append(lossRows, res.losses)
		metricRows = append(metricRows, res.metrics)
		sum += res.total
	}
	return TestResult{
		TotalLoss: sum / float64(total),
		Losses:    metric.Means(lossRows),
		Metrics:   metric.Means(metricRows),
		Batches:   total,
	}, nil
}

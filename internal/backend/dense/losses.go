package dense

import (
	"fmt"
	"math"

	"traind/internal/backend"
	"traind/internal/metric"
)

// MSE builds the mean-squared-error loss for a Linear model. The
// returned value is graph-attached: Backward scatters gradients into
// the model's accumulators from the activations captured at compute
// time.
func MSE(m *Linear) metric.LossFunc {
	return func(_ backend.Arg, outputs backend.Tensor, labels, _ backend.Arg) (backend.Value, error) {
		y, ok := labels.Single()
		if !ok {
			return nil, fmt.Errorf("dense: mse needs exactly one label tensor")
		}
		pred := outputs.Data()
		target := y.Data()
		if len(pred) != len(target) {
			return nil, fmt.Errorf("dense: mse got %d predictions and %d targets", len(pred), len(target))
		}
		n := float64(len(pred))
		loss := 0.0
		dOut := make([]float64, len(pred))
		for i := range pred {
			diff := pred[i] - target[i]
			loss += diff * diff
			dOut[i] = 2 * diff / n
		}
		loss /= n
		x := m.lastIn
		return backend.NewScalar(loss, func(grad float64) {
			m.accumulate(x, dOut, grad)
		}), nil
	}
}

// MAE is the mean-absolute-error metric (no gradient path).
func MAE() metric.MetricFunc {
	return func(_ backend.Arg, outputs backend.Tensor, labels, _ backend.Arg) (float64, error) {
		y, ok := labels.Single()
		if !ok {
			return 0, fmt.Errorf("dense: mae needs exactly one label tensor")
		}
		pred := outputs.Data()
		target := y.Data()
		if len(pred) != len(target) {
			return 0, fmt.Errorf("dense: mae got %d predictions and %d targets", len(pred), len(target))
		}
		sum := 0.0
		for i := range pred {
			sum += math.Abs(pred[i] - target[i])
		}
		return sum / float64(len(pred)), nil
	}
}

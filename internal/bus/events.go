package bus

import (
	"traind/internal/backend"
	"traind/internal/metric"
)

// Event kinds emitted by the training lifecycle.
const (
	KindTrainingStart     Kind = "training_start"
	KindEpochStart        Kind = "epoch_start"
	KindBatchEnd          Kind = "batch_end"
	KindEpochEnd          Kind = "epoch_end"
	KindTrainingEnd       Kind = "training_end"
	KindOverwatchComputed Kind = "overwatch_metric_computed"
	KindSaveModel         Kind = "save_model"
	KindSavingRequired    Kind = "saving_required"
	KindModelSaved        Kind = "model_saved"
)

// TrainingStart fires once when a fresh training session begins. It
// does not fire again when a finished session is extended.
type TrainingStart struct{}

func (TrainingStart) Kind() Kind { return KindTrainingStart }

// EpochStart fires before the first minibatch of every epoch.
type EpochStart struct {
	Epoch       int
	TotalEpochs int
}

func (EpochStart) Kind() Kind { return KindEpochStart }

// BatchEnd fires after every optimizer step with detached scalars only;
// no field retains a reference into the backward graph.
type BatchEnd struct {
	Epoch        int
	Batch        int
	TotalBatches int
	TotalLoss    float64
	Losses       map[string]float64
	Metrics      map[string]float64
}

func (BatchEnd) Kind() Kind { return KindBatchEnd }

// EpochEnd fires after the epoch's minibatches, the reshuffle and the
// validation pass. Validation aggregates are zero-valued when no tester
// is configured (HasValidation false).
type EpochEnd struct {
	Epoch        int
	TotalEpochs  int
	TrainBatches int
	Model        backend.Module

	HasValidation       bool
	ValidationTotalLoss float64
	ValidationBatches   int
	ValidationLosses    map[string]float64
	ValidationMetrics   map[string]float64
}

func (EpochEnd) Kind() Kind { return KindEpochEnd }

// TrainingEnd fires after the final epoch, before the interactive
// continue-training prompt.
type TrainingEnd struct {
	Model backend.Module
}

func (TrainingEnd) Kind() Kind { return KindTrainingEnd }

// OverwatchComputed fires when the history layer has derived the
// watched scalar for a finished epoch.
type OverwatchComputed struct {
	Metric metric.Overwatch
	Model  backend.Module
}

func (OverwatchComputed) Kind() Kind { return KindOverwatchComputed }

// SaveModel requests an unconditional checkpoint write.
type SaveModel struct {
	Model backend.Module
}

func (SaveModel) Kind() Kind { return KindSaveModel }

// SavingRequired reports the outcome of each improvement check.
type SavingRequired struct {
	Required bool
}

func (SavingRequired) Kind() Kind { return KindSavingRequired }

// ModelSaved fires after a checkpoint write succeeds, whatever
// triggered it.
type ModelSaved struct {
	Path string
}

func (ModelSaved) Kind() Kind { return KindModelSaved }

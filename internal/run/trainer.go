package run

import (
	"fmt"
	"strconv"

	"traind/internal/backend"
	"traind/internal/bus"
	"traind/internal/callback"
	"traind/internal/data"
	"traind/internal/notify"
)

// Phase is the trainer's lifecycle state.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseRunningEpoch
	PhaseRunningBatch
	PhaseEpochComplete
	PhaseTrainingComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseRunningEpoch:
		return "running_epoch"
	case PhaseRunningBatch:
		return "running_batch"
	case PhaseEpochComplete:
		return "epoch_complete"
	case PhaseTrainingComplete:
		return "training_complete"
	default:
		return "unknown"
	}
}

// Trainer drives the epoch/batch loop: one optimizer step per
// minibatch, an optional validation pass per epoch, lifecycle signals
// on the bus at every transition. A finished run can be extended from
// the continue prompt without resetting model or optimizer state.
type Trainer struct {
	bus   *bus.Bus
	notif *notify.Notifier

	model backend.Module
	optim backend.Optimizer
	eval  Evaluator

	dataset    data.Dataset
	validation *Tester
	callbacks  *callback.Callbacks

	batchSize int
	workers   int
	shuffle   data.ShuffleMode

	phase        Phase
	currentEpoch int
	initialEpoch int
	totalEpochs  int
	started      bool
}

// TrainerParams configures a Trainer. Validation and Callbacks may be
// nil.
type TrainerParams struct {
	Model     backend.Module
	Optimizer backend.Optimizer
	Evaluator Evaluator

	Dataset    data.Dataset
	Validation *Tester
	Callbacks  *callback.Callbacks

	BatchSize    int
	Workers      int
	Shuffle      data.ShuffleMode
	InitialEpoch int
	TotalEpochs  int
}

// NewTrainer validates the loop parameters and builds a Trainer in the
// not-started phase.
func NewTrainer(b *bus.Bus, n *notify.Notifier, p TrainerParams) (*Trainer, error) {
	if p.BatchSize <= 0 {
		return nil, fmt.Errorf("trainer: batch size must be positive, got %d", p.BatchSize)
	}
	if p.TotalEpochs <= 0 {
		return nil, fmt.Errorf("trainer: total epochs must be positive, got %d", p.TotalEpochs)
	}
	if p.InitialEpoch <= 0 {
		p.InitialEpoch = 1
	}
	if p.Workers <= 0 {
		p.Workers = 1
	}
	return &Trainer{
		bus:          b,
		notif:        n,
		model:        p.Model,
		optim:        p.Optimizer,
		eval:         p.Evaluator,
		dataset:      p.Dataset,
		validation:   p.Validation,
		callbacks:    p.Callbacks,
		batchSize:    p.BatchSize,
		workers:      p.Workers,
		shuffle:      p.Shuffle,
		phase:        PhaseNotStarted,
		initialEpoch: p.InitialEpoch,
		totalEpochs:  p.TotalEpochs,
	}, nil
}

// Status is a snapshot of the loop for the status API.
type Status struct {
	Phase           Phase
	Epoch           int
	TotalEpochs     int
	BatchesPerEpoch int
}

// Status reports the trainer's current position in the loop.
func (t *Trainer) Status() Status {
	return Status{
		Phase:           t.phase,
		Epoch:           t.currentEpoch,
		TotalEpochs:     t.totalEpochs,
		BatchesPerEpoch: data.NumBatches(t.dataset.Len(), t.batchSize),
	}
}

// Fit runs the training loop to completion. After the final epoch it
// pauses the callbacks and offers to extend the run; a positive epoch
// count resumes the loop with all state preserved. Calling Fit again
// on a finished trainer re-enters the same extension flow.
func (t *Trainer) Fit() error {
	if !t.started {
		t.started = true
		t.currentEpoch = t.initialEpoch
		t.bus.Publish(bus.TrainingStart{})
	}
	for {
		stopped := false
		for t.currentEpoch <= t.totalEpochs {
			if err := t.runEpoch(); err != nil {
				return err
			}
			t.currentEpoch++
			if t.callbacks != nil && t.callbacks.ShouldStop() {
				stopped = true
				break
			}
		}
		t.phase = PhaseTrainingComplete
		t.bus.Publish(bus.TrainingEnd{Model: t.model})
		if t.callbacks != nil {
			t.callbacks.Pause()
		}
		if stopped {
			return nil
		}
		more := t.promptContinue()
		if more <= 0 {
			return nil
		}
		t.totalEpochs += more
	}
}

func (t *Trainer) runEpoch() error {
	t.phase = PhaseRunningEpoch
	t.bus.Publish(bus.EpochStart{Epoch: t.currentEpoch, TotalEpochs: t.totalEpochs})

	total := data.NumBatches(t.dataset.Len(), t.batchSize)
	pf := data.Prefetch(t.dataset, t.batchSize, t.workers)
	defer pf.Close()
	index := 0
	for {
		batch, ok := pf.Next()
		if !ok {
			break
		}
		index++
		t.phase = PhaseRunningBatch
		if err := t.trainBatch(batch, index, total); err != nil {
			return err
		}
	}
	if err := pf.Err(); err != nil {
		return fmt.Errorf("epoch %d: %w", t.currentEpoch, err)
	}

	t.phase = PhaseEpochComplete
	t.dataset.Shuffle(t.shuffle)
	t.dataset.Reset()

	end := bus.EpochEnd{
		Epoch:        t.currentEpoch,
		TotalEpochs:  t.totalEpochs,
		TrainBatches: total,
		Model:        t.model,
	}
	if t.validation != nil {
		res, err := t.validation.Run()
		if err != nil {
			return fmt.Errorf("validation after epoch %d: %w", t.currentEpoch, err)
		}
		end.HasValidation = true
		end.ValidationTotalLoss = res.TotalLoss
		end.ValidationBatches = res.Batches
		end.ValidationLosses = res.Losses
		end.ValidationMetrics = res.Metrics
	}
	t.bus.Publish(end)
	return nil
}

// trainBatch performs one optimizer step. Only detached scalars cross
// into the batch-end signal.
func (t *Trainer) trainBatch(b data.Batch, index, total int) error {
	t.optim.ZeroGrad()
	res, err := t.eval.evaluate(t.model, b)
	if err != nil {
		return fmt.Errorf("batch %d/%d of epoch %d: %w", index, total, t.currentEpoch, err)
	}
	if err := res.objective.Backward(); err != nil {
		return fmt.Errorf("backward on batch %d of epoch %d: %w", index, t.currentEpoch, err)
	}
	t.optim.Step()
	t.bus.Publish(bus.BatchEnd{
		Epoch:        t.currentEpoch,
		Batch:        index,
		TotalBatches: total,
		TotalLoss:    res.total,
		Losses:       res.losses,
		Metrics:      res.metrics,
	})
	return nil
}

// promptContinue asks whether to extend the finished run and for how
// many epochs. Invalid answers re-prompt; a closed input stream ends
// the session.
func (t *Trainer) promptContinue() int {
	yes, err := t.notif.YesNo("continue training?")
	if err != nil {
		t.notif.Info("input closed, ending the training session")
		return 0
	}
	if !yes {
		return 0
	}
	for {
		answer, err := t.notif.Input("how many more epochs?")
		if err != nil {
			t.notif.Info("input closed, ending the training session")
			return 0
		}
		n, err := strconv.Atoi(answer)
		if err != nil || n <= 0 {
			t.notif.Warning("please enter a positive whole number")
			continue
		}
		return n
	}
}

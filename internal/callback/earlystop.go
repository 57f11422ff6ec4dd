package callback

import (
	"traind/internal/bus"
	"traind/internal/metric"
	"traind/internal/notify"
)

// EarlyStopping stops training after `patience` epochs without
// overwatch improvement. Patience <= 0 disables it.
type EarlyStopping struct {
	patience  int
	best      *metric.Overwatch
	badEpochs int
	stopped   bool
	notif     *notify.Notifier
}

// NewEarlyStopping subscribes an EarlyStopping on b.
func NewEarlyStopping(b *bus.Bus, n *notify.Notifier, patience int) *EarlyStopping {
	e := &EarlyStopping{patience: patience, notif: n}
	bus.On(b, e.onOverwatchComputed)
	return e
}

func (e *EarlyStopping) onOverwatchComputed(ev bus.OverwatchComputed) {
	if e.patience <= 0 || e.stopped {
		return
	}
	if e.best == nil {
		best := ev.Metric
		e.best = &best
		return
	}
	improved, err := ev.Metric.ImprovesOn(*e.best)
	if err != nil {
		e.notif.Fatal("early stopping: %v", err)
		return
	}
	if improved {
		best := ev.Metric
		e.best = &best
		e.badEpochs = 0
		return
	}
	e.badEpochs++
	if e.badEpochs >= e.patience {
		e.stopped = true
		e.notif.Warning("early stopping: %s did not improve for %d epochs", ev.Metric.Name, e.badEpochs)
	}
}

// Stopped reports whether training should halt.
func (e *EarlyStopping) Stopped() bool { return e.stopped }

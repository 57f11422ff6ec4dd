package callback

import (
	"fmt"

	"traind/internal/backend"
	"traind/internal/bus"
	"traind/internal/common/fsutil"
	"traind/internal/metric"
	"traind/internal/notify"
)

// SavePolicy decides when the model is persisted. Fixed for the
// Saver's lifetime.
type SavePolicy int

const (
	SaveEveryEpoch SavePolicy = iota
	SaveOnImprovement
	SaveOnTrainingEnd
)

// ParseSavePolicy maps a config string onto a SavePolicy.
func ParseSavePolicy(s string) (SavePolicy, error) {
	switch s {
	case "every_epoch", "end_epoch":
		return SaveEveryEpoch, nil
	case "on_improvement", "auto", "":
		return SaveOnImprovement, nil
	case "on_training_end", "end_training":
		return SaveOnTrainingEnd, nil
	default:
		return 0, fmt.Errorf("unknown save policy: %q", s)
	}
}

// Saver tracks the best-seen overwatch metric and persists the model
// per its policy. It registers its own subscriptions at construction:
// metric-computed, training-end and explicit save requests.
type Saver struct {
	name   string
	dir    string
	policy SavePolicy
	format backend.Format

	best  *metric.Overwatch
	saves int
	bus   *bus.Bus
	notif *notify.Notifier
}

// SaverParams configures a Saver.
type SaverParams struct {
	Name   string
	Dir    string
	Policy SavePolicy
	Format backend.Format
}

// NewSaver subscribes a Saver on b.
func NewSaver(b *bus.Bus, n *notify.Notifier, p SaverParams) (*Saver, error) {
	if err := fsutil.EnsureDir(p.Dir); err != nil {
		return nil, fmt.Errorf("checkpoint dir: %w", err)
	}
	s := &Saver{
		name:   p.Name,
		dir:    p.Dir,
		policy: p.Policy,
		format: p.Format,
		bus:    b,
		notif:  n,
	}
	bus.On(b, func(e bus.OverwatchComputed) { s.onOverwatchComputed(b, e) })
	bus.On(b, s.onTrainingEnd)
	bus.On(b, func(e bus.SaveModel) { s.Save(e.Model) })
	return s, nil
}

// onOverwatchComputed applies the policy to one metric observation and
// reports the decision with a saving-required signal.
func (s *Saver) onOverwatchComputed(b *bus.Bus, e bus.OverwatchComputed) {
	required := false
	switch s.policy {
	case SaveEveryEpoch:
		required = true
	case SaveOnImprovement:
		if s.best == nil {
			// The first observation only establishes the baseline.
			best := e.Metric
			s.best = &best
		} else {
			improved, err := e.Metric.ImprovesOn(*s.best)
			if err != nil {
				s.notif.Fatal("saver: %v", err)
				return
			}
			if improved {
				best := e.Metric
				s.best = &best
				required = true
			}
		}
	case SaveOnTrainingEnd:
		// saving happens on the training-end signal
	default:
		s.notif.Fatal("saver: unknown save policy %d", int(s.policy))
		return
	}
	b.Emit(bus.SavingRequired{Required: required})
	if required {
		s.Save(e.Model)
	}
}

func (s *Saver) onTrainingEnd(e bus.TrainingEnd) {
	if s.policy == SaveOnTrainingEnd {
		s.Save(e.Model)
	}
}

// Save persists the model, fully overwriting the target path. On
// failure it enters the interactive recovery flow; on success it
// reports through the notification channel.
func (s *Saver) Save(model backend.Module) {
	path, err := backend.SaveState(model, s.dir, s.name, s.format)
	if err != nil {
		s.notif.Error("error while saving the model: %v", err)
		s.recover(model)
		return
	}
	s.saves++
	s.bus.Emit(bus.ModelSaved{Path: path})
	s.notif.Success("model and weights saved to %s", path)
}

// recover walks the interactive decision tree after a failed save:
// retry, change format, or confirm aborting the process.
func (s *Saver) recover(model backend.Module) {
	s.notif.Error("please make sure you have write permission for %s", s.dir)
	retry, err := s.notif.YesNo("would you like to try the save again?")
	if err != nil {
		s.notif.Fatal("saver: reading recovery answer: %v", err)
		return
	}
	if retry {
		s.Save(model)
		return
	}
	change, err := s.notif.YesNo("would you like to save in another format?")
	if err != nil {
		s.notif.Fatal("saver: reading recovery answer: %v", err)
		return
	}
	if change {
		answer, err := s.notif.Choice("what format would you like to save?", "model", "json")
		if err != nil {
			s.notif.Fatal("saver: reading recovery answer: %v", err)
			return
		}
		format, err := backend.ParseFormat(answer)
		if err != nil {
			s.notif.Fatal("saver: %v", err)
			return
		}
		s.format = format
		s.Save(model)
		return
	}
	s.notif.Warning("you will lose the unsaved model if the session is closed")
	abort, err := s.notif.YesNo("are you sure you want to close the session?")
	if err != nil {
		s.notif.Fatal("saver: reading recovery answer: %v", err)
		return
	}
	if abort {
		s.notif.Fatal("aborting after failed checkpoint save")
		return
	}
	s.recover(model)
}

// Best returns the best overwatch metric seen, if any.
func (s *Saver) Best() (metric.Overwatch, bool) {
	if s.best == nil {
		return metric.Overwatch{}, false
	}
	return *s.best, true
}

// Saves is the number of successful checkpoint writes.
func (s *Saver) Saves() int { return s.saves }

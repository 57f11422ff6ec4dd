package callback

import (
	"traind/internal/backend"
	"traind/internal/bus"
	"traind/internal/metric"
	"traind/internal/notify"
)

// Callbacks composes history, the checkpoint saver and early stopping
// into the lifecycle facade the trainer drives. Each component
// subscribes itself on the shared bus during construction.
type Callbacks struct {
	History *History
	Saver   *Saver
	Early   *EarlyStopping
}

// Params configures the whole callback stack.
type Params struct {
	ModelName string

	HistoryDir  string
	Memorize    int
	LossNames   []string
	MetricNames []string
	Overwatch   string
	Comparison  metric.Comparison

	SaveDir    string
	SavePolicy SavePolicy
	SaveFormat backend.Format

	Patience int
}

// New builds and subscribes the callback stack on b.
func New(b *bus.Bus, n *notify.Notifier, p Params) (*Callbacks, error) {
	history, err := NewHistory(b, n, HistoryParams{
		Dir:         p.HistoryDir,
		ModelName:   p.ModelName,
		LossNames:   p.LossNames,
		MetricNames: p.MetricNames,
		Memorize:    p.Memorize,
		Overwatch:   p.Overwatch,
		Comparison:  p.Comparison,
	})
	if err != nil {
		return nil, err
	}
	saver, err := NewSaver(b, n, SaverParams{
		Name:   p.ModelName,
		Dir:    p.SaveDir,
		Policy: p.SavePolicy,
		Format: p.SaveFormat,
	})
	if err != nil {
		history.Close()
		return nil, err
	}
	return &Callbacks{
		History: history,
		Saver:   saver,
		Early:   NewEarlyStopping(b, n, p.Patience),
	}, nil
}

// ShouldStop reports whether early stopping fired.
func (c *Callbacks) ShouldStop() bool { return c.Early.Stopped() }

// Pause suspends time-accumulating callbacks after training ends.
func (c *Callbacks) Pause() { c.History.Pause() }

// Close releases the history logs.
func (c *Callbacks) Close() error { return c.History.Close() }

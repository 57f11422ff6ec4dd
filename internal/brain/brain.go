// Package brain owns a training session: the configuration lifecycle,
// construction of the bus, datasets, model and trainer, the REPL and
// the optional status HTTP server.
package brain

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"traind/internal/backend"
	"traind/internal/backend/dense"
	"traind/internal/bus"
	"traind/internal/callback"
	"traind/internal/common/fsutil"
	"traind/internal/config"
	"traind/internal/data"
	"traind/internal/httpapi"
	"traind/internal/metric"
	"traind/internal/notify"
	"traind/internal/run"
)

// configExtensions in lookup order, per section file.
var configExtensions = []string{".yaml", ".yml", ".json", ".toml"}

// Brain is the top-level session object.
type Brain struct {
	configDir string
	sections  map[string]*config.Namespace
	stored    map[string]*config.Namespace
	cfg       config.Config

	bus   *bus.Bus
	notif *notify.Notifier

	model     *dense.Linear
	trainer   *run.Trainer
	validator *run.Tester
	trainEval *run.Tester
	callbacks *callback.Callbacks

	server *http.Server

	startedAt time.Time
	built     bool
}

// New loads and checks the configuration under configDir and builds
// the session components.
func New(configDir string, n *notify.Notifier) (*Brain, error) {
	dir, err := fsutil.ExpandHome(configDir)
	if err != nil {
		return nil, err
	}
	b := &Brain{
		configDir: dir,
		bus:       bus.New(),
		notif:     n,
		startedAt: time.Now(),
	}
	if err := b.LoadConfig(); err != nil {
		return nil, err
	}
	b.CheckConfig()
	if err := b.build(); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadConfig reads every section file found under the config directory.
// Missing sections start empty and are backfilled by CheckConfig.
func (b *Brain) LoadConfig() error {
	sections := make(map[string]*config.Namespace, len(config.SectionNames))
	for _, name := range config.SectionNames {
		ns, err := b.loadSection(name)
		if err != nil {
			return err
		}
		sections[name] = ns
	}
	b.sections = sections
	b.notif.Info("configuration loaded from %s", b.configDir)
	return nil
}

func (b *Brain) loadSection(name string) (*config.Namespace, error) {
	for _, ext := range configExtensions {
		path := filepath.Join(b.configDir, name+ext)
		if !fsutil.PathExists(path) {
			continue
		}
		ns, err := config.LoadNamespace(path)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", name, err)
		}
		return ns, nil
	}
	return config.NewNamespace(), nil
}

// CheckConfig validates every section against its schema, substituting
// defaults with a warning for anything missing or mistyped, then
// decodes the typed view.
func (b *Brain) CheckConfig() {
	for _, name := range config.SectionNames {
		config.Check(b.sections[name], config.Sections[name], b.notif.Warning)
	}
	b.cfg = config.Decode(b.sections)
	b.notif.Success("configuration checked")
}

// StoreConfig snapshots the current configuration tree.
func (b *Brain) StoreConfig() {
	stored := make(map[string]*config.Namespace, len(b.sections))
	for name, ns := range b.sections {
		stored[name] = ns.Copy()
	}
	b.stored = stored
	b.notif.Success("configuration stored")
}

// RestoreConfig replaces the configuration with the stored snapshot.
func (b *Brain) RestoreConfig() {
	if b.stored == nil {
		b.notif.Warning("no stored configuration to restore")
		return
	}
	sections := make(map[string]*config.Namespace, len(b.stored))
	for name, ns := range b.stored {
		sections[name] = ns.Copy()
	}
	b.sections = sections
	b.cfg = config.Decode(b.sections)
	b.notif.Success("configuration restored")
}

// ClearConfig resets every section to its declared defaults.
func (b *Brain) ClearConfig() {
	b.sections = make(map[string]*config.Namespace, len(config.SectionNames))
	for _, name := range config.SectionNames {
		b.sections[name] = config.NewNamespace()
	}
	b.CheckConfig()
	b.notif.Success("configuration cleared")
}

// SaveConfig writes every section back to the config directory as YAML.
func (b *Brain) SaveConfig() error {
	if err := fsutil.EnsureDir(b.configDir); err != nil {
		return err
	}
	for _, name := range config.SectionNames {
		path := filepath.Join(b.configDir, name+".yaml")
		if err := b.sections[name].Save(path); err != nil {
			return fmt.Errorf("save section %s: %w", name, err)
		}
	}
	b.notif.Success("configuration saved to %s", b.configDir)
	return nil
}

// ConfigSummary renders the whole configuration tree.
func (b *Brain) ConfigSummary() string {
	out := ""
	for _, name := range config.SectionNames {
		out += name + ":\n" + indent(b.sections[name].Summary())
	}
	return out
}

func indent(s string) string {
	if s == "" {
		return s
	}
	out := ""
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '\n' {
			if i > start {
				out += "  " + s[start:i] + "\n"
			}
			start = i + 1
		}
	}
	return out
}

func stackRows(rows [][]float64) (backend.Tensor, error) {
	return dense.FromRows(rows)
}

// build constructs the session from the checked configuration: the
// datasets, the model sized from the training data, the callback stack
// and the trainer.
func (b *Brain) build() error {
	cfg := b.cfg
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	dataDir, err := fsutil.ExpandHome(cfg.Data.Dir)
	if err != nil {
		return err
	}
	trainSet, err := data.LoadCSV(filepath.Join(dataDir, cfg.Data.Train+".csv"), cfg.Data.LabelWidth, stackRows, rng)
	if err != nil {
		return fmt.Errorf("training data: %w", err)
	}
	probe, err := trainSet.Batch(0, 1)
	if err != nil {
		return fmt.Errorf("training data: %w", err)
	}
	inWidth := probe.Inputs[0].Shape()[1]
	trainSet.Reset()

	b.model = dense.NewLinear(inWidth, cfg.Data.LabelWidth, rng)
	optim := dense.NewSGD(b.model, cfg.Training.LearningRate)

	weight := 1.0
	if len(cfg.Training.LossWeights) > 0 {
		weight = cfg.Training.LossWeights[0]
	}
	eval := run.NewEvaluator(
		[]metric.Loss{{Name: "mse", Weight: weight, Fn: dense.MSE(b.model)}},
		[]metric.Metric{{Name: "mae", Fn: dense.MAE()}},
	)

	if cfg.Data.Validation != "" {
		valSet, err := data.LoadCSV(filepath.Join(dataDir, cfg.Data.Validation+".csv"), cfg.Data.LabelWidth, stackRows, rng)
		if err != nil {
			return fmt.Errorf("validation data: %w", err)
		}
		b.validator = run.NewTester(b.model, valSet, eval, cfg.Data.BatchSize)
	}
	b.trainEval = run.NewTester(b.model, trainSet, eval, cfg.Data.BatchSize)

	comparison, err := metric.ParseComparison(cfg.History.Condition)
	if err != nil {
		return err
	}
	policy, err := callback.ParseSavePolicy(cfg.Saver.Policy)
	if err != nil {
		return err
	}
	format, err := backend.ParseFormat(cfg.Saver.Format)
	if err != nil {
		return err
	}
	shuffle, err := data.ParseShuffleMode(cfg.Data.Shuffle)
	if err != nil {
		return err
	}

	b.callbacks, err = callback.New(b.bus, b.notif, callback.Params{
		ModelName:   cfg.Project.Name,
		HistoryDir:  cfg.History.Dir,
		Memorize:    cfg.History.Memorize,
		LossNames:   []string{"mse"},
		MetricNames: []string{"mae"},
		Overwatch:   cfg.History.Overwatch,
		Comparison:  comparison,
		SaveDir:     cfg.Saver.Dir,
		SavePolicy:  policy,
		SaveFormat:  format,
		Patience:    cfg.Training.Patience,
	})
	if err != nil {
		return err
	}

	b.trainer, err = run.NewTrainer(b.bus, b.notif, run.TrainerParams{
		Model:        b.model,
		Optimizer:    optim,
		Evaluator:    eval,
		Dataset:      trainSet,
		Validation:   b.validator,
		Callbacks:    b.callbacks,
		BatchSize:    cfg.Data.BatchSize,
		Workers:      cfg.Data.Workers,
		Shuffle:      shuffle,
		InitialEpoch: cfg.Training.InitialEpoch,
		TotalEpochs:  cfg.Training.Epochs,
	})
	if err != nil {
		return err
	}

	httpapi.ObserveBus(b.bus)
	b.built = true
	return nil
}

// Train runs the training loop to completion.
func (b *Brain) Train() error {
	return b.trainer.Fit()
}

// Test runs one forward-only pass. It prefers the validation set and
// falls back to the training set.
func (b *Brain) Test() error {
	tester := b.validator
	if tester == nil {
		b.notif.Warning("no validation set configured, evaluating on the training data")
		tester = b.trainEval
	}
	res, err := tester.Run()
	if err != nil {
		return err
	}
	b.notif.Result("evaluation over %d batches: total_loss=%g", res.Batches, res.TotalLoss)
	for name, v := range res.Losses {
		b.notif.Result("  loss %s = %g", name, v)
	}
	for name, v := range res.Metrics {
		b.notif.Result("  metric %s = %g", name, v)
	}
	return nil
}

// Serve starts the status HTTP server on the configured address. The
// listener is bound before Serve returns, so an unusable address is an
// immediate error rather than a background one.
func (b *Brain) Serve() error {
	if b.server != nil {
		b.notif.Warning("server already running on %s", b.server.Addr)
		return nil
	}
	if b.cfg.Server.CORSEnabled {
		httpapi.SetCORSOptions(true, b.cfg.Server.CORSOrigins, nil, nil)
	}
	ln, err := net.Listen("tcp", b.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("status server: %w", err)
	}
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           httpapi.NewMux(b),
		ReadHeaderTimeout: 5 * time.Second,
	}
	b.server = srv
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			b.notif.Error("status server: %v", err)
			b.server = nil
		}
	}()
	b.notif.Success("status server listening on %s", srv.Addr)
	return nil
}

// Sleep shuts the session down: stops the server and closes the
// history logs.
func (b *Brain) Sleep() {
	if b.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := b.server.Shutdown(ctx); err != nil {
			b.notif.Error("server shutdown: %v", err)
		}
		cancel()
		b.server = nil
	}
	if b.callbacks != nil {
		if err := b.callbacks.Close(); err != nil {
			b.notif.Error("closing history logs: %v", err)
		}
	}
	b.notif.Info("session closed")
}

// Bus exposes the session's event bus.
func (b *Brain) Bus() *bus.Bus { return b.bus }

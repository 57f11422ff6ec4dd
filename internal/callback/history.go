// Package callback holds the lifecycle receivers driven by the event
// bus: history logging, checkpoint saving and early stopping, composed
// behind one aggregator the trainer constructs.
package callback

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"traind/internal/bus"
	"traind/internal/common/fsutil"
	"traind/internal/metric"
	"traind/internal/notify"
	"traind/pkg/types"
)

// History log names served by the status API.
const (
	LogTrainBatches = "train_batches"
	LogTrainEpochs  = "train_epochs"
	LogValidation   = "validation"
)

// History accumulates per-batch and per-epoch losses/metrics, persists
// every row to its append-only logs and derives the overwatch metric at
// each epoch end. It registers its own subscriptions at construction.
type History struct {
	lossNames   []string
	metricNames []string
	memorize    int

	overwatchName string
	comparison    metric.Comparison

	trainBatches *csvLog
	trainEpochs  *csvLog
	validation   *csvLog

	notif *notify.Notifier

	// bounded in-memory windows for display and the status API
	batchWindow []types.HistoryRow
	epochRows   []types.HistoryRow
	valRows     []types.HistoryRow

	// per-epoch accumulators, reset at every epoch start
	epochLossRows   []map[string]float64
	epochMetricRows []map[string]float64
	epochTotals     []float64

	paused bool

	now func() time.Time
}

// HistoryParams configures a History.
type HistoryParams struct {
	Dir         string
	ModelName   string
	LossNames   []string
	MetricNames []string
	Memorize    int
	// Overwatch is the name of the watched scalar ("total_loss" or a
	// configured loss/metric name) and Comparison its direction.
	Overwatch  string
	Comparison metric.Comparison
}

// NewHistory opens the three timestamped logs and subscribes to the
// lifecycle events on b. Log write failures are reported through n;
// the affected row is lost but training continues.
func NewHistory(b *bus.Bus, n *notify.Notifier, p HistoryParams) (*History, error) {
	if err := fsutil.EnsureDir(p.Dir); err != nil {
		return nil, fmt.Errorf("history dir: %w", err)
	}
	if p.Memorize <= 0 {
		p.Memorize = 100
	}
	stamp := time.Now().Format(fsutil.TimestampLayout)
	h := &History{
		lossNames:     append([]string(nil), p.LossNames...),
		metricNames:   append([]string(nil), p.MetricNames...),
		memorize:      p.Memorize,
		overwatchName: p.Overwatch,
		comparison:    p.Comparison,
		notif:         n,
		now:           time.Now,
	}
	sort.Strings(h.lossNames)
	sort.Strings(h.metricNames)

	header := append([]string{"timestamp", "epoch", "batch", "total_loss"}, append(h.lossNames, h.metricNames...)...)
	var err error
	if h.trainBatches, err = newCSVLog(logPath(p.Dir, p.ModelName, LogTrainBatches, stamp), header); err != nil {
		return nil, err
	}
	if h.trainEpochs, err = newCSVLog(logPath(p.Dir, p.ModelName, LogTrainEpochs, stamp), header); err != nil {
		h.trainBatches.Close()
		return nil, err
	}
	if h.validation, err = newCSVLog(logPath(p.Dir, p.ModelName, LogValidation, stamp), header); err != nil {
		h.trainBatches.Close()
		h.trainEpochs.Close()
		return nil, err
	}

	bus.On(b, h.onEpochStart)
	bus.On(b, h.onBatchEnd)
	bus.On(b, func(e bus.EpochEnd) { h.onEpochEnd(b, e) })
	bus.On(b, h.onTrainingEnd)
	return h, nil
}

func logPath(dir, name, log, stamp string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_history_%s_%s.csv", name, log, stamp))
}

func (h *History) onEpochStart(e bus.EpochStart) {
	h.epochLossRows = nil
	h.epochMetricRows = nil
	h.epochTotals = nil
	h.paused = false
}

func (h *History) onBatchEnd(e bus.BatchEnd) {
	row := types.HistoryRow{
		Epoch:     e.Epoch,
		Batch:     e.Batch,
		TotalLoss: e.TotalLoss,
		Losses:    e.Losses,
		Metrics:   e.Metrics,
		Timestamp: h.now(),
	}
	h.batchWindow = append(h.batchWindow, row)
	if len(h.batchWindow) > h.memorize {
		h.batchWindow = h.batchWindow[len(h.batchWindow)-h.memorize:]
	}
	h.epochLossRows = append(h.epochLossRows, e.Losses)
	h.epochMetricRows = append(h.epochMetricRows, e.Metrics)
	h.epochTotals = append(h.epochTotals, e.TotalLoss)

	if err := h.trainBatches.Append(h.record(row)); err != nil {
		h.notif.Error("history: %v", err)
	}
}

func (h *History) onEpochEnd(b *bus.Bus, e bus.EpochEnd) {
	lossMeans := metric.Means(h.epochLossRows)
	metricMeans := metric.Means(h.epochMetricRows)
	total := 0.0
	for _, v := range h.epochTotals {
		total += v
	}
	if len(h.epochTotals) > 0 {
		total /= float64(len(h.epochTotals))
	}
	epochRow := types.HistoryRow{
		Epoch:     e.Epoch,
		TotalLoss: total,
		Losses:    lossMeans,
		Metrics:   metricMeans,
		Timestamp: h.now(),
	}
	h.epochRows = appendBounded(h.epochRows, epochRow, h.memorize)
	if err := h.trainEpochs.Append(h.record(epochRow)); err != nil {
		h.notif.Error("history: %v", err)
	}

	watched := h.lookupOverwatch(total, lossMeans, metricMeans)
	if e.HasValidation {
		valRow := types.HistoryRow{
			Epoch:     e.Epoch,
			TotalLoss: e.ValidationTotalLoss,
			Losses:    e.ValidationLosses,
			Metrics:   e.ValidationMetrics,
			Timestamp: h.now(),
		}
		h.valRows = appendBounded(h.valRows, valRow, h.memorize)
		if err := h.validation.Append(h.record(valRow)); err != nil {
			h.notif.Error("history: %v", err)
		}
		// validation is the better improvement signal when available
		watched = h.lookupOverwatch(e.ValidationTotalLoss, e.ValidationLosses, e.ValidationMetrics)
	}

	b.Emit(bus.OverwatchComputed{
		Metric: metric.Overwatch{Name: h.overwatchName, Comparison: h.comparison, Value: watched},
		Model:  e.Model,
	})
}

func (h *History) onTrainingEnd(bus.TrainingEnd) {
	h.Pause()
}

// Pause stops the epoch timer accumulation; the next epoch start
// resumes it.
func (h *History) Pause() { h.paused = true }

// Paused reports whether time accumulation is paused.
func (h *History) Paused() bool { return h.paused }

// Overwatch returns the configured overwatch metric name and direction.
func (h *History) Overwatch() (string, metric.Comparison) {
	return h.overwatchName, h.comparison
}

func (h *History) lookupOverwatch(total float64, losses, metrics map[string]float64) float64 {
	if h.overwatchName == "total_loss" || h.overwatchName == "" {
		return total
	}
	if v, ok := losses[h.overwatchName]; ok {
		return v
	}
	if v, ok := metrics[h.overwatchName]; ok {
		return v
	}
	return total
}

// Recent returns up to n most recent rows of the named log.
func (h *History) Recent(log string, n int) []types.HistoryRow {
	var src []types.HistoryRow
	switch log {
	case LogTrainBatches:
		src = h.batchWindow
	case LogTrainEpochs:
		src = h.epochRows
	case LogValidation:
		src = h.valRows
	default:
		return nil
	}
	if n <= 0 || n > len(src) {
		n = len(src)
	}
	out := make([]types.HistoryRow, n)
	copy(out, src[len(src)-n:])
	return out
}

// Close flushes and closes the three logs.
func (h *History) Close() error {
	err := h.trainBatches.Close()
	if e := h.trainEpochs.Close(); err == nil {
		err = e
	}
	if e := h.validation.Close(); err == nil {
		err = e
	}
	return err
}

func (h *History) record(row types.HistoryRow) []string {
	rec := []string{
		row.Timestamp.Format(time.RFC3339),
		strconv.Itoa(row.Epoch),
		strconv.Itoa(row.Batch),
		formatFloat(row.TotalLoss),
	}
	for _, name := range h.lossNames {
		rec = append(rec, formatFloat(row.Losses[name]))
	}
	for _, name := range h.metricNames {
		rec = append(rec, formatFloat(row.Metrics[name]))
	}
	return rec
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func appendBounded(rows []types.HistoryRow, row types.HistoryRow, bound int) []types.HistoryRow {
	rows = append(rows, row)
	if len(rows) > bound {
		rows = rows[len(rows)-bound:]
	}
	return rows
}

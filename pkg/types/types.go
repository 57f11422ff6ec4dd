package types

import "time"

// SessionInfo identifies a training session.
type SessionInfo struct {
	// Model name used for checkpoint and history filenames.
	// example: mnist-linear
	ModelName string `json:"model_name" example:"mnist-linear"`
	// Directory the session configuration was loaded from.
	ConfigDir string `json:"config_dir,omitempty"`
	// Session start time.
	StartedAt time.Time `json:"started_at"`
}

// StatusResponse is a read-only projection of the trainer state.
type StatusResponse struct {
	// Trainer phase: not_started, running_epoch, running_batch,
	// epoch_complete or training_complete.
	Phase string `json:"phase" example:"running_epoch"`
	// 1-based index of the epoch in progress (0 before training starts).
	Epoch int `json:"epoch"`
	// Total number of epochs requested so far (grows when training is extended).
	TotalEpochs int `json:"total_epochs"`
	// Number of minibatches per training epoch.
	BatchesPerEpoch int `json:"batches_per_epoch"`
	// Name and value of the best overwatch metric seen, if any.
	BestMetric      string  `json:"best_metric,omitempty" example:"total_loss"`
	BestMetricValue float64 `json:"best_metric_value,omitempty"`
	// Total checkpoints written this session.
	Checkpoints int `json:"checkpoints"`

	Session SessionInfo `json:"session"`
}

// ErrorResponse is the JSON error payload returned by the HTTP API.
type ErrorResponse struct {
	Error string `json:"error" example:"unknown history log"`
	Code  int    `json:"code" example:"404"`
}

// HistoryRow is one recorded loss/metric observation: one row per batch
// on the train-batch log, one aggregated row per epoch elsewhere.
type HistoryRow struct {
	Epoch     int                `json:"epoch"`
	Batch     int                `json:"batch,omitempty"`
	TotalLoss float64            `json:"total_loss"`
	Losses    map[string]float64 `json:"losses,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

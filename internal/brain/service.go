package brain

import (
	"traind/pkg/types"
)

// Status snapshots the session for the HTTP API.
func (b *Brain) Status() types.StatusResponse {
	st := b.trainer.Status()
	resp := types.StatusResponse{
		Phase:           st.Phase.String(),
		Epoch:           st.Epoch,
		TotalEpochs:     st.TotalEpochs,
		BatchesPerEpoch: st.BatchesPerEpoch,
		Checkpoints:     b.callbacks.Saver.Saves(),
		Session: types.SessionInfo{
			ModelName: b.cfg.Project.Name,
			ConfigDir: b.configDir,
			StartedAt: b.startedAt,
		},
	}
	if best, ok := b.callbacks.Saver.Best(); ok {
		resp.BestMetric = best.Name
		resp.BestMetricValue = best.Value
	}
	return resp
}

// History returns recent rows of the named log.
func (b *Brain) History(log string, n int) []types.HistoryRow {
	return b.callbacks.History.Recent(log, n)
}

// Ready reports whether the session finished constructing.
func (b *Brain) Ready() bool { return b.built }

// Package data provides the dataset contract the training core
// consumes: length, ordered minibatch access, epoch-boundary shuffling
// and per-epoch cache reset, plus an I/O prefetcher whose output the
// trainer still consumes synchronously one minibatch at a time.
package data

import (
	"fmt"

	"traind/internal/backend"
)

// ShuffleMode selects the reshuffling granularity applied between
// epochs.
type ShuffleMode int

const (
	ShuffleNone ShuffleMode = iota
	// ShuffleBatches permutes whole minibatch blocks, keeping each
	// block's internal order.
	ShuffleBatches
	// ShuffleAll permutes every sample.
	ShuffleAll
)

// ParseShuffleMode maps a config string onto a ShuffleMode.
func ParseShuffleMode(s string) (ShuffleMode, error) {
	switch s {
	case "none", "":
		return ShuffleNone, nil
	case "batches":
		return ShuffleBatches, nil
	case "all", "random":
		return ShuffleAll, nil
	default:
		return 0, fmt.Errorf("unknown shuffle mode: %q", s)
	}
}

// Batch is one fixed-arity minibatch tuple. Each field may hold zero,
// one or several tensors; the evaluator normalizes them with
// backend.ArgOf before loss and metric functions run.
type Batch struct {
	Inputs    []backend.Tensor
	Labels    []backend.Tensor
	Auxiliary []backend.Tensor
}

// Dataset is the dataloader contract.
type Dataset interface {
	// Len is the number of samples.
	Len() int
	// Batch returns minibatch i of the given size. The final batch may
	// be ragged.
	Batch(i, size int) (Batch, error)
	// Shuffle reorders samples per the mode's granularity.
	Shuffle(mode ShuffleMode)
	// Reset clears any intra-epoch cache.
	Reset()
}

// NumBatches is the batch count per epoch: ceil(length / batchSize).
func NumBatches(length, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	if length%batchSize == 0 {
		return length / batchSize
	}
	return length/batchSize + 1
}

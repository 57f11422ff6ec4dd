package data

import (
	"fmt"
	"math/rand"
	"sync"

	"traind/internal/backend"
)

// Stacker turns equal-length sample rows into one batched tensor. The
// backend supplies it so this package stays independent of any concrete
// tensor implementation.
type Stacker func(rows [][]float64) (backend.Tensor, error)

// InMemory is a dataset held fully in memory: one input row, one label
// row and an optional auxiliary row per sample.
type InMemory struct {
	mu sync.Mutex

	inputs [][]float64
	labels [][]float64
	aux    [][]float64

	stack Stacker
	rng   *rand.Rand

	order []int
	// cache memoizes stacked batches for the current epoch. Shuffle and
	// Reset invalidate it.
	cache map[cacheKey]Batch
	// lastBatchSize is remembered so ShuffleBatches knows the block
	// granularity. Zero falls back to a full shuffle.
	lastBatchSize int
}

type cacheKey struct{ i, size int }

// NewInMemory builds a dataset over the given rows. aux may be nil.
func NewInMemory(inputs, labels, aux [][]float64, stack Stacker, rng *rand.Rand) (*InMemory, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("data: empty dataset")
	}
	if len(labels) != len(inputs) {
		return nil, fmt.Errorf("data: %d inputs but %d labels", len(inputs), len(labels))
	}
	if aux != nil && len(aux) != len(inputs) {
		return nil, fmt.Errorf("data: %d inputs but %d auxiliary rows", len(inputs), len(aux))
	}
	if stack == nil {
		return nil, fmt.Errorf("data: nil stacker")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	order := make([]int, len(inputs))
	for i := range order {
		order[i] = i
	}
	return &InMemory{
		inputs: inputs,
		labels: labels,
		aux:    aux,
		stack:  stack,
		rng:    rng,
		order:  order,
		cache:  make(map[cacheKey]Batch),
	}, nil
}

func (d *InMemory) Len() int { return len(d.inputs) }

func (d *InMemory) Batch(i, size int) (Batch, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size <= 0 {
		return Batch{}, fmt.Errorf("data: invalid batch size %d", size)
	}
	n := NumBatches(len(d.inputs), size)
	if i < 0 || i >= n {
		return Batch{}, fmt.Errorf("data: batch index %d out of range [0,%d)", i, n)
	}
	d.lastBatchSize = size
	key := cacheKey{i: i, size: size}
	if b, ok := d.cache[key]; ok {
		return b, nil
	}

	lo := i * size
	hi := lo + size
	if hi > len(d.inputs) {
		hi = len(d.inputs) // ragged final batch
	}
	var inRows, labelRows, auxRows [][]float64
	for _, idx := range d.order[lo:hi] {
		inRows = append(inRows, d.inputs[idx])
		labelRows = append(labelRows, d.labels[idx])
		if d.aux != nil {
			auxRows = append(auxRows, d.aux[idx])
		}
	}
	b := Batch{}
	in, err := d.stack(inRows)
	if err != nil {
		return Batch{}, fmt.Errorf("data: stack inputs: %w", err)
	}
	b.Inputs = []backend.Tensor{in}
	lb, err := d.stack(labelRows)
	if err != nil {
		return Batch{}, fmt.Errorf("data: stack labels: %w", err)
	}
	b.Labels = []backend.Tensor{lb}
	if auxRows != nil {
		ax, err := d.stack(auxRows)
		if err != nil {
			return Batch{}, fmt.Errorf("data: stack auxiliary: %w", err)
		}
		b.Auxiliary = []backend.Tensor{ax}
	}
	d.cache[key] = b
	return b, nil
}

func (d *InMemory) Shuffle(mode ShuffleMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch mode {
	case ShuffleNone:
		return
	case ShuffleAll:
		d.rng.Shuffle(len(d.order), func(i, j int) {
			d.order[i], d.order[j] = d.order[j], d.order[i]
		})
	case ShuffleBatches:
		size := d.lastBatchSize
		if size <= 0 {
			d.rng.Shuffle(len(d.order), func(i, j int) {
				d.order[i], d.order[j] = d.order[j], d.order[i]
			})
			break
		}
		n := NumBatches(len(d.order), size)
		blocks := d.rng.Perm(n)
		next := make([]int, 0, len(d.order))
		for _, blk := range blocks {
			lo := blk * size
			hi := lo + size
			if hi > len(d.order) {
				hi = len(d.order)
			}
			next = append(next, d.order[lo:hi]...)
		}
		d.order = next
	}
	d.cache = make(map[cacheKey]Batch)
}

func (d *InMemory) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cache = make(map[cacheKey]Batch)
}

package data

import (
	"sync"
	"sync/atomic"
)

// Prefetcher pulls minibatches ahead of the consumer with a small
// worker pool. Output is still consumed strictly in index order, one
// batch at a time: batch i+1 may be fetched while the trainer works on
// batch i, but the trainer never sees them out of order.
type Prefetcher struct {
	results chan indexed
	done    chan struct{}
	once    sync.Once
	pending map[int]indexed
	next    int
	total   int
	err     error
}

type indexed struct {
	i   int
	b   Batch
	err error
}

// Prefetch starts workers fetching every batch of one epoch.
func Prefetch(ds Dataset, batchSize, workers int) *Prefetcher {
	total := NumBatches(ds.Len(), batchSize)
	if workers <= 0 {
		workers = 1
	}
	if workers > total && total > 0 {
		workers = total
	}
	p := &Prefetcher{
		results: make(chan indexed, workers),
		done:    make(chan struct{}),
		pending: make(map[int]indexed),
		total:   total,
	}
	var cursor int64 = -1
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-p.done:
					return
				default:
				}
				i := int(atomic.AddInt64(&cursor, 1))
				if i >= total {
					return
				}
				b, err := ds.Batch(i, batchSize)
				select {
				case p.results <- indexed{i: i, b: b, err: err}:
				case <-p.done:
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(p.results)
	}()
	return p
}

// Total is the number of batches the epoch will produce.
func (p *Prefetcher) Total() int { return p.total }

// Next blocks until the next in-order batch is available. ok is false
// once the epoch is exhausted or a fetch failed; check Err afterwards.
func (p *Prefetcher) Next() (Batch, bool) {
	if p.err != nil || p.next >= p.total {
		return Batch{}, false
	}
	for {
		if r, ok := p.pending[p.next]; ok {
			delete(p.pending, p.next)
			return p.take(r)
		}
		r, ok := <-p.results
		if !ok {
			return Batch{}, false
		}
		if r.i == p.next {
			return p.take(r)
		}
		p.pending[r.i] = r
	}
}

func (p *Prefetcher) take(r indexed) (Batch, bool) {
	if r.err != nil {
		p.err = r.err
		return Batch{}, false
	}
	p.next++
	return r.b, true
}

// Err reports the first fetch failure, if any.
func (p *Prefetcher) Err() error { return p.err }

// Close releases the workers. Until Close is called a worker stuck on
// an unread result would outlive an epoch the consumer abandoned, so
// the consumer must call it even on the error path. Idempotent.
func (p *Prefetcher) Close() {
	p.once.Do(func() { close(p.done) })
}

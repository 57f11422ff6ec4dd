package data

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"traind/internal/backend"
)

type sliceTensor struct {
	shape []int
	data  []float64
}

func (s *sliceTensor) Shape() []int    { return s.shape }
func (s *sliceTensor) Data() []float64 { return s.data }
func (s *sliceTensor) Detach() backend.Tensor {
	d := make([]float64, len(s.data))
	copy(d, s.data)
	return &sliceTensor{shape: s.shape, data: d}
}

func testStacker(rows [][]float64) (backend.Tensor, error) {
	var flat []float64
	for _, r := range rows {
		flat = append(flat, r...)
	}
	return &sliceTensor{shape: []int{len(rows), len(rows[0])}, data: flat}, nil
}

func rows(n int) ([][]float64, [][]float64) {
	var in, lb [][]float64
	for i := 0; i < n; i++ {
		in = append(in, []float64{float64(i)})
		lb = append(lb, []float64{float64(2 * i)})
	}
	return in, lb
}

func TestNumBatches(t *testing.T) {
	cases := []struct {
		length, size, want int
	}{
		{10, 4, 3},
		{12, 4, 3},
		{4, 4, 1},
		{1, 4, 1},
		{12, 0, 0},
	}
	for _, c := range cases {
		if got := NumBatches(c.length, c.size); got != c.want {
			t.Fatalf("NumBatches(%d, %d) = %d, want %d", c.length, c.size, got, c.want)
		}
	}
}

func TestBatchSizesWithRaggedTail(t *testing.T) {
	in, lb := rows(10)
	ds, err := NewInMemory(in, lb, nil, testStacker, nil)
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	want := []int{4, 4, 2}
	for i, w := range want {
		b, err := ds.Batch(i, 4)
		if err != nil {
			t.Fatalf("Batch(%d): %v", i, err)
		}
		if got := b.Inputs[0].Shape()[0]; got != w {
			t.Fatalf("batch %d size = %d, want %d", i, got, w)
		}
	}
	if _, err := ds.Batch(3, 4); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestShuffleAllPermutesDeterministically(t *testing.T) {
	in, lb := rows(8)
	ds, _ := NewInMemory(in, lb, nil, testStacker, rand.New(rand.NewSource(5)))
	before, _ := ds.Batch(0, 8)
	ds.Shuffle(ShuffleAll)
	after, _ := ds.Batch(0, 8)

	same := true
	for i, v := range before.Inputs[0].Data() {
		if after.Inputs[0].Data()[i] != v {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected a different order after shuffle")
	}
	// every sample still present
	seen := map[float64]bool{}
	for _, v := range after.Inputs[0].Data() {
		seen[v] = true
	}
	if len(seen) != 8 {
		t.Fatalf("samples lost in shuffle: %v", after.Inputs[0].Data())
	}
}

func TestShuffleNoneKeepsOrder(t *testing.T) {
	in, lb := rows(4)
	ds, _ := NewInMemory(in, lb, nil, testStacker, nil)
	ds.Shuffle(ShuffleNone)
	b, _ := ds.Batch(0, 4)
	for i, v := range b.Inputs[0].Data() {
		if v != float64(i) {
			t.Fatalf("order changed: %v", b.Inputs[0].Data())
		}
	}
}

func TestAuxiliaryPresence(t *testing.T) {
	in, lb := rows(3)
	aux := [][]float64{{9}, {9}, {9}}
	withAux, _ := NewInMemory(in, lb, aux, testStacker, nil)
	b, _ := withAux.Batch(0, 3)
	if len(b.Auxiliary) != 1 {
		t.Fatalf("expected auxiliary tensor")
	}
	withoutAux, _ := NewInMemory(in, lb, nil, testStacker, nil)
	b, _ = withoutAux.Batch(0, 3)
	if len(b.Auxiliary) != 0 {
		t.Fatalf("expected no auxiliary tensor")
	}
}

func TestPrefetchDeliversInOrder(t *testing.T) {
	in, lb := rows(10)
	ds, _ := NewInMemory(in, lb, nil, testStacker, nil)
	p := Prefetch(ds, 3, 4)
	if p.Total() != 4 {
		t.Fatalf("Total = %d", p.Total())
	}
	var firsts []float64
	for {
		b, ok := p.Next()
		if !ok {
			break
		}
		firsts = append(firsts, b.Inputs[0].Data()[0])
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	want := []float64{0, 3, 6, 9}
	if len(firsts) != len(want) {
		t.Fatalf("batches = %v", firsts)
	}
	for i := range want {
		if firsts[i] != want[i] {
			t.Fatalf("out of order delivery: %v", firsts)
		}
	}
}

// failingDataset errors on every batch fetch.
type failingDataset struct{ n int }

func (d *failingDataset) Len() int { return d.n }
func (d *failingDataset) Batch(i, size int) (Batch, error) {
	return Batch{}, errors.New("bad batch")
}
func (d *failingDataset) Shuffle(ShuffleMode) {}
func (d *failingDataset) Reset()              {}

func TestPrefetchStopsOnError(t *testing.T) {
	p := Prefetch(&failingDataset{n: 16}, 1, 8)
	defer p.Close()
	if _, ok := p.Next(); ok {
		t.Fatal("Next delivered a batch from a failing dataset")
	}
	if p.Err() == nil {
		t.Fatal("Err = nil after failed fetch")
	}
}

func TestPrefetchCloseReleasesWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		p := Prefetch(&failingDataset{n: 16}, 1, 8)
		if _, ok := p.Next(); ok {
			t.Fatal("Next delivered a batch from a failing dataset")
		}
		p.Close()
		p.Close() // idempotent
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines before=%d after=%d, workers did not exit", before, runtime.NumGoroutine())
}

func TestScanDirAndLoadCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "toy.csv")
	content := "x1,x2,y\n1,2,3\n4,5,6\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	sources, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "toy" {
		t.Fatalf("sources = %+v", sources)
	}

	ds, err := LoadCSV(csvPath, 1, testStacker, nil)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len = %d", ds.Len())
	}
	b, err := ds.Batch(0, 2)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if got := b.Labels[0].Data(); got[0] != 3 || got[1] != 6 {
		t.Fatalf("labels = %v", got)
	}
	if got := b.Inputs[0].Data(); got[0] != 1 || got[3] != 5 {
		t.Fatalf("inputs = %v", got)
	}
}

func TestLoadCSVRejectsBadCell(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "bad.csv")
	if err := os.WriteFile(csvPath, []byte("1,2\n3,oops\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := LoadCSV(csvPath, 1, testStacker, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

package data

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"traind/internal/common/fsutil"
)

// Source is one discoverable dataset file.
type Source struct {
	// Name is the filename without extension, used as the dataset id.
	Name string
	Path string
}

// ScanDir lists *.csv dataset files under dir, sorted by name. ID is
// the bare filename; Path is absolute.
func ScanDir(dir string) ([]Source, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".csv") {
			continue
		}
		sources = append(sources, Source{
			Name: strings.TrimSuffix(name, filepath.Ext(name)),
			Path: filepath.Join(abs, name),
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	return sources, nil
}

// LoadCSV reads a numeric CSV into an in-memory dataset. The last
// labelWidth columns are the labels; everything before is input. Rows
// that fail to parse abort the load.
func LoadCSV(path string, labelWidth int, stack Stacker, rng *rand.Rand) (*InMemory, error) {
	if labelWidth <= 0 {
		return nil, fmt.Errorf("data: label width must be positive")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	var inputs, labels [][]float64
	for rowIdx, record := range records {
		if rowIdx == 0 && !numericRow(record) {
			continue // header
		}
		if len(record) <= labelWidth {
			return nil, fmt.Errorf("dataset %s row %d: %d columns, need more than %d", path, rowIdx+1, len(record), labelWidth)
		}
		row := make([]float64, len(record))
		for i, cell := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("dataset %s row %d col %d: %w", path, rowIdx+1, i+1, err)
			}
			row[i] = v
		}
		split := len(row) - labelWidth
		inputs = append(inputs, row[:split])
		labels = append(labels, row[split:])
	}
	return NewInMemory(inputs, labels, nil, stack, rng)
}

func numericRow(record []string) bool {
	for _, cell := range record {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err != nil {
			return false
		}
	}
	return len(record) > 0
}

package callback

import (
	"encoding/csv"
	"fmt"
	"os"
)

// csvLog is an append-only structured record. Every row is flushed to
// disk immediately so a crash loses nothing buffered.
type csvLog struct {
	path string
	f    *os.File
	w    *csv.Writer
}

func newCSVLog(path string, header []string) (*csvLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create history log %s: %w", path, err)
	}
	l := &csvLog{path: path, f: f, w: csv.NewWriter(f)}
	if err := l.Append(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *csvLog) Append(record []string) error {
	if err := l.w.Write(record); err != nil {
		return fmt.Errorf("append to %s: %w", l.path, err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *csvLog) Close() error {
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}

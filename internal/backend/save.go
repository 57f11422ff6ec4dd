package backend

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Format selects the checkpoint serialization.
type Format int

const (
	// FormatNative is the framework checkpoint format (gob), written
	// with a .model extension.
	FormatNative Format = iota
	// FormatExport is the interchange format (JSON), written with a
	// .json extension.
	FormatExport
)

func (f Format) String() string {
	switch f {
	case FormatNative:
		return "model"
	case FormatExport:
		return "json"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension returns the checkpoint filename extension for the format.
func (f Format) Extension() (string, error) {
	switch f {
	case FormatNative:
		return ".model", nil
	case FormatExport:
		return ".json", nil
	default:
		return "", fmt.Errorf("unrecognized save format: %d", int(f))
	}
}

// ParseFormat maps a config string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "model", "native", "gob":
		return FormatNative, nil
	case "json", "export", "interchange":
		return FormatExport, nil
	default:
		return 0, fmt.Errorf("unrecognized save format: %q", s)
	}
}

// SaveState serializes the model's state to {dir}/{name}{ext}. The
// target file is fully overwritten on every call.
func SaveState(m Module, dir, name string, f Format) (string, error) {
	ext, err := f.Extension()
	if err != nil {
		return "", err
	}
	state, err := m.State()
	if err != nil {
		return "", fmt.Errorf("snapshot model state: %w", err)
	}
	path := filepath.Join(dir, name+ext)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create checkpoint %s: %w", path, err)
	}
	defer file.Close()
	switch f {
	case FormatNative:
		if err := gob.NewEncoder(file).Encode(state); err != nil {
			return "", fmt.Errorf("encode checkpoint %s: %w", path, err)
		}
	case FormatExport:
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			return "", fmt.Errorf("encode checkpoint %s: %w", path, err)
		}
	}
	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("sync checkpoint %s: %w", path, err)
	}
	return path, nil
}

// LoadState reads a checkpoint written by SaveState back into the model.
func LoadState(m Module, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open checkpoint %s: %w", path, err)
	}
	defer file.Close()
	var state State
	switch filepath.Ext(path) {
	case ".model":
		if err := gob.NewDecoder(file).Decode(&state); err != nil {
			return fmt.Errorf("decode checkpoint %s: %w", path, err)
		}
	case ".json":
		if err := json.NewDecoder(file).Decode(&state); err != nil {
			return fmt.Errorf("decode checkpoint %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unrecognized checkpoint extension: %s", path)
	}
	return m.LoadState(state)
}

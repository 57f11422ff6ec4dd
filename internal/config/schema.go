package config

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DType is the declared type of a schema entry.
type DType int

const (
	DTypeString DType = iota
	DTypeInt
	DTypeFloat
	DTypeBool
	DTypeStringList
	DTypeIntList
	DTypeFloatList
)

// Entry declares one expected configuration value.
type Entry struct {
	DType   DType
	Default any
}

// Schema maps dotted paths onto declared entries.
type Schema map[string]Entry

// Check validates ns against the schema. Missing keys are backfilled
// with the declared default; present values are coerced to the declared
// type, falling back to the default when conversion fails. Every
// substitution is reported through warn and is never fatal. After Check
// returns, every schema path holds a value of its canonical Go type.
func Check(ns *Namespace, schema Schema, warn func(format string, a ...any)) {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	paths := make([]string, 0, len(schema))
	for p := range schema {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, path := range paths {
		entry := schema[path]
		current, ok := ns.Get(path)
		if !ok {
			warn("config: %s not found, added with default %v", path, entry.Default)
			ns.Set(path, entry.Default)
			continue
		}
		converted, err := coerce(current, entry.DType)
		if err != nil {
			warn("config: %s = %v could not be converted (%v), falling back to default %v", path, current, err, entry.Default)
			ns.Set(path, entry.Default)
			continue
		}
		ns.Set(path, converted)
	}
}

// coerce converts a raw tree value to the canonical Go type of dtype.
// For list dtypes a bare scalar is wrapped into a one-element list, and
// a conversion failure of any item discards the whole result.
func coerce(v any, dtype DType) (any, error) {
	switch dtype {
	case DTypeString:
		return toString(v)
	case DTypeInt:
		return toInt(v)
	case DTypeFloat:
		return toFloat(v)
	case DTypeBool:
		return toBool(v)
	case DTypeStringList:
		return coerceList(v, func(item any) (string, error) { return toString(item) })
	case DTypeIntList:
		return coerceList(v, func(item any) (int, error) { return toInt(item) })
	case DTypeFloatList:
		return coerceList(v, func(item any) (float64, error) { return toFloat(item) })
	default:
		return nil, fmt.Errorf("unknown dtype %d", int(dtype))
	}
}

func coerceList[T any](v any, conv func(any) (T, error)) (any, error) {
	items := asList(v)
	out := make([]T, 0, len(items))
	for i, item := range items {
		converted, err := conv(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, converted)
	}
	return out, nil
}

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, n := range t {
			out[i] = n
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, f := range t {
			out[i] = f
		}
		return out
	default:
		return []any{v}
	}
}

func toString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool, int, int64, uint64, float64, float32:
		return fmt.Sprintf("%v", t), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

func toInt(v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		return int(t), nil
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("%v is not an integer", t)
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to float", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("cannot convert %q to bool", t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadNamespaceByExtension(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"c.yaml", "name: demo\nnested:\n  depth: 2\n"},
		{"c.json", `{"name": "demo", "nested": {"depth": 2}}`},
		{"c.toml", "name = \"demo\"\n[nested]\ndepth = 2\n"},
	}
	for _, c := range cases {
		path := filepath.Join(dir, c.name)
		if err := os.WriteFile(path, []byte(c.content), 0o644); err != nil {
			t.Fatalf("write %s: %v", c.name, err)
		}
		ns, err := LoadNamespace(path)
		if err != nil {
			t.Fatalf("LoadNamespace(%s): %v", c.name, err)
		}
		if v, _ := ns.Get("name"); v != "demo" {
			t.Fatalf("%s: name = %v", c.name, v)
		}
		v, ok := ns.Get("nested.depth")
		if !ok {
			t.Fatalf("%s: nested.depth missing", c.name)
		}
		n, err := toInt(v)
		if err != nil || n != 2 {
			t.Fatalf("%s: nested.depth = %v (%v)", c.name, v, err)
		}
	}
}

func TestLoadNamespaceRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "c.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadNamespace(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := LoadNamespace(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestGetSetDotted(t *testing.T) {
	ns := NewNamespace()
	ns.Set("a.b.c", 7)
	if v, ok := ns.Get("a.b.c"); !ok || v != 7 {
		t.Fatalf("Get(a.b.c) = %v, %v", v, ok)
	}
	if ns.Has("a.b.missing") {
		t.Fatalf("expected missing path")
	}
	if _, ok := ns.Get("a.b.c.too.deep"); ok {
		t.Fatalf("expected lookup through scalar to fail")
	}
}

func TestCopyIsDeep(t *testing.T) {
	ns := NewNamespace()
	ns.Set("section.values", []any{1, 2, 3})
	cp := ns.Copy()
	ns.Set("section.values", "overwritten")
	if v, _ := cp.Get("section.values"); reflect.DeepEqual(v, "overwritten") {
		t.Fatalf("copy shares storage with original")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	ns := NewNamespace()
	ns.Set("name", "demo")
	ns.Set("epochs", 12)
	ns.Set("rate", 0.5)
	ns.Set("nested.list", []any{"a", "b", "c"})
	ns.Set("nested.numbers", []any{1, 2, 3})

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := ns.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadNamespace(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if v, _ := got.Get("name"); v != "demo" {
		t.Fatalf("name = %v", v)
	}
	if v, _ := got.Get("epochs"); v != 12 {
		t.Fatalf("epochs = %v (%T)", v, v)
	}
	if v, _ := got.Get("rate"); v != 0.5 {
		t.Fatalf("rate = %v", v)
	}
	v, _ := got.Get("nested.list")
	list, ok := v.([]any)
	if !ok || len(list) != 3 || list[0] != "a" || list[2] != "c" {
		t.Fatalf("nested.list = %v", v)
	}
	v, _ = got.Get("nested.numbers")
	nums, ok := v.([]any)
	if !ok || len(nums) != 3 || nums[0] != 1 || nums[2] != 3 {
		t.Fatalf("nested.numbers = %v", v)
	}
}

func TestCheckBackfillsMissingWithWarning(t *testing.T) {
	ns := NewNamespace()
	var warnings []string
	warn := func(format string, a ...any) { warnings = append(warnings, format) }
	Check(ns, Schema{"batch_size": {DType: DTypeInt, Default: 4}}, warn)
	if v, _ := ns.Get("batch_size"); v != 4 {
		t.Fatalf("batch_size = %v", v)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
}

func TestCheckCoercesScalars(t *testing.T) {
	ns := NewNamespace()
	ns.Set("epochs", "20")
	ns.Set("rate", "0.25")
	ns.Set("enabled", "true")
	Check(ns, Schema{
		"epochs":  {DType: DTypeInt, Default: 1},
		"rate":    {DType: DTypeFloat, Default: 0.1},
		"enabled": {DType: DTypeBool, Default: false},
	}, nil)
	if v, _ := ns.Get("epochs"); v != 20 {
		t.Fatalf("epochs = %v (%T)", v, v)
	}
	if v, _ := ns.Get("rate"); v != 0.25 {
		t.Fatalf("rate = %v", v)
	}
	if v, _ := ns.Get("enabled"); v != true {
		t.Fatalf("enabled = %v", v)
	}
}

func TestCheckListItemFailureDiscardsWholeList(t *testing.T) {
	ns := NewNamespace()
	ns.Set("values", []any{"1", "x", "3"})
	var warned bool
	Check(ns, Schema{"values": {DType: DTypeIntList, Default: []int{1, 2, 3}}}, func(string, ...any) { warned = true })
	v, _ := ns.Get("values")
	if !reflect.DeepEqual(v, []int{1, 2, 3}) {
		t.Fatalf("values = %v, want full default fallback", v)
	}
	if !warned {
		t.Fatalf("expected a substitution warning")
	}
}

func TestCheckWrapsScalarIntoList(t *testing.T) {
	ns := NewNamespace()
	ns.Set("values", 5)
	Check(ns, Schema{"values": {DType: DTypeIntList, Default: []int{0}}}, nil)
	v, _ := ns.Get("values")
	if !reflect.DeepEqual(v, []int{5}) {
		t.Fatalf("values = %v", v)
	}
}

func TestCheckBadTypeFallsBackToDefault(t *testing.T) {
	ns := NewNamespace()
	ns.Set("epochs", map[string]any{"oops": 1})
	var warned bool
	Check(ns, Schema{"epochs": {DType: DTypeInt, Default: 10}}, func(string, ...any) { warned = true })
	if v, _ := ns.Get("epochs"); v != 10 {
		t.Fatalf("epochs = %v", v)
	}
	if !warned {
		t.Fatalf("expected warning")
	}
}

func TestDecodeSections(t *testing.T) {
	sections := map[string]*Namespace{}
	for name, schema := range Sections {
		ns := NewNamespace()
		Check(ns, schema, nil)
		sections[name] = ns
	}
	sections[SectionTraining].Set("epochs", 3)
	sections[SectionSaver].Set("policy", "every_epoch")
	sections[SectionServer].Set("enabled", true)

	cfg := Decode(sections)
	if cfg.Training.Epochs != 3 {
		t.Fatalf("epochs = %d", cfg.Training.Epochs)
	}
	if cfg.Training.InitialEpoch != 1 {
		t.Fatalf("initial epoch default = %d", cfg.Training.InitialEpoch)
	}
	if cfg.Saver.Policy != "every_epoch" {
		t.Fatalf("policy = %q", cfg.Saver.Policy)
	}
	if cfg.History.Overwatch != "total_loss" || cfg.History.Condition != "smaller" {
		t.Fatalf("history defaults = %+v", cfg.History)
	}
	if !cfg.Server.Enabled || cfg.Server.Addr != ":8091" {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Data.BatchSize != 4 {
		t.Fatalf("batch size default = %d", cfg.Data.BatchSize)
	}
}

func TestSummaryRendersNested(t *testing.T) {
	ns := NewNamespace()
	ns.Set("b", 2)
	ns.Set("a.inner", "x")
	got := ns.Summary()
	want := "a:\n  inner: x\nb: 2\n"
	if got != want {
		t.Fatalf("summary = %q, want %q", got, want)
	}
}

package config

// Section names. Each maps to one file in the config directory
// (project.yaml, training.yaml, ...). JSON and TOML variants of the
// same basename are accepted.
const (
	SectionProject  = "project"
	SectionData     = "data"
	SectionTraining = "training"
	SectionHistory  = "history"
	SectionSaver    = "saver"
	SectionServer   = "server"
)

// SectionNames lists every expected section in load order.
var SectionNames = []string{
	SectionProject,
	SectionData,
	SectionTraining,
	SectionHistory,
	SectionSaver,
	SectionServer,
}

// Sections declares the schema of each section.
var Sections = map[string]Schema{
	SectionProject: {
		"name":    {DType: DTypeString, Default: "session"},
		"on_wake": {DType: DTypeStringList, Default: []string{}},
	},
	SectionData: {
		"dir":         {DType: DTypeString, Default: "data"},
		"train":       {DType: DTypeString, Default: "train"},
		"validation":  {DType: DTypeString, Default: ""},
		"label_width": {DType: DTypeInt, Default: 1},
		"batch_size":  {DType: DTypeInt, Default: 4},
		"workers":     {DType: DTypeInt, Default: 4},
		"shuffle":     {DType: DTypeString, Default: "all"},
	},
	SectionTraining: {
		"epochs":        {DType: DTypeInt, Default: 10},
		"initial_epoch": {DType: DTypeInt, Default: 1},
		"learning_rate": {DType: DTypeFloat, Default: 0.01},
		"loss_weights":  {DType: DTypeFloatList, Default: []float64{1.0}},
		"patience":      {DType: DTypeInt, Default: 0},
	},
	SectionHistory: {
		"dir":       {DType: DTypeString, Default: "history"},
		"memorize":  {DType: DTypeInt, Default: 100},
		"overwatch": {DType: DTypeString, Default: "total_loss"},
		"condition": {DType: DTypeString, Default: "smaller"},
	},
	SectionSaver: {
		"dir":    {DType: DTypeString, Default: "checkpoints"},
		"policy": {DType: DTypeString, Default: "on_improvement"},
		"format": {DType: DTypeString, Default: "model"},
	},
	SectionServer: {
		"enabled":      {DType: DTypeBool, Default: false},
		"addr":         {DType: DTypeString, Default: ":8091"},
		"cors_enabled": {DType: DTypeBool, Default: false},
		"cors_origins": {DType: DTypeStringList, Default: []string{"*"}},
	},
}

// ProjectConfig names the session and lists startup commands.
type ProjectConfig struct {
	Name   string
	OnWake []string
}

// DataConfig locates the datasets and sets loading parameters.
type DataConfig struct {
	Dir        string
	Train      string
	Validation string
	LabelWidth int
	BatchSize  int
	Workers    int
	Shuffle    string
}

// TrainingConfig drives the epoch loop and the optimizer.
type TrainingConfig struct {
	Epochs       int
	InitialEpoch int
	LearningRate float64
	LossWeights  []float64
	// Patience enables early stopping when positive: training stops
	// after this many epochs without overwatch improvement.
	Patience int
}

// HistoryConfig controls the in-memory window and the overwatch metric.
type HistoryConfig struct {
	Dir       string
	Memorize  int
	Overwatch string
	Condition string
}

// SaverConfig controls the checkpoint policy.
type SaverConfig struct {
	Dir    string
	Policy string
	Format string
}

// ServerConfig controls the status HTTP API.
type ServerConfig struct {
	Enabled bool
	Addr    string
	// CORSEnabled adds the CORS middleware for the listed origins.
	CORSEnabled bool
	CORSOrigins []string
}

// Config is the decoded form of every checked section.
type Config struct {
	Project  ProjectConfig
	Data     DataConfig
	Training TrainingConfig
	History  HistoryConfig
	Saver    SaverConfig
	Server   ServerConfig
}

// Decode maps checked section namespaces onto the typed Config. It
// assumes Check already ran for every section, so values hold their
// canonical types; anything still missing decodes to its zero value.
func Decode(sections map[string]*Namespace) Config {
	var cfg Config
	if ns := sections[SectionProject]; ns != nil {
		cfg.Project.Name = getString(ns, "name")
		cfg.Project.OnWake = getStringList(ns, "on_wake")
	}
	if ns := sections[SectionData]; ns != nil {
		cfg.Data.Dir = getString(ns, "dir")
		cfg.Data.Train = getString(ns, "train")
		cfg.Data.Validation = getString(ns, "validation")
		cfg.Data.LabelWidth = getInt(ns, "label_width")
		cfg.Data.BatchSize = getInt(ns, "batch_size")
		cfg.Data.Workers = getInt(ns, "workers")
		cfg.Data.Shuffle = getString(ns, "shuffle")
	}
	if ns := sections[SectionTraining]; ns != nil {
		cfg.Training.Epochs = getInt(ns, "epochs")
		cfg.Training.InitialEpoch = getInt(ns, "initial_epoch")
		cfg.Training.LearningRate = getFloat(ns, "learning_rate")
		cfg.Training.LossWeights = getFloatList(ns, "loss_weights")
		cfg.Training.Patience = getInt(ns, "patience")
	}
	if ns := sections[SectionHistory]; ns != nil {
		cfg.History.Dir = getString(ns, "dir")
		cfg.History.Memorize = getInt(ns, "memorize")
		cfg.History.Overwatch = getString(ns, "overwatch")
		cfg.History.Condition = getString(ns, "condition")
	}
	if ns := sections[SectionSaver]; ns != nil {
		cfg.Saver.Dir = getString(ns, "dir")
		cfg.Saver.Policy = getString(ns, "policy")
		cfg.Saver.Format = getString(ns, "format")
	}
	if ns := sections[SectionServer]; ns != nil {
		cfg.Server.Enabled = getBool(ns, "enabled")
		cfg.Server.Addr = getString(ns, "addr")
		cfg.Server.CORSEnabled = getBool(ns, "cors_enabled")
		cfg.Server.CORSOrigins = getStringList(ns, "cors_origins")
	}
	return cfg
}

func getString(ns *Namespace, path string) string {
	if v, ok := ns.Get(path); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(ns *Namespace, path string) int {
	if v, ok := ns.Get(path); ok {
		if n, ok := v.(int); ok {
			return n
		}
	}
	return 0
}

func getFloat(ns *Namespace, path string) float64 {
	if v, ok := ns.Get(path); ok {
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		}
	}
	return 0
}

func getBool(ns *Namespace, path string) bool {
	if v, ok := ns.Get(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getStringList(ns *Namespace, path string) []string {
	if v, ok := ns.Get(path); ok {
		if list, ok := v.([]string); ok {
			return list
		}
	}
	return nil
}

func getFloatList(ns *Namespace, path string) []float64 {
	if v, ok := ns.Get(path); ok {
		if list, ok := v.([]float64); ok {
			return list
		}
	}
	return nil
}

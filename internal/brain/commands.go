package brain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"traind/internal/bus"
	"traind/internal/data"
)

// errSleep ends the REPL loop.
var errSleep = errors.New("sleep")

// command is one entry of the closed command table. Input lines are
// matched against this table only; nothing typed at the prompt is ever
// evaluated as code.
type command struct {
	help string
	run  func(args []string) error
}

func (b *Brain) commandTable() map[string]command {
	return map[string]command{
		"help": {
			help: "list the available commands",
			run:  func([]string) error { b.printHelp(); return nil },
		},
		"train": {
			help: "run the training loop",
			run:  func([]string) error { return b.Train() },
		},
		"continue": {
			help: "extend a finished training run",
			run:  func([]string) error { return b.Train() },
		},
		"test": {
			help: "evaluate the model without training",
			run:  func([]string) error { return b.Test() },
		},
		"config": {
			help: "show the configuration; subcommands: check, save, load, store, restore, clear",
			run:  b.configCommand,
		},
		"status": {
			help: "show the trainer state",
			run:  func([]string) error { b.printStatus(); return nil },
		},
		"save": {
			help: "write a model checkpoint now",
			run: func([]string) error {
				b.bus.Publish(bus.SaveModel{Model: b.model})
				return nil
			},
		},
		"datasets": {
			help: "list the dataset sources under the data directory",
			run:  func([]string) error { return b.listDatasets() },
		},
		"serve": {
			help: "start the status HTTP server",
			run:  func([]string) error { return b.Serve() },
		},
		"sleep": {
			help: "close the session",
			run:  func([]string) error { return errSleep },
		},
	}
}

func (b *Brain) configCommand(args []string) error {
	if len(args) == 0 {
		b.notif.Result("%s", b.ConfigSummary())
		return nil
	}
	switch args[0] {
	case "check":
		b.CheckConfig()
	case "save":
		return b.SaveConfig()
	case "load":
		if err := b.LoadConfig(); err != nil {
			return err
		}
		b.CheckConfig()
	case "store":
		b.StoreConfig()
	case "restore":
		b.RestoreConfig()
	case "clear":
		b.ClearConfig()
	default:
		b.notif.Warning("unknown config subcommand: %q", args[0])
	}
	return nil
}

func (b *Brain) listDatasets() error {
	sources, err := data.ScanDir(b.cfg.Data.Dir)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		b.notif.Result("no dataset sources under %s", b.cfg.Data.Dir)
		return nil
	}
	for _, s := range sources {
		b.notif.Result("%-12s %s", s.Name, s.Path)
	}
	return nil
}

func (b *Brain) printHelp() {
	table := b.commandTable()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.notif.Result("%-10s %s", name, table[name].help)
	}
}

func (b *Brain) printStatus() {
	st := b.trainer.Status()
	b.notif.Result("phase=%s epoch=%d/%d batches_per_epoch=%d checkpoints=%d",
		st.Phase, st.Epoch, st.TotalEpochs, st.BatchesPerEpoch, b.callbacks.Saver.Saves())
	if best, ok := b.callbacks.Saver.Best(); ok {
		b.notif.Result("best %s (%s) = %g", best.Name, best.Comparison, best.Value)
	}
}

// Execute runs one input line: commands chained with '&' run left to
// right, each matched against the command table. Unknown commands are
// rejected with a warning.
func (b *Brain) Execute(line string) error {
	table := b.commandTable()
	for _, part := range strings.Split(line, "&") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		cmd, ok := table[fields[0]]
		if !ok {
			b.notif.Warning("unknown command: %q (type help for the command list)", fields[0])
			continue
		}
		if err := cmd.run(fields[1:]); err != nil {
			if errors.Is(err, errSleep) {
				return errSleep
			}
			b.notif.Error("%s: %v", fields[0], err)
		}
	}
	return nil
}

// Wake runs the configured on_wake commands, then reads and executes
// prompt lines until sleep or end of input.
func (b *Brain) Wake() error {
	b.notif.Info("session %s awake", b.cfg.Project.Name)
	if b.cfg.Server.Enabled {
		if err := b.Serve(); err != nil {
			return err
		}
	}
	for _, line := range b.cfg.Project.OnWake {
		if err := b.Execute(line); err != nil {
			if errors.Is(err, errSleep) {
				b.Sleep()
				return nil
			}
			return err
		}
	}
	for {
		line, err := b.notif.Input(fmt.Sprintf("%s >", b.cfg.Project.Name))
		if err != nil {
			b.Sleep()
			return nil
		}
		if err := b.Execute(line); err != nil {
			if errors.Is(err, errSleep) {
				b.Sleep()
				return nil
			}
			return err
		}
	}
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"traind/internal/brain"
	"traind/internal/httpapi"
	"traind/internal/notify"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string
	var logLevel string

	root := &cobra.Command{
		Use:           "traind",
		Short:         "Config-driven neural-network training sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "config", "Directory holding the session config sections")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")

	newSession := func() (*brain.Brain, error) {
		logger := newLogger(logLevel)
		httpapi.SetLogger(logger)
		n := notify.New(logger, os.Stdin, os.Stdout)
		return brain.New(configDir, n)
	}

	wakeCmd := &cobra.Command{
		Use:   "wake",
		Short: "Start the interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newSession()
			if err != nil {
				return err
			}
			stopOnSignal(b)
			return b.Wake()
		},
	}

	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Run one training session and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newSession()
			if err != nil {
				return err
			}
			stopOnSignal(b)
			err = b.Train()
			b.Sleep()
			return err
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("traind", version)
		},
	}

	root.AddCommand(wakeCmd, trainCmd, versionCmd)
	return root
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// stopOnSignal closes the session and exits on Ctrl+C / SIGTERM. The
// REPL blocks on stdin, so the handler runs off the main goroutine.
func stopOnSignal(b *brain.Brain) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		b.Sleep()
		os.Exit(0)
	}()
}

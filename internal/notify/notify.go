// Package notify is the single user-facing reporting channel for the
// training core. Components never write to output directly; they report
// through a Notifier with a severity level. Interactive prompts (the
// checkpoint recovery flow and the continue-training question) also go
// through the Notifier so tests can script them.
package notify

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
	LevelFatal
	LevelResult
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	case LevelResult:
		return "result"
	default:
		return "unknown"
	}
}

// Notifier reports messages through a structured logger and reads
// interactive answers from an input stream.
type Notifier struct {
	log zerolog.Logger
	in  *bufio.Reader
	out io.Writer

	// exit is called on Fatal. Overridable so tests can observe fatal
	// notifications without killing the test process.
	exit func(code int)
}

// New builds a Notifier over the given logger, input stream and prompt
// output stream.
func New(log zerolog.Logger, in io.Reader, out io.Writer) *Notifier {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Notifier{
		log:  log,
		in:   bufio.NewReader(in),
		out:  out,
		exit: os.Exit,
	}
}

// SetExitFunc overrides the process-exit hook used by Fatal.
func (n *Notifier) SetExitFunc(fn func(code int)) {
	if fn != nil {
		n.exit = fn
	}
}

func (n *Notifier) Info(format string, a ...any) {
	n.log.Info().Str("severity", LevelInfo.String()).Msgf(format, a...)
}

func (n *Notifier) Success(format string, a ...any) {
	n.log.Info().Str("severity", LevelSuccess.String()).Msgf(format, a...)
}

func (n *Notifier) Warning(format string, a ...any) {
	n.log.Warn().Str("severity", LevelWarning.String()).Msgf(format, a...)
}

func (n *Notifier) Error(format string, a ...any) {
	n.log.Error().Str("severity", LevelError.String()).Msgf(format, a...)
}

// Result reports a value produced by a REPL command.
func (n *Notifier) Result(format string, a ...any) {
	fmt.Fprintf(n.out, format+"\n", a...)
}

// Fatal reports an unrecoverable condition and terminates the process.
func (n *Notifier) Fatal(format string, a ...any) {
	n.log.Error().Str("severity", LevelFatal.String()).Msgf(format, a...)
	n.exit(1)
}

// Input prints a prompt and blocks until a line of input is available.
// The returned answer is trimmed of surrounding whitespace.
func (n *Notifier) Input(prompt string) (string, error) {
	fmt.Fprintf(n.out, "%s ", prompt)
	line, err := n.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// YesNo prompts until the user answers y or n (case-insensitive).
func (n *Notifier) YesNo(prompt string) (bool, error) {
	for {
		answer, err := n.Input(prompt + " (y/n)")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		n.Warning("please answer y or n")
	}
}

// Choice prompts until the user answers one of the given options
// (case-insensitive) and returns the matching option.
func (n *Notifier) Choice(prompt string, options ...string) (string, error) {
	for {
		answer, err := n.Input(fmt.Sprintf("%s (%s)", prompt, strings.Join(options, "/")))
		if err != nil {
			return "", err
		}
		for _, opt := range options {
			if strings.EqualFold(answer, opt) {
				return opt, nil
			}
		}
		n.Warning("please answer one of: %s", strings.Join(options, ", "))
	}
}

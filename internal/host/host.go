// Package host is the narrow surface the logging core uses to talk back to
// whatever embeds it: user-facing messages and a structured diagnostic
// channel. The CLI provides console implementations; tests provide fakes.
package host

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Notifier shows informational and error messages to the user.
type Notifier interface {
	Info(msg string)
	Errorf(format string, args ...any)
}

// Console is a Notifier writing to stdout/stderr.
type Console struct{}

func (Console) Info(msg string) {
	fmt.Println(msg)
}

func (Console) Errorf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Discard is a Notifier that drops all messages. Used in tests.
type Discard struct{}

func (Discard) Info(string)           {}
func (Discard) Errorf(string, ...any) {}

// Diagnostics returns the structured diagnostic logger. Verbose lowers the
// level to debug.
func Diagnostics(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

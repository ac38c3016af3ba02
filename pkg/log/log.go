// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/walteh/patchrc/pkg/engine"
)

// 🎨 Display configuration
const (
	stageIndent = 4  // spaces to indent stage lines
	stageWidth  = 10 // width of the stage name column
)

// 🎯 Logger prints per-stage status lines and mirrors them to zerolog
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex
}

// 🏭 New creates a logger that prints status lines to console and writes
// structured events to structured through a zerolog console writer. The
// level follows zerolog's global level.
func New(console, structured io.Writer) *Logger {
	zlog := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = structured
	})).With().Timestamp().Logger()
	return NewWithZerolog(console, zlog)
}

// NewWithZerolog creates a logger around an existing zerolog logger
func NewWithZerolog(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context. Its zerolog logger is attached
// too, so zerolog.Ctx(ctx) writes to the same place.
func NewContext(ctx context.Context, l *Logger) context.Context {
	ctx = l.zlog.WithContext(ctx)
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatStage formats a finished stage for display
func formatStage(ev engine.Event) string {
	var symbol rune
	var symbolColor color.Attribute
	switch {
	case ev.Status == engine.StatusFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	case ev.Stage == engine.StageRollback:
		symbol = '⟳'
		symbolColor = color.FgBlue
	case ev.Status == engine.StatusSkipped:
		symbol = '•'
		symbolColor = color.FgCyan
	default:
		symbol = '✓'
		symbolColor = color.FgGreen
	}

	detail := ev.Detail
	if ev.Err != nil {
		detail = ev.Err.Error()
	}

	line := fmt.Sprintf("%s%s %s %s",
		strings.Repeat(" ", stageIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", stageWidth, ev.Stage),
		detail)
	return strings.TrimRight(line, " ")
}

// 📣 Observe prints an engine event. It is an engine.Observer.
func (l *Logger) Observe(ctx context.Context, ev engine.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	zev := l.zlog.Debug()
	if ev.Status == engine.StatusFailed {
		zev = l.zlog.Warn()
	}
	zev.Str("txn", ev.TxnID.String()).
		Str("patch", ev.DescriptorID).
		Str("path", ev.Path).
		Str("stage", string(ev.Stage)).
		Str("status", ev.Status.String()).
		Str("detail", ev.Detail).
		Err(ev.Err).
		Msg("stage")

	if ev.Status == engine.StatusRunning {
		if ev.Stage == engine.StageRead {
			fmt.Fprintf(l.console, "[patching %s]\n", color.New(color.FgCyan).Sprint(ev.Path))
			fmt.Fprintf(l.console, "%s %s %s %s\n",
				color.New(color.FgMagenta).Sprint("◆"),
				color.New(color.Bold).Sprint(ev.DescriptorID),
				color.New(color.Faint).Sprint("•"),
				color.New(color.FgYellow).Sprint(ev.TxnID.String()))
		}
		return
	}

	fmt.Fprintln(l.console, formatStage(ev))
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("patchrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 🔀 Diff prints a unified diff with added lines green and removed lines red
func (l *Logger) Diff(unified string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, line := range strings.SplitAfter(unified, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fmt.Fprint(l.console, color.New(color.Bold).Sprint(line))
		case strings.HasPrefix(line, "@@"):
			fmt.Fprint(l.console, color.New(color.FgCyan).Sprint(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprint(l.console, color.New(color.FgGreen).Sprint(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprint(l.console, color.New(color.FgRed).Sprint(line))
		default:
			fmt.Fprint(l.console, line)
		}
	}
	if !strings.HasSuffix(unified, "\n") && unified != "" {
		fmt.Fprintln(l.console)
	}
}

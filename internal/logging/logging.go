// Package logging wires DuckChat's two distinct logging surfaces onto
// github.com/rs/zerolog: the external S2S wire contract line, which must
// stay a single undecorated line because test harnesses grep it, and
// ambient structured operational logging for everything else.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/thejanjan/duckchat/internal/wire"
)

// Logger is DuckChat's logging facade, satisfying topology.Logger and
// clientreq.Logger in addition to its own ambient Info/Warn/Fatal.
type Logger struct {
	s2s zerolog.Logger // the bare <self> <peer> <dir> S2S <Op> <args> contract line
	op  zerolog.Logger // structured ambient logging, one "component" field per caller
}

// New builds a Logger writing to stdout. jsonOutput switches the ambient
// logger between colored console output (development) and JSON
// (machine-parseable); the S2S contract line is always bare text, since
// its format is fixed by the external interface and never gains a JSON
// wrapper. verbose raises the ambient logger's level so per-request
// activity (LogRequest) is emitted; the S2S contract line is logged at
// zerolog's NoLevel via Log(), which bypasses level filtering entirely,
// so it is always emitted regardless of verbose.
func New(jsonOutput, verbose bool) *Logger {
	return NewWithWriter(os.Stdout, jsonOutput, verbose)
}

// NewWithWriter is New with the output destination pinned by the caller.
func NewWithWriter(out io.Writer, jsonOutput, verbose bool) *Logger {
	opWriter := out
	if !jsonOutput {
		opWriter = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	op := zerolog.New(opWriter).Level(level).With().Timestamp().Logger()

	s2sWriter := zerolog.ConsoleWriter{
		Out:          out,
		NoColor:      true,
		PartsOrder:   []string{zerolog.MessageFieldName},
		PartsExclude: []string{zerolog.TimestampFieldName, zerolog.LevelFieldName},
	}
	s2s := zerolog.New(s2sWriter)

	return &Logger{s2s: s2s, op: op}
}

// LogS2S implements topology.Logger: one undecorated line per S2S
// send/recv, exactly `<self> <peer> <dir> S2S <Op> <args>`.
func (l *Logger) LogS2S(self, peer wire.Addr, direction, op, args string) {
	l.s2s.Log().Msgf("%s %s %s S2S %s %s", self, peer, direction, op, args)
}

// LogRequest implements clientreq.Logger: a per-request debug line,
// gated by -verbose since it fires on every client-boundary request.
func (l *Logger) LogRequest(self, client wire.Addr, verb, args string) {
	l.op.Debug().
		Str("component", "clientreq").
		Str("self", self.String()).
		Str("client", client.String()).
		Str("verb", verb).
		Msg(args)
}

// Info logs an ambient informational event for component.
func (l *Logger) Info(component, msg string) {
	l.op.Info().Str("component", component).Msg(msg)
}

// Warn logs a transient-failure event for component: log and continue,
// recovery happens implicitly via the next refresh tick.
func (l *Logger) Warn(component, msg string, err error) {
	l.op.Warn().Str("component", component).Err(err).Msg(msg)
}

// Fatal logs a startup-fatal event for component and terminates the
// process (zerolog's Fatal level calls os.Exit(1) on Msg).
func (l *Logger) Fatal(component, msg string, err error) {
	l.op.Fatal().Str("component", component).Err(err).Msg(msg)
}

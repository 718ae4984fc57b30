package log

import (
	"io"

	gethlog "github.com/ethereum/go-ethereum/log"
)

// Logger writes key/value pairs: log.Info("block applied", "height", 10).
type Logger = gethlog.Logger

// New returns a child of the root logger carrying ctx on every record.
func New(ctx ...interface{}) Logger {
	return gethlog.New(ctx...)
}

func Root() Logger {
	return gethlog.Root()
}

// Setup installs a terminal root logger. Verbosity follows the 0 (crit) .. 5 (trace) scale.
func Setup(w io.Writer, verbosity int, color bool) {
	gethlog.SetDefault(gethlog.NewLogger(gethlog.NewTerminalHandlerWithLevel(w, gethlog.FromLegacyLevel(verbosity), color)))
}

// Discard silences the root logger.
func Discard() {
	gethlog.SetDefault(gethlog.NewLogger(gethlog.DiscardHandler()))
}

func Trace(msg string, ctx ...interface{}) { gethlog.Root().Trace(msg, ctx...) }

func Debug(msg string, ctx ...interface{}) { gethlog.Root().Debug(msg, ctx...) }

func Info(msg string, ctx ...interface{}) { gethlog.Root().Info(msg, ctx...) }

func Warn(msg string, ctx ...interface{}) { gethlog.Root().Warn(msg, ctx...) }

func Error(msg string, ctx ...interface{}) { gethlog.Root().Error(msg, ctx...) }

func Crit(msg string, ctx ...interface{}) { gethlog.Root().Crit(msg, ctx...) }

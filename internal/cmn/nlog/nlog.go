// Package nlog is the engine's leveled logger. It intentionally stays on the
// standard library: there is no collaborator contract for log sinks (§1 OUT
// OF SCOPE names logging explicitly), and the corpus itself treats its own
// equivalent as a stdlib wrapper rather than a pulled-in dependency.
package nlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

type Level int32

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelDebug
)

var (
	level  atomic.Int32
	stdlog = log.New(os.Stderr, "", log.Ldate|log.Lmicroseconds|log.Lshortfile)
)

func init() { level.Store(int32(LevelInfo)) }

func SetLevel(l Level) { level.Store(int32(l)) }

func enabled(l Level) bool { return Level(level.Load()) >= l }

func Infof(format string, args ...any) {
	if enabled(LevelInfo) {
		stdlog.Output(2, "I "+sprintf(format, args...))
	}
}

func Warningf(format string, args ...any) {
	if enabled(LevelWarning) {
		stdlog.Output(2, "W "+sprintf(format, args...))
	}
}

func Errorf(format string, args ...any) {
	if enabled(LevelError) {
		stdlog.Output(2, "E "+sprintf(format, args...))
	}
}

// Fatalf logs and panics; the engine never os.Exits on its own (§7: a fatal
// op error is reported to the op's completion callback, the group survives).
func Fatalf(format string, args ...any) {
	msg := sprintf(format, args...)
	stdlog.Output(2, "F "+msg)
	panic(msg)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Package logger wires zerolog for the process. Init builds the root logger
// once at startup; everything downstream receives a child of it by injection.
// Get exists for the few places that log before wiring finishes, such as the
// shutdown path and background loops.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var levels = map[string]zerolog.Level{
	"trace":   zerolog.TraceLevel,
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
}

// Options configures the root logger.
type Options struct {
	// Level names the minimum level to emit (trace, debug, info, warn,
	// error). Anything unrecognised falls back to info.
	Level string
	// Pretty switches JSON output to the colourised console writer. Keep it
	// off outside local development.
	Pretty bool
	// Output overrides the destination, mainly for tests. Nil means stdout.
	Output io.Writer
}

var (
	mu   sync.Mutex
	root *zerolog.Logger
)

// Init builds the root logger. The first call wins; later calls return the
// logger already built.
func Init(opts Options) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		return *root
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if opts.Output != nil {
		out = opts.Output
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	lvl, ok := levels[strings.ToLower(strings.TrimSpace(opts.Level))]
	if !ok {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	l := zerolog.New(out).Level(lvl).With().Timestamp().Caller().Logger()
	root = &l
	return l
}

// Get returns the root logger, panicking when Init has not run. The panic is
// deliberate: logging before Init means the process wiring is wrong.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		panic("logger: Get called before Init")
	}
	return *root
}

// Reset discards the root logger so tests can rebuild it with different
// options.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	root = nil
}

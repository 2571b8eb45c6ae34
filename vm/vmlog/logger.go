// Package vmlog provides structured logging for the interpreter using zap.
package vmlog

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with interpreter-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger. Safe to call multiple times;
// only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Opcode logs a single dispatched instruction at debug level, the
// interpreter's hottest log site, so callers gate it behind
// Logger.Core().Enabled(zap.DebugLevel) before formatting operands.
func (l *Logger) Opcode(pc uint32, name string, opcode uint32) {
	l.Debug("opcode",
		Addr(pc),
		zap.String("name", name),
		zap.Uint32("op", opcode),
	)
}

// Fault logs a runtime fault before it propagates to the caller as an
// error, so a trace of the failing instruction survives even when the
// embedder only surfaces the final error string. runID correlates the
// line to one VM instance when several run concurrently.
func (l *Logger) Fault(runID uuid.UUID, pc uint32, opcode uint32, reason error) {
	l.Warn("fault",
		zap.String("run_id", runID.String()),
		Addr(pc),
		zap.Uint32("op", opcode),
		zap.Error(reason),
	)
}

// Session logs the start of one VM's execution, establishing run_id
// as the correlation key other log lines for the same run can share.
func (l *Logger) Session(runID uuid.UUID, startFunc uint32) {
	l.Info("session",
		zap.String("run_id", runID.String()),
		zap.String("start_func", Hex(uint64(startFunc))),
	)
}

// Call logs a CALL/CALLF*/TAILCALL dispatch at debug level.
func (l *Logger) Call(pc, target uint32, nargs int, tail bool) {
	l.Debug("call",
		Addr(pc),
		zap.String("target", Hex(uint64(target))),
		zap.Int("nargs", nargs),
		zap.Bool("tail", tail),
	)
}

// Addr creates an address field.
func Addr(addr uint32) zap.Field {
	return zap.String("pc", Hex(uint64(addr)))
}

// Hex formats a uint64 as a 0x-prefixed hex string for logging.
func Hex(v uint64) string {
	return "0x" + hexString(v)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

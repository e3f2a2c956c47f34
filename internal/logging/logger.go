// Package logging provides categorized, zap-backed logging for sentinel.
// Console output always goes to stderr once Initialize has run. When
// debug_mode is enabled a JSON or text log is also written to <home>/logs/.
// Before Initialize every logger is a no-op, so library code and tests can
// log freely.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Startup and configuration
	CategoryRegistry Category = "registry" // Project registry reads/writes
	CategoryAnchor   Category = "anchor"   // Bootstrapper and declaration locators
	CategoryPatch    Category = "patch"    // Block patch engine
	CategoryWatcher  Category = "watcher"  // Local watcher and shared dispatch
	CategoryRemote   Category = "remote"   // Remote store polling
	CategoryGate     Category = "gate"     // Approval and execution gate
	CategoryTactile  Category = "tactile"  // Interpreter process execution
	CategoryStore    Category = "store"    // History ledger and processed set
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Verbose    bool
	Level      string
	JSONFormat bool
	Categories map[string]bool

	// Console overrides stderr as the console sink (tests).
	Console io.Writer
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu          sync.RWMutex
	root        *zap.Logger
	logFile     *os.File
	logsDir     string
	options     Options
	initialized bool
	loggers     = make(map[Category]*Logger)

	nop = zap.NewNop().Sugar()
)

// Initialize sets up the console sink and, in debug mode, the file sink
// under home/logs. Calling it again replaces the previous setup.
func Initialize(home string, opts Options) error {
	CloseAll()

	mu.Lock()
	defer mu.Unlock()

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := zapcore.InfoLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), consoleLevel),
	}

	if opts.DebugMode {
		if home == "" {
			return fmt.Errorf("home directory required for debug logging")
		}
		logsDir = filepath.Join(home, "logs")
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		name := fmt.Sprintf("%s_sentinel.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(logsDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f

		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		var enc zapcore.Encoder
		if opts.JSONFormat {
			enc = zapcore.NewJSONEncoder(fileEnc)
		} else {
			enc = zapcore.NewConsoleEncoder(fileEnc)
		}
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(f), parseLevel(opts.Level)))
	}

	root = zap.New(zapcore.NewTee(cores...))
	options = opts
	initialized = true
	loggers = make(map[Category]*Logger)

	root.Named(string(CategoryBoot)).Debug("logging initialized",
		zap.Bool("debug_mode", opts.DebugMode),
		zap.String("level", opts.Level),
		zap.String("logs_dir", logsDir))
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether the file sink is active.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return initialized && options.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories absent from the filter are enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if !initialized {
		return false
	}
	if options.Categories == nil {
		return true
	}
	enabled, ok := options.Categories[string(category)]
	return !ok || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is not initialized or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: nop}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	if root == nil {
		return &Logger{category: category, sugar: nop}
	}
	l := &Logger{category: category, sugar: root.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Zap exposes the underlying zap logger for callers that want typed fields.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

// With returns a logger carrying the given key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// CloseAll flushes and closes all sinks (call at shutdown).
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()

	if root != nil {
		_ = root.Sync()
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	root = nil
	logsDir = ""
	initialized = false
	options = Options{}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

func Registry(format string, args ...interface{})      { Get(CategoryRegistry).Info(format, args...) }
func RegistryDebug(format string, args ...interface{}) { Get(CategoryRegistry).Debug(format, args...) }
func RegistryWarn(format string, args ...interface{})  { Get(CategoryRegistry).Warn(format, args...) }

func Anchor(format string, args ...interface{})      { Get(CategoryAnchor).Info(format, args...) }
func AnchorDebug(format string, args ...interface{}) { Get(CategoryAnchor).Debug(format, args...) }
func AnchorWarn(format string, args ...interface{})  { Get(CategoryAnchor).Warn(format, args...) }

func Patch(format string, args ...interface{})      { Get(CategoryPatch).Info(format, args...) }
func PatchDebug(format string, args ...interface{}) { Get(CategoryPatch).Debug(format, args...) }
func PatchWarn(format string, args ...interface{})  { Get(CategoryPatch).Warn(format, args...) }

func Watcher(format string, args ...interface{})      { Get(CategoryWatcher).Info(format, args...) }
func WatcherDebug(format string, args ...interface{}) { Get(CategoryWatcher).Debug(format, args...) }
func WatcherWarn(format string, args ...interface{})  { Get(CategoryWatcher).Warn(format, args...) }
func WatcherError(format string, args ...interface{}) { Get(CategoryWatcher).Error(format, args...) }

func Remote(format string, args ...interface{})      { Get(CategoryRemote).Info(format, args...) }
func RemoteDebug(format string, args ...interface{}) { Get(CategoryRemote).Debug(format, args...) }
func RemoteWarn(format string, args ...interface{})  { Get(CategoryRemote).Warn(format, args...) }
func RemoteError(format string, args ...interface{}) { Get(CategoryRemote).Error(format, args...) }

func Gate(format string, args ...interface{})      { Get(CategoryGate).Info(format, args...) }
func GateDebug(format string, args ...interface{}) { Get(CategoryGate).Debug(format, args...) }
func GateWarn(format string, args ...interface{})  { Get(CategoryGate).Warn(format, args...) }
func GateError(format string, args ...interface{}) { Get(CategoryGate).Error(format, args...) }

func Tactile(format string, args ...interface{})      { Get(CategoryTactile).Info(format, args...) }
func TactileDebug(format string, args ...interface{}) { Get(CategoryTactile).Debug(format, args...) }
func TactileWarn(format string, args ...interface{})  { Get(CategoryTactile).Warn(format, args...) }

func Store(format string, args ...interface{})      { Get(CategoryStore).Info(format, args...) }
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }
func StoreWarn(format string, args ...interface{})  { Get(CategoryStore).Warn(format, args...) }

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

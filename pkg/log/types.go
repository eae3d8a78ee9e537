package log

// Logger is a logger interface.
type Logger interface {
	// Debug logs a message for low-level debugging.
	// keysAndValues lets you add structured context (e.g., "address", addr).
	Debug(msg string, keysAndValues ...any)
	// Info logs routine events or state changes.
	Info(msg string, keysAndValues ...any)
	// Warn logs unexpected situations the caller can recover from.
	Warn(msg string, keysAndValues ...any)
	// Error logs a failure that needs attention.
	Error(msg string, keysAndValues ...any)
	// Fatal logs a critical error and terminates the program.
	Fatal(msg string, keysAndValues ...any)
	// WithKV returns a logger with an extra key-value pair for all future logs.
	WithKV(key string, value any) Logger
	// GetAllKV returns all persistent key-value pairs for this logger.
	GetAllKV() []any
	// WithName returns a logger with a specific name (e.g., module or component).
	WithName(name string) Logger
	// Name returns the logger's name.
	Name() string
}

// Level represents the severity level of a log message.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)

// Package log provides a structured logging interface for the pipeline.
//
// The interface is slog-compatible so implementations can be swapped; the
// default provider is backed by zerolog. Standard attribute keys keep field
// names consistent across packages for later log analysis.
package log

import "context"

// Logger is a minimal structured logging interface. Fields are alternating
// key/value pairs, as in log/slog.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)
	// Info logs general operational information.
	Info(msg string, fields ...any)
	// Warn logs potentially problematic conditions that do not stop the run.
	Warn(msg string, fields ...any)
	// Error logs failure conditions. An error value passed as a field value
	// is rendered with its message and, when available, its stack trace.
	Error(msg string, fields ...any)
	// With returns a Logger that includes the given fields in every record.
	With(fields ...any) Logger
	// Enabled reports whether records at the given level are emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level, value-compatible with slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Standard attribute keys. Using these instead of ad-hoc strings keeps the
// emitted records filterable across components.
const (
	// ComponentKey identifies the package or component emitting the record.
	ComponentKey = "ml.component"

	// OperationKey names the operation, e.g. "fit", "predict", "transform".
	OperationKey = "ml.operation"

	// ModelNameKey identifies the estimator type, e.g. "FastICA".
	ModelNameKey = "model.name"

	// DatasetKey names the dataset being processed.
	DatasetKey = "data.dataset"

	// SamplesKey is the number of samples (rows) processed.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of features (columns) processed.
	FeaturesKey = "data.features"

	// ClassesKey is the set or number of class labels involved.
	ClassesKey = "data.classes"

	// AccuracyKey is a scalar accuracy in [0, 1].
	AccuracyKey = "metric.accuracy"

	// DurationSecondsKey is the wall-clock duration of an operation.
	DurationSecondsKey = "perf.duration_seconds"
)

// Package logging provides the structured JSON logger shared by the
// engine and store. Output goes to stdout or to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects log level and destination. The rotation fields only
// apply when Output is "file".
type Config struct {
	Level      string `mapstructure:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format     string `mapstructure:"format" json:"format" validate:"omitempty,oneof=json text"`
	Output     string `mapstructure:"output" json:"output" validate:"omitempty,oneof=stdout stderr file"`
	FilePath   string `mapstructure:"file_path" json:"file_path"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

// Logger provides structured logging with engine-specific helpers.
type Logger struct {
	*slog.Logger
}

// New creates a logger from config. A zero Config logs JSON to stdout at
// info level.
func New(cfg Config) *Logger {
	var out io.Writer = os.Stdout
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	case "file":
		if cfg.FilePath != "" {
			out = &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			}
		}
	}

	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RecomputeLogger logs a completed offer score recomputation.
func (l *Logger) RecomputeLogger(tenderID, offerID string, evaluations, attempts int, duration time.Duration) {
	l.Info("Offer Scores Recomputed",
		"tender_id", tenderID,
		"offer_id", offerID,
		"evaluations", evaluations,
		"attempts", attempts,
		"duration_ms", duration.Milliseconds(),
	)
}

// ConflictLogger logs a score write that lost the version race.
func (l *Logger) ConflictLogger(offerID string, attempt int) {
	l.Warn("Score Write Conflict",
		"offer_id", offerID,
		"attempt", attempt,
	)
}

// AnalysisLogger logs one analysis section of a tender report.
func (l *Logger) AnalysisLogger(tenderID, analysisType string, performed bool, duration time.Duration) {
	l.Info("Analysis Completed",
		"tender_id", tenderID,
		"analysis_type", analysisType,
		"performed", performed,
		"duration_ms", duration.Milliseconds(),
	)
}

// ReportLogger logs an assembled tender report.
func (l *Logger) ReportLogger(tenderID string, evaluations, offers int, duration time.Duration) {
	l.Info("Tender Report Built",
		"tender_id", tenderID,
		"evaluations", evaluations,
		"offers", offers,
		"duration_ms", duration.Milliseconds(),
	)
}

// SuggestionLogger logs a produced score suggestion.
func (l *Logger) SuggestionLogger(offerID, criterionID string, score, confidence float64) {
	l.Info("Score Suggested",
		"offer_id", offerID,
		"criterion_id", criterionID,
		"suggested_score", score,
		"confidence", confidence,
	)
}

// Package audit writes an append-only JSON-lines record of every ingestion
// attempt. The operational log rotates and answers "who pushed what, when"
// questions without querying the database.
package audit

import (
	"log/slog"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger records ingestion outcomes to a rotated file.
type Logger struct {
	log *slog.Logger
	out *lumberjack.Logger
}

// New opens the audit log under dir. Rotation keeps at most 90 days so the
// file stays within the same retention horizon as the database itself.
func New(dir string) *Logger {
	out := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "ingest-audit.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 10,
		MaxAge:     90, // days
		Compress:   true,
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})
	return &Logger{log: slog.New(handler), out: out}
}

// Disabled returns a Logger that discards everything.
func Disabled() *Logger {
	return &Logger{log: slog.New(slog.DiscardHandler)}
}

// Snapshot records one snapshot submission outcome.
func (l *Logger) Snapshot(centerCode string, date time.Time, accepted bool, reason string) {
	l.log.Info("snapshot",
		slog.String("center", centerCode),
		slog.String("date", date.Format("2006-01-02")),
		slog.Bool("accepted", accepted),
		slog.String("reason", reason))
}

// Event records one real-time event outcome.
func (l *Logger) Event(centerCode, eventType string, accepted bool, reason string) {
	l.log.Info("event",
		slog.String("center", centerCode),
		slog.String("type", eventType),
		slog.Bool("accepted", accepted),
		slog.String("reason", reason))
}

// AdminPurge records an administrative data purge.
func (l *Logger) AdminPurge(centerCode string) {
	l.log.Info("admin_purge", slog.String("center", centerCode))
}

// Close flushes and closes the underlying file.
func (l *Logger) Close() error {
	if l.out == nil {
		return nil
	}
	return l.out.Close()
}

package tasks

import (
	"context"
	"log/slog"
)

// Progress is one per-row progress report.
type Progress struct {
	RunID    string `json:"run_id"`
	FileName string `json:"file_name"`
	Sheet    string `json:"sheet"`
	Row      int    `json:"row"`
	Percent  int    `json:"percent"`
}

// ProgressSink receives per-row progress reports during iteration.
type ProgressSink interface {
	Publish(ctx context.Context, p Progress) error
}

// LogSink reports progress through the logger. It is the default sink
// when no external publisher is wired.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(_ context.Context, p Progress) error {
	s.log.Debug("ingest progress",
		slog.String("run_id", p.RunID),
		slog.String("file", p.FileName),
		slog.String("sheet", p.Sheet),
		slog.Int("row", p.Row),
		slog.Int("percent", p.Percent))
	return nil
}

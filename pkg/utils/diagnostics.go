package utils

import "go.uber.org/zap"

// Diagnostics receives structured internal events (dropped records, parse
// fallbacks, discarded stale responses) so a host application can wire them
// to real observability instead of scraping log lines.
type Diagnostics interface {
	Event(name string, fields map[string]any)
}

type zapDiagnostics struct {
	log *zap.Logger
}

// NewDiagnostics returns a Diagnostics that reports events through the
// application logger.
func NewDiagnostics(log *zap.Logger) Diagnostics {
	return &zapDiagnostics{log: log.With(zap.String("channel", "diagnostics"))}
}

func (d *zapDiagnostics) Event(name string, fields map[string]any) {
	d.log.Info(name, zap.Any("fields", fields))
}

// NopDiagnostics discards all events.
type NopDiagnostics struct{}

func (NopDiagnostics) Event(string, map[string]any) {}

/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package audit

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/metrics"
)

// Sink defines the interface for audit event destinations.
type Sink interface {
	// Write sends an audit event to the sink.
	Write(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

// LogSink writes audit events to a structured logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Write logs the audit event.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Time("timestamp", event.Timestamp),
		zap.String("source", string(event.Source)),
		zap.String("provider", event.Provider),
		zap.String("subject", event.Subject),
		zap.Int("recipients", event.Recipients),
		zap.Int("successful", event.Successful),
		zap.Int("failed", event.Failed),
		zap.Int("batches", event.Batches),
		zap.Int64("duration_ms", event.DurationMs),
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("request_id", event.RequestID))
	}

	s.logger.Info("audit_event", fields...)
	return nil
}

// Close is a no-op for LogSink.
func (s *LogSink) Close() error {
	return nil
}

// Name returns the sink identifier.
func (s *LogSink) Name() string {
	return "log"
}

// MultiSink writes every event to all of its sinks. A failing sink is logged
// and counted but never fails the caller.
type MultiSink struct {
	sinks  []Sink
	logger *zap.Logger
}

func NewMultiSink(logger *zap.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks, logger: logger.Named("audit")}
}

func (m *MultiSink) Write(ctx context.Context, event *Event) error {
	for _, sink := range m.sinks {
		if err := sink.Write(ctx, event); err != nil {
			metrics.AuditSinkErrors.WithLabelValues(sink.Name()).Inc()
			m.logger.Warn("audit sink write failed",
				zap.String("sink", sink.Name()),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Name() string {
	return "multi"
}

// Sinks returns the names of the wrapped sinks.
func (m *MultiSink) Sinks() []string {
	names := make([]string, 0, len(m.sinks))
	for _, sink := range m.sinks {
		names = append(names, sink.Name())
	}
	return names
}

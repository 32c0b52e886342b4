package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogSender logs messages instead of sending them. Useful for development.
type LogSender struct {
	log *zap.SugaredLogger
}

func NewLogSender(log *zap.SugaredLogger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Infow("Email not sent (log provider)",
		"to", msg.To,
		"subject", msg.Subject,
		"bodyLength", len(msg.Text))
	return nil
}

func (s *LogSender) Name() string {
	return string(ProviderLog)
}

package mail

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/telekom/csv-mailer/pkg/config"
	"github.com/telekom/csv-mailer/pkg/metrics"
)

// Provider names a mail backend.
type Provider string

const (
	ProviderSendGrid Provider = "sendgrid"
	ProviderResend   Provider = "resend"
	ProviderGmail    Provider = "gmail"
	ProviderSMTP     Provider = "smtp"
	// ProviderLog writes messages to the log instead of sending them.
	ProviderLog Provider = "log"
)

// Providers lists the recognised provider names.
func Providers() []Provider {
	return []Provider{ProviderSendGrid, ProviderResend, ProviderGmail, ProviderSMTP, ProviderLog}
}

// NewSender returns the sender for cfg.Provider. It never returns nil: a
// provider that is unknown or missing required settings yields a sender whose
// every Send fails with that configuration error, so each recipient routed
// through it is counted as a failure.
func NewSender(cfg config.Mail, log *zap.SugaredLogger) Sender {
	provider := Provider(cfg.Provider)
	s, err := newProviderSender(provider, cfg, log)
	if err != nil {
		log.Warnw("Mail provider unavailable, every send will fail",
			"provider", cfg.Provider,
			"error", err)
		s = &unavailableSender{name: string(provider), err: err}
	}
	return &meteredSender{next: s}
}

// Check reports the configuration error NewSender would bake into its
// sender, or nil when cfg is usable.
func Check(cfg config.Mail) error {
	_, err := newProviderSender(Provider(cfg.Provider), cfg, zap.NewNop().Sugar())
	return err
}

func newProviderSender(provider Provider, cfg config.Mail, log *zap.SugaredLogger) (Sender, error) {
	switch provider {
	case ProviderSendGrid:
		return NewSendGridSender(cfg.SendGrid, cfg.FromEmail)
	case ProviderResend:
		return NewResendSender(cfg.Resend, cfg.FromEmail)
	case ProviderGmail:
		return NewGmailSender(cfg.Gmail)
	case ProviderSMTP:
		return NewSMTPSender(cfg.SMTP)
	case ProviderLog:
		return NewLogSender(log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

type unavailableSender struct {
	name string
	err  error
}

func (s *unavailableSender) Send(context.Context, Message) error {
	return s.err
}

func (s *unavailableSender) Name() string {
	return s.name
}

// meteredSender counts outcomes per provider.
type meteredSender struct {
	next Sender
}

func (s *meteredSender) Send(ctx context.Context, msg Message) error {
	if err := s.next.Send(ctx, msg); err != nil {
		metrics.MailSendFailure.WithLabelValues(s.next.Name()).Inc()
		return err
	}
	metrics.MailSendSuccess.WithLabelValues(s.next.Name()).Inc()
	return nil
}

func (s *meteredSender) Name() string {
	return s.next.Name()
}

package mail

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/telekom/csv-mailer/pkg/config"
)

const (
	gmailHost = "smtp.gmail.com"
	gmailPort = 465
)

// SMTPSender delivers through an SMTP relay. It backs both the gmail and the
// smtp providers; the from address is always the authenticating user.
type SMTPSender struct {
	name   Provider
	dialer *gomail.Dialer
	from   string
}

// NewGmailSender connects to smtp.gmail.com:465 over implicit TLS with an
// app password.
func NewGmailSender(cfg config.Gmail) (*SMTPSender, error) {
	if missing := missingFields(map[string]string{
		"GMAIL_USER":         cfg.User,
		"GMAIL_APP_PASSWORD": cfg.AppPassword,
	}); len(missing) > 0 {
		return nil, fmt.Errorf("%w: gmail requires %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	d := gomail.NewDialer(gmailHost, gmailPort, cfg.User, cfg.AppPassword)
	d.SSL = true
	return &SMTPSender{name: ProviderGmail, dialer: d, from: cfg.User}, nil
}

// NewSMTPSender uses implicit TLS on port 465 and opportunistic STARTTLS on
// any other port.
func NewSMTPSender(cfg config.SMTP) (*SMTPSender, error) {
	if missing := missingFields(map[string]string{
		"SMTP_HOST": cfg.Host,
		"SMTP_USER": cfg.User,
		"SMTP_PASS": cfg.Password,
	}); len(missing) > 0 {
		return nil, fmt.Errorf("%w: smtp requires %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	port, err := parsePort(cfg.Port)
	if err != nil {
		return nil, err
	}
	d := gomail.NewDialer(cfg.Host, port, cfg.User, cfg.Password)
	d.SSL = port == 465
	return &SMTPSender{name: ProviderSMTP, dialer: d, from: cfg.User}, nil
}

// Send dials a fresh connection per message. gomail has no context support,
// so ctx is only checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	m.AddAlternative("text/html", msg.HTML)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("%s: failed to send email: %w", s.name, err)
	}
	return nil
}

func (s *SMTPSender) Name() string {
	return string(s.name)
}

// parsePort reads SMTP_PORT. Empty means config.DefaultSMTPPort.
func parsePort(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return config.DefaultSMTPPort, nil
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("%w: smtp: invalid SMTP_PORT %q", ErrInvalidConfig, raw)
	}
	return port, nil
}

// missingFields returns the sorted names of empty values.
func missingFields(fields map[string]string) []string {
	var missing []string
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

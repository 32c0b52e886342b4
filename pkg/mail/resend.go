package mail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/telekom/csv-mailer/pkg/config"
)

// ResendSender sends emails using the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

// NewResendSender requires both the API key and the from address.
func NewResendSender(cfg config.Resend, from string) (*ResendSender, error) {
	if missing := missingFields(map[string]string{
		"RESEND_API_KEY": cfg.APIKey,
		"FROM_EMAIL":     from,
	}); len(missing) > 0 {
		return nil, fmt.Errorf("%w: resend requires %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("resend: invalid base URL %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}
	return &ResendSender{client: client, from: from}, nil
}

func (s *ResendSender) Send(ctx context.Context, msg Message) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: failed to send email: %w", err)
	}
	return nil
}

func (s *ResendSender) Name() string {
	return string(ProviderResend)
}

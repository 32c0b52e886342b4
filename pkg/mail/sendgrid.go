package mail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/telekom/csv-mailer/pkg/config"
	"github.com/telekom/csv-mailer/pkg/version"
)

const (
	DefaultSendGridBaseURL = "https://api.sendgrid.com"
	sendGridSendPath       = "/v3/mail/send"
	sendGridTimeout        = 30 * time.Second
)

type sendGridAddress struct {
	Email string `json:"email"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

type sendGridError struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	} `json:"errors"`
}

func (e *sendGridError) String() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}
	return strings.Join(msgs, "; ")
}

// SendGridSender posts to the SendGrid v3 mail API.
type SendGridSender struct {
	client *resty.Client
	from   string
}

// NewSendGridSender requires both the API key and the from address.
func NewSendGridSender(cfg config.SendGrid, from string) (*SendGridSender, error) {
	if missing := missingFields(map[string]string{
		"SENDGRID_API_KEY": cfg.APIKey,
		"FROM_EMAIL":       from,
	}); len(missing) > 0 {
		return nil, fmt.Errorf("%w: sendgrid requires %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultSendGridBaseURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("User-Agent", version.UserAgent()).
		SetTimeout(sendGridTimeout)

	return &SendGridSender{client: client, from: from}, nil
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	payload := sendGridRequest{
		Personalizations: []sendGridPersonalization{{To: []sendGridAddress{{Email: msg.To}}}},
		From:             sendGridAddress{Email: s.from},
		Subject:          msg.Subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: msg.Text},
			{Type: "text/html", Value: msg.HTML},
		},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(payload).
		SetError(&sendGridError{}).
		Post(sendGridSendPath)
	if err != nil {
		return fmt.Errorf("sendgrid: failed to send email: %w", err)
	}
	if resp.IsError() {
		if apiErr, ok := resp.Error().(*sendGridError); ok && len(apiErr.Errors) > 0 {
			return fmt.Errorf("sendgrid: status %d: %s", resp.StatusCode(), apiErr)
		}
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode())
	}
	return nil
}

func (s *SendGridSender) Name() string {
	return string(ProviderSendGrid)
}

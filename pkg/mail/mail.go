package mail

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrMissingConfig is returned by every send of a provider whose required
	// settings are absent.
	ErrMissingConfig = errors.New("mail provider configuration missing")
	// ErrInvalidConfig is returned by every send of a provider whose settings
	// are present but unusable.
	ErrInvalidConfig = errors.New("mail provider configuration invalid")
	// ErrUnknownProvider is returned by every send when the provider name is
	// not recognised.
	ErrUnknownProvider = errors.New("unknown email provider")
)

// Message is a single email to a single recipient.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// NewMessage builds the message for to. The HTML part is the body with every
// newline replaced by <br>.
func NewMessage(to, subject, body string) Message {
	return Message{
		To:      to,
		Subject: subject,
		Text:    body,
		HTML:    RenderHTML(body),
	}
}

// RenderHTML turns a plain text body into the HTML part.
func RenderHTML(body string) string {
	return strings.ReplaceAll(body, "\n", "<br>")
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	// Name identifies the provider in logs and metrics.
	Name() string
}

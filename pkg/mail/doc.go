// Package mail provides the provider adapters used to deliver one message to
// one recipient: SendGrid (v3 REST), Resend, Gmail SMTP and generic SMTP,
// selected by a single provider name.
package mail

// Package mailer delivers the account emails: address verification and
// password reset.
package mailer

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender sends through an SMTP relay.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	if from == "" {
		from = username
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. It is used
// when no SMTP relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	slog.Info("Email not sent (no SMTP relay configured)", "to", to, "subject", subject, "body", htmlBody)
	return nil
}

var linkTemplate = template.Must(template.New("link").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2>{{.Title}}</h2>
  <p>{{.Intro}}</p>
  <a href="{{.URL}}" style="display: inline-block; padding: 10px 20px; background: #00466a; color: #fff; text-decoration: none; border-radius: 4px; margin: 20px 0;">{{.Action}}</a>
  <p>If the button doesn't work, use this link:</p>
  <p>{{.URL}}</p>
  <p style="margin-top: 20px;">This link will expire in {{.Expiry}}.</p>
</div>`))

type linkEmail struct {
	Title, Intro, Action, URL, Expiry string
}

func render(e linkEmail) (string, error) {
	var sb strings.Builder
	if err := linkTemplate.Execute(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// VerificationEmail renders the address verification message.
func VerificationEmail(url string) (subject, body string, err error) {
	body, err = render(linkEmail{
		Title:  "Email Verification",
		Intro:  "Please verify your email address to activate your account.",
		Action: "Verify Email",
		URL:    url,
		Expiry: "24 hours",
	})
	return "Email Verification", body, err
}

// ResetEmail renders the password reset message.
func ResetEmail(url string) (subject, body string, err error) {
	body, err = render(linkEmail{
		Title:  "Password Reset",
		Intro:  "A password reset was requested for your account.",
		Action: "Reset Password",
		URL:    url,
		Expiry: "1 hour",
	})
	return "Password Reset", body, err
}

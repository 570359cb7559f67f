package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("pathwise.lib.mailer")

type Config struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// display name used in the From header
	FromName string `json:"from_name"`
}

func (c Config) Configured() bool {
	return c.Server != "" && c.Port != 0 && c.EmailAddress != ""
}

type Mailer struct {
	config Config
}

func New(config Config) Mailer {
	if config.FromName == "" {
		config.FromName = "Pathwise"
	}
	return Mailer{config: config}
}

func (m Mailer) addr() string {
	return fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)
}

// Send delivers a plain text email. Servers that do not support AUTH are
// retried without credentials.
func (m Mailer) Send(ctx context.Context, to, subject, body string) error {
	_, span := tracer.Start(ctx, "mailer:Send")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", m.config.FromName, m.config.EmailAddress)
	mail.To = []string{to}
	mail.Subject = subject
	mail.Text = []byte(body)

	err := mail.Send(
		m.addr(),
		smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(m.addr(), nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}

// SendWelcome sends the registration greeting.
func (m Mailer) SendWelcome(ctx context.Context, to, firstName string) error {
	body := fmt.Sprintf(`Hi %s,

Welcome to Pathwise! Your account is ready. Browse curated learning
resources, join the discussions and build your learning path.

You can turn off these emails at any time in your profile preferences.`, firstName)
	return m.Send(ctx, to, "Welcome to Pathwise", body)
}

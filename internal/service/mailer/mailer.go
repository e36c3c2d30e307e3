// Package mailer delivers e-mails to users.
package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/nkiryanov/gopherreset/internal/logger"
)

const defaultSMTPPort = 587

type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers message or returns error
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string

	// Require STARTTLS. If false TLS is used only when server supports it
	RequireTLS bool
}

type SMTPSender struct {
	client *mail.Client
	logger logger.Logger
}

func NewSMTPSender(cfg SMTPConfig, l logger.Logger) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host must be set")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	policy := mail.TLSOpportunistic
	if cfg.RequireTLS {
		policy = mail.TLSMandatory
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(policy),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("error while creating smtp client. Err: %w", err)
	}

	return &SMTPSender{client: client, logger: l}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := newMsg(msg)
	if err != nil {
		return err
	}

	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("error while sending email. Err: %w", err)
	}

	s.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

func newMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q. Err: %w", msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q. Err: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}

	return m, nil
}

// LogSender only logs messages, useful when no smtp server configured
type LogSender struct {
	logger logger.Logger
}

func NewLogSender(l logger.Logger) *LogSender {
	if l == nil {
		l = logger.NewNoOpLogger()
	}
	return &LogSender{logger: l}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email not sent, smtp is not configured", "to", msg.To, "subject", msg.Subject)
	s.logger.Debug("email body", "to", msg.To, "text", msg.Text)
	return nil
}

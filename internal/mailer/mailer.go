// Package mailer sends transactional HTML mail over SMTP.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/gogotex/gogotex/backend/crud-service/internal/apperrors"
	"github.com/gogotex/gogotex/backend/crud-service/internal/config"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/logger"
	"github.com/gogotex/gogotex/backend/crud-service/pkg/metrics"
)

// Message is one outgoing mail. Address fields accept comma separated lists.
type Message struct {
	To      string
	Subject string
	Body    string
	Cc      string
	Bcc     string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer sends through an authenticated SMTP server using implicit TLS
// on port 465 and STARTTLS otherwise.
type SMTPMailer struct {
	cfg  config.MailerConfig
	send func(ctx context.Context, m *mail.Msg) error
}

func NewSMTPMailer(cfg config.MailerConfig) *SMTPMailer {
	s := &SMTPMailer{cfg: cfg}
	s.send = s.dialAndSend
	return s
}

// Send validates and delivers msg. A missing recipient or subject is a
// BadRequest; transport failures are returned wrapped.
func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	m, err := s.build(msg)
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		metrics.MailsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	metrics.MailsSent.WithLabelValues("sent").Inc()
	logger.WithTag("Mailer").Debugf("sent %q to %s", msg.Subject, msg.To)
	return nil
}

func (s *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	to := splitAddrs(msg.To)
	if len(to) == 0 || strings.TrimSpace(msg.Subject) == "" {
		return nil, apperrors.BadRequest("Receiver mail and subject cannot be null or empty")
	}
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("mail sender %q: %w", s.cfg.From, err)
	}
	if err := m.To(to...); err != nil {
		return nil, apperrors.Wrap(apperrors.KindBadRequest, err.Error(), err)
	}
	if cc := splitAddrs(msg.Cc); len(cc) > 0 {
		if err := m.Cc(cc...); err != nil {
			return nil, apperrors.Wrap(apperrors.KindBadRequest, err.Error(), err)
		}
	}
	if bcc := splitAddrs(msg.Bcc); len(bcc) > 0 {
		if err := m.Bcc(bcc...); err != nil {
			return nil, apperrors.Wrap(apperrors.KindBadRequest, err.Error(), err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.Body)
	return m, nil
}

func (s *SMTPMailer) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	}
	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

func splitAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// LogMailer stands in when no SMTP server is configured: messages are
// logged and dropped.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, msg Message) error {
	if len(splitAddrs(msg.To)) == 0 || strings.TrimSpace(msg.Subject) == "" {
		return apperrors.BadRequest("Receiver mail and subject cannot be null or empty")
	}
	logger.WithTag("Mailer").Infof("mail disabled; dropping %q to %s", msg.Subject, msg.To)
	return nil
}

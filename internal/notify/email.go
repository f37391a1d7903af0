package notify

import (
	"github.com/pkg/errors"
	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig holds the email transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPSender sends alert emails over SMTP.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password)
	dialer.SSL = cfg.Port == 465
	return &SMTPSender{cfg: cfg, dialer: dialer}
}

// SendEmail delivers a plain-text message. One attempt, no retry.
func (s *SMTPSender) SendEmail(subject, body, destination string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", destination)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "could not send email to %s", destination)
	}
	return nil
}

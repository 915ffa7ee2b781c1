package utils

import (
	"io"

	"gopkg.in/gomail.v2"
)

// EmailConfig holds email configuration
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Attachment is an in-memory file attached to an email
type Attachment struct {
	Name string
	Data []byte
}

// Mailer sends transactional email over SMTP
type Mailer interface {
	Send(to, subject, htmlBody string, attachments ...Attachment) error
}

// SMTPMailer is the gomail backed Mailer
type SMTPMailer struct {
	config EmailConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a Mailer for the given SMTP settings
func NewSMTPMailer(config EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// Send sends an HTML email with optional attachments
func (m *SMTPMailer) Send(to, subject, htmlBody string, attachments ...Attachment) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.config.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	for _, a := range attachments {
		data := a.Data
		msg.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m.dialer.DialAndSend(msg)
}

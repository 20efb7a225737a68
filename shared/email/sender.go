package email

import (
	"fmt"
	"net/smtp"

	"trendwatch/shared/config"
)

// Sender delivers run reports over SMTP.
type Sender struct {
	config *config.EmailConfig
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
	}
}

// SendReport emails the Markdown report as a plain-text body.
func (s *Sender) SendReport(subject, markdown string) error {
	if markdown == "" {
		return fmt.Errorf("report cannot be empty")
	}

	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/plain; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, markdown))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.FromEmail, to, msg)
}

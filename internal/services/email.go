package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/taskflow/backend/internal/config"
	"github.com/taskflow/backend/pkg/logger"
)

type mailTransport func(ctx context.Context, to, subject, html string) error

// EmailService delivers HTML mail through SMTP or SendGrid.
type EmailService struct {
	cfg       config.EmailConfig
	transport mailTransport
}

func NewEmailService(cfg config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	switch cfg.Provider {
	case "sendgrid":
		s.transport = s.sendViaSendGrid
	default:
		s.transport = s.sendViaSMTP
	}
	return s
}

// Configured reports whether the selected provider has enough settings to send.
func (s *EmailService) Configured() bool {
	if s.cfg.Provider == "sendgrid" {
		return s.cfg.SendGridAPIKey != "" && s.fromAddress() != ""
	}
	return s.cfg.Host != ""
}

// Send delivers one message and reports success. Failures are logged, never returned.
func (s *EmailService) Send(ctx context.Context, to, subject, html string) bool {
	if !s.Configured() {
		logger.Warn().Str("to", to).Msg("[Email] provider not configured, message dropped")
		return false
	}
	if _, err := mail.ParseAddress(to); err != nil {
		logger.Warn().Str("to", to).Err(err).Msg("[Email] invalid recipient")
		return false
	}
	if err := s.transport(ctx, to, subject, html); err != nil {
		logger.Error().Str("provider", s.cfg.Provider).Str("to", to).Err(err).Msg("[Email] send failed")
		return false
	}
	logger.Info().Str("provider", s.cfg.Provider).Str("to", to).Msg("[Email] sent")
	return true
}

func (s *EmailService) fromAddress() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.Username
}

func (s *EmailService) sendViaSendGrid(ctx context.Context, to, subject, html string) error {
	from := sgmail.NewEmail(s.cfg.FromName, s.fromAddress())
	message := sgmail.NewSingleEmail(from, subject, sgmail.NewEmail("", to), stripTags(html), html)
	client := sendgrid.NewSendClient(s.cfg.SendGridAPIKey)
	resp, err := client.SendWithContext(ctx, message)
	if err != nil {
		return &ExternalServiceError{Provider: "sendgrid", Err: err}
	}
	if resp.StatusCode >= 400 {
		return &ExternalServiceError{Provider: "sendgrid", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

func (s *EmailService) sendViaSMTP(_ context.Context, to, subject, html string) error {
	from := s.fromAddress()
	if from == "" {
		return errors.New("smtp: no sender address configured")
	}
	fromHeader := (&mail.Address{Name: s.cfg.FromName, Address: from}).String()

	var message strings.Builder
	message.WriteString("From: " + fromHeader + "\r\n")
	message.WriteString("To: " + to + "\r\n")
	message.WriteString("Subject: " + mime.BEncoding.Encode("UTF-8", subject) + "\r\n")
	message.WriteString("MIME-Version: 1.0\r\n")
	message.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(html)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.UseTLS {
		return s.sendSMTPTLS(addr, auth, from, to, message.String())
	}
	return smtp.SendMail(addr, auth, from, []string{to}, []byte(message.String()))
}

// sendSMTPTLS speaks SMTP over an implicit TLS connection (port 465 style).
func (s *EmailService) sendSMTPTLS(addr string, auth smtp.Auth, from, to, message string) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}

	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(message)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// stripTags produces a rough plain-text alternative for multipart providers.
func stripTags(html string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

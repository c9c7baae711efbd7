package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPConfig describes the relay used by SMTPSender.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
	Brand    string
	// Validity is printed in the message body. Zero omits the line.
	Validity time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender delivers HTML passcode emails through an SMTP relay.
type SMTPSender struct {
	config SMTPConfig
	auth   smtp.Auth
	send   sendFunc
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPSender{
		config: cfg,
		auth:   auth,
		send:   smtp.SendMail,
	}, nil
}

func (s *SMTPSender) SendOTP(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("%w: invalid recipient", ErrDelivery)
	}

	body, err := RenderOTP(s.config.Brand, code, s.config.Validity)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	msg := buildMessage(s.config.From, to, s.config.Subject, body)

	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	if err := s.send(addr, s.auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

package mail

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrDelivery wraps every transport failure returned by a Sender.
var ErrDelivery = errors.New("mail delivery failed")

// Sender delivers a passcode to an email address.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, code string) error

func (f SenderFunc) SendOTP(ctx context.Context, to, code string) error {
	return f(ctx, to, code)
}

//go:embed templates/*.html
var templateFS embed.FS

var otpTemplate = template.Must(template.ParseFS(templateFS, "templates/otp.html"))

// DefaultSubject is used when a sender is configured without one.
const DefaultSubject = "BlockQuest - Email Verification Code"

type otpView struct {
	Brand    string
	Code     string
	Validity string
	Year     int
}

// RenderOTP returns the HTML body for code.
func RenderOTP(brand, code string, validity time.Duration) (string, error) {
	if brand == "" {
		brand = "BlockQuest"
	}
	var buf bytes.Buffer
	err := otpTemplate.Execute(&buf, otpView{
		Brand:    brand,
		Code:     code,
		Validity: formatValidity(validity),
		Year:     time.Now().Year(),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatValidity(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// LogSender logs the code instead of sending it.
type LogSender struct {
	logger logrus.FieldLogger
}

func NewLogSender(logger logrus.FieldLogger) *LogSender {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendOTP(_ context.Context, to, code string) error {
	s.logger.WithFields(logrus.Fields{
		"to":  to,
		"otp": code,
	}).Info("otp email (log sender)")
	return nil
}

package util

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Email is one outbound message.
type Email struct {
	ToName    string
	ToAddress string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer delivers outbound email. A nil error means the provider accepted it.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

var (
	// ErrMailRejected wraps non-2xx answers from the mail provider.
	ErrMailRejected = errors.New("mail provider rejected message")
	// ErrMailNotConfigured is returned by LogMailer, which never delivers.
	ErrMailNotConfigured = errors.New("mail delivery is not configured")
)

// SendGridMailer delivers mail through the SendGrid v3 API.
type SendGridMailer struct {
	client      *sendgrid.Client
	fromAddress string
	fromName    string
}

// NewSendGridMailer returns a mailer bound to apiKey and the sender identity.
func NewSendGridMailer(apiKey, fromAddress, fromName string) *SendGridMailer {
	return &SendGridMailer{
		client:      sendgrid.NewSendClient(apiKey),
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.ToAddress == "" {
		return errors.New("recipient address is required")
	}
	from := mail.NewEmail(m.fromName, m.fromAddress)
	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrMailRejected, resp.StatusCode)
	}
	return nil
}

// LogMailer records messages in the process log instead of sending them
// and always reports ErrMailNotConfigured. Bodies carry codes and reset
// links, so they are only written when LogBodies is set.
type LogMailer struct {
	Logger    *log.Logger
	LogBodies bool
}

func (m LogMailer) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := m.Logger
	if logger == nil {
		logger = log.Default()
	}
	if m.LogBodies {
		logger.Printf("[MAIL] not delivered to=%s subject=%q body=%q",
			sanitizeLogValue(msg.ToAddress), sanitizeLogValue(msg.Subject), sanitizeLogValue(msg.PlainText))
	} else {
		logger.Printf("[MAIL] not delivered to=%s subject=%q",
			sanitizeLogValue(msg.ToAddress), sanitizeLogValue(msg.Subject))
	}
	return ErrMailNotConfigured
}

// NewMailer picks SendGrid when apiKey is set and the log mailer otherwise.
// Message bodies reach the log only when appEnv is "test".
func NewMailer(apiKey, fromAddress, fromName, appEnv string) Mailer {
	if apiKey == "" {
		log.Println("SENDGRID_API_KEY not set, outbound mail will not be delivered")
		return LogMailer{LogBodies: appEnv == "test"}
	}
	return NewSendGridMailer(apiKey, fromAddress, fromName)
}

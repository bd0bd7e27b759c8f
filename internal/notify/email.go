// Package notify delivers confirmation and reminder emails. Delivery is
// best-effort: a booking that is already durably secured is never rolled
// back because mail could not be sent.
package notify

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// EmailSender sends HTML mail over SMTP.
type EmailSender struct {
	cfg    SMTPConfig
	logger *zerolog.Logger
}

// NewEmailSender validates the transport settings and builds a sender.
func NewEmailSender(cfg SMTPConfig, logger *zerolog.Logger) (*EmailSender, error) {
	if cfg.Host == "" || cfg.Port == 0 || cfg.User == "" || cfg.Pass == "" {
		return nil, fmt.Errorf("smtp configuration missing")
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &EmailSender{cfg: cfg, logger: logger}, nil
}

// Send delivers one message synchronously.
func (s *EmailSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// ConfirmationSubject is the subject line for booking confirmations.
const ConfirmationSubject = "Confirmed: Your Journey Begins"

// ReminderSubject is the subject line for next-day session reminders.
const ReminderSubject = "Reminder: Your Session Tomorrow"

// ConfirmationBody renders the confirmation email.
func ConfirmationBody(name, date, timeLabel, meetingLink string) string {
	return fmt.Sprintf(`
		<h2>Welcome, %s.</h2>
		<p>Your session is confirmed for <strong>%s at %s</strong>.</p>
		<p>We look forward to speaking with you.</p>
		<p><strong>Your Secure Video Link:</strong></p>
		<p><a href="%s">Join Session</a></p>
	`, name, date, timeLabel, meetingLink)
}

// ReminderBody renders the next-day reminder email.
func ReminderBody(name, timeLabel string) string {
	return fmt.Sprintf(`
		<h2>Hello %s,</h2>
		<p>This is a gentle reminder that your session is scheduled for tomorrow at <strong>%s</strong>.</p>
		<p>Please ensure you are in a quiet space 5 minutes before we begin.</p>
	`, name, timeLabel)
}

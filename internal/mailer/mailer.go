package mailer

import (
	"fmt"
	"log"
	"net/smtp"
)

// Mailer sends plain-text mail over SMTP. When no credentials are configured
// it is "not configured": callers decide whether that is fatal (production)
// or fine (local testing, where the OTP is returned in the response instead).
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func New(host, port, username, password, from string) *Mailer {
	if from == "" {
		from = username
	}
	return &Mailer{Host: host, Port: port, Username: username, Password: password, From: from}
}

// Configured reports whether SMTP credentials are present.
func (m *Mailer) Configured() bool {
	return m.Username != "" && m.Password != ""
}

// Send delivers a plain-text email to a single recipient.
func (m *Mailer) Send(to, subject, body string) error {
	if !m.Configured() {
		return fmt.Errorf("smtp is not configured")
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", m.From, to, subject, body)
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	if err := smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("Email sent to %s: %s", to, subject)
	return nil
}

// SendResetOtp mails a password reset code.
func (m *Mailer) SendResetOtp(to, otp string) error {
	body := fmt.Sprintf(
		"Your LUSTRA password reset code is %s. This code will expire in 10 minutes.",
		otp,
	)
	return m.Send(to, "LUSTRA Password Reset OTP", body)
}

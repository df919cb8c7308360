package services

import (
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendWelcomeEmail(email, username string) error
	SendResetCodeEmail(email, code string, ttl time.Duration) error
}

// mailSender is the part of *gomail.Dialer the service uses.
type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

type emailService struct {
	dialer mailSender
	from   string
}

func NewEmailService(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailService {
	dialer := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword)
	return &emailService{
		dialer: dialer,
		from:   fromEmail,
	}
}

func (s *emailService) SendWelcomeEmail(email, username string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Welcome to Job Sphere!")

	body := fmt.Sprintf(`
		<h2>Welcome to Job Sphere, %s!</h2>
		<p>Your account has been created.</p>
		<p>Set your preferred job titles and locations in your profile to get recommendations.</p>
	`, html.EscapeString(username))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send welcome email: %w", err)
	}
	return nil
}

func (s *emailService) SendResetCodeEmail(email, code string, ttl time.Duration) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Your Job Sphere reset code")

	body := fmt.Sprintf(`
		<h3>Password reset requested</h3>
		<p>Your reset code is <strong>%s</strong>. It expires in %d minutes.</p>
		<p>If you did not request this change, you can ignore this email.</p>
	`, code, int(ttl.Minutes()))

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send password reset email: %w", err)
	}
	return nil
}

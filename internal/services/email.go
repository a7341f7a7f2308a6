package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"

	"studyspot-backend/internal/logger"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
	log         *logger.Logger
	sendMail    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailService(host, port, user, pass, from, frontendURL string, log *logger.Logger) *EmailService {
	if log == nil {
		log = logger.Nop()
	}
	devMode := host == "" || user == ""
	if devMode {
		log.Warn("email service running in dev mode, messages are logged only")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
		log:         log.With("component", "EmailService"),
		sendMail:    smtp.SendMail,
	}
}

// SendReminderEmail mirrors a feed reminder into the user's inbox.
func (s *EmailService) SendReminderEmail(to, name, title, message string) error {
	subject := "StudySpot: " + title
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #f8fafc; padding: 40px 0;">
  <div style="max-width: 480px; margin: 0 auto; background: white; border-radius: 12px; padding: 32px;">
    <h2 style="color: #1e293b; margin-top: 0;">Hi %s,</h2>
    <p style="color: #475569; line-height: 1.6;">%s</p>
    <a href="%s/dashboard" style="display: inline-block; background: #4f46e5; color: white; padding: 12px 24px; border-radius: 8px; text-decoration: none;">Open StudySpot</a>
  </div>
</body>
</html>`, html.EscapeString(name), html.EscapeString(message), s.frontendURL)

	return s.sendHTML(to, subject, body)
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		s.log.Info("dev email", "email", to, "subject", subject)
		s.log.Debug("dev email body", "body", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := s.sendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	s.log.Info("email sent", "email", to, "subject", subject)
	return nil
}

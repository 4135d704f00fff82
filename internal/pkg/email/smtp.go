// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
)

// sendSMTPEmail sends email using SMTP (Gmail, Outlook, or self-hosted)
func (s *EmailService) sendSMTPEmail(email *Email) error {
	// Validate SMTP configuration
	if s.config.SMTPHost == "" || s.config.SMTPUsername == "" {
		return fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}

	// Set up authentication
	auth := smtp.PlainAuth("",
		s.config.SMTPUsername,
		s.config.SMTPPassword,
		s.config.SMTPHost)

	fromEmail := s.config.FromEmail
	from := s.fromAddress()

	// Prepare email headers and body
	headers := make(map[string]string)
	headers["From"] = from
	headers["To"] = strings.Join(email.To, ", ")
	headers["Subject"] = email.Subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=\"utf-8\""

	if s.config.ReplyTo != "" {
		headers["Reply-To"] = s.config.ReplyTo
	}

	msg := buildMessage(headers, email.HTMLContent)

	// Determine server address
	serverAddr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)

	if s.config.SMTPUseTLS {
		return s.sendSMTPWithTLS(serverAddr, auth, fromEmail, email.To, msg)
	}
	return smtp.SendMail(serverAddr, auth, fromEmail, email.To, msg)
}

// buildMessage writes headers in a stable order followed by the HTML body
func buildMessage(headers map[string]string, body string) []byte {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var msg bytes.Buffer
	for _, key := range keys {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", key, headers[key]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.Bytes()
}

// sendSMTPWithTLS sends email using explicit TLS connection
func (s *EmailService) sendSMTPWithTLS(serverAddr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	// Create TLS connection
	tlsConfig := &tls.Config{
		ServerName: s.config.SMTPHost,
	}

	conn, err := tls.Dial("tcp", serverAddr, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to create TLS connection: %w", err)
	}
	defer conn.Close()

	// Create SMTP client
	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	// Authenticate
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	// Set sender
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	// Set recipients
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	// Send email content
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send DATA command: %w", err)
	}
	defer writer.Close()

	_, err = writer.Write(msg)
	if err != nil {
		return fmt.Errorf("failed to write email content: %w", err)
	}

	return nil
}

// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Endpoints, overridable in tests.
var (
	resendEndpoint   = "https://api.resend.com/emails"
	sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"
)

// Resend API structures
type ResendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// SendGrid API structures
type SendGridEmailRequest struct {
	Personalizations []SendGridPersonalization `json:"personalizations"`
	From             SendGridEmail             `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []SendGridContent         `json:"content"`
	ReplyTo          *SendGridEmail            `json:"reply_to,omitempty"`
}

type SendGridPersonalization struct {
	To []SendGridEmail `json:"to"`
}

type SendGridEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type SendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// sendResendEmail sends email using the Resend API
func (s *EmailService) sendResendEmail(ctx context.Context, email *Email) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("Resend API key not configured")
	}

	reqData := ResendEmailRequest{
		From:    s.fromAddress(),
		To:      email.To,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.config.ReplyTo,
	}
	return s.postJSON(ctx, "Resend", resendEndpoint, reqData, http.StatusOK)
}

// sendSendGridEmail sends email using the SendGrid API
func (s *EmailService) sendSendGridEmail(ctx context.Context, email *Email) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}

	var to []SendGridEmail
	for _, recipient := range email.To {
		to = append(to, SendGridEmail{Email: recipient})
	}

	var replyTo *SendGridEmail
	if s.config.ReplyTo != "" {
		replyTo = &SendGridEmail{Email: s.config.ReplyTo}
	}

	reqData := SendGridEmailRequest{
		Personalizations: []SendGridPersonalization{{To: to}},
		From:             SendGridEmail{Email: s.config.FromEmail, Name: s.config.FromName},
		Subject:          email.Subject,
		Content:          []SendGridContent{{Type: "text/html", Value: email.HTMLContent}},
		ReplyTo:          replyTo,
	}
	return s.postJSON(ctx, "SendGrid", sendGridEndpoint, reqData, http.StatusAccepted)
}

func (s *EmailService) postJSON(ctx context.Context, provider, url string, body interface{}, wantStatus int) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s API returned status %d", provider, resp.StatusCode)
	}
	return nil
}

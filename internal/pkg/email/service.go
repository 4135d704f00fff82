// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
)

// EmailService renders and sends transactional email
type EmailService struct {
	config    config.EmailConfig
	siteURL   string
	templates map[string]*template.Template
	client    *http.Client
	logger    logrus.FieldLogger
	// send delivers a rendered email; swapped in tests
	send func(ctx context.Context, email *Email) error
}

// NewEmailService creates a new email service
func NewEmailService(cfg config.EmailConfig, siteURL string, logger logrus.FieldLogger) *EmailService {
	service := &EmailService{
		config:    cfg,
		siteURL:   strings.TrimRight(siteURL, "/"),
		templates: make(map[string]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	service.send = service.dispatch
	for name, body := range builtinTemplates {
		service.templates[name] = template.Must(template.New(name).Parse(body))
	}
	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 || strings.TrimSpace(email.To[0]) == "" {
		return fmt.Errorf("email %s has no recipient", email.Type)
	}
	return s.send(ctx, email)
}

func (s *EmailService) dispatch(ctx context.Context, email *Email) error {
	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "log", "":
		s.logger.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("email not delivered, log provider")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// SendOrderConfirmationEmail sends order confirmation email
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderConfirmationData) error {
	data.EmailTemplateData = GetBaseTemplateData(s.config.FromName, s.siteURL, data.UserEmail)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.siteURL, data.OrderNumber)

	htmlContent, err := s.renderTemplate("order_confirmation", data)
	if err != nil {
		return fmt.Errorf("failed to render order confirmation template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order Confirmation - %s", data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderConfirmation,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"order_total":  data.OrderTotal,
		},
	})
}

// SendOrderStatusUpdateEmail sends order status update email
func (s *EmailService) SendOrderStatusUpdateEmail(ctx context.Context, data OrderStatusUpdateData) error {
	data.EmailTemplateData = GetBaseTemplateData(s.config.FromName, s.siteURL, data.UserEmail)
	data.OrderURL = fmt.Sprintf("%s/orders/%s", s.siteURL, data.OrderNumber)
	if data.StatusMessage == "" {
		data.StatusMessage = StatusMessage(data.Status)
	}

	htmlContent, err := s.renderTemplate("order_status_update", data)
	if err != nil {
		return fmt.Errorf("failed to render order status update template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Order %s - %s", data.OrderNumber, data.Status),
		HTMLContent: htmlContent,
		Type:        EmailTypeOrderStatusUpdate,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"status":       data.Status,
		},
	})
}

// SendInvoiceIssuedEmail tells the customer their invoice is available
func (s *EmailService) SendInvoiceIssuedEmail(ctx context.Context, data InvoiceIssuedData) error {
	data.EmailTemplateData = GetBaseTemplateData(s.config.FromName, s.siteURL, data.UserEmail)

	htmlContent, err := s.renderTemplate("invoice_issued", data)
	if err != nil {
		return fmt.Errorf("failed to render invoice template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     fmt.Sprintf("Invoice %s for order %s", data.InvoiceNumber, data.OrderNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeInvoiceIssued,
		Data:        map[string]interface{}{"invoice_number": data.InvoiceNumber},
	})
}

// SendLowStockAlertEmail notifies staff about a low or empty variant
func (s *EmailService) SendLowStockAlertEmail(ctx context.Context, data LowStockAlertData) error {
	data.EmailTemplateData = GetBaseTemplateData(s.config.FromName, s.siteURL, s.config.StaffEmail)

	htmlContent, err := s.renderTemplate("low_stock_alert", data)
	if err != nil {
		return fmt.Errorf("failed to render low stock template: %w", err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{s.config.StaffEmail},
		Subject:     fmt.Sprintf("Stock alert: %s (%d left)", data.SKU, data.Stock),
		HTMLContent: htmlContent,
		Type:        EmailTypeLowStockAlert,
		Data:        map[string]interface{}{"sku": data.SKU, "stock": data.Stock},
	})
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *EmailService) fromAddress() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

const layoutHead = `<!DOCTYPE html><html><head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; color: #333;">
<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
<h2>{{.SiteName}}</h2>`

const layoutFoot = `<p style="color: #999; font-size: 12px;">&copy; {{.Year}} {{.SiteName}}</p>
</div></body></html>`

var builtinTemplates = map[string]string{
	"order_confirmation": layoutHead + `
<p>Thank you for your order <strong>{{.OrderNumber}}</strong>.</p>
<p>Total: {{.OrderTotal}}</p>
<p><a href="{{.OrderURL}}">View your order</a></p>` + layoutFoot,

	"order_status_update": layoutHead + `
<p>Order <strong>{{.OrderNumber}}</strong>: {{.StatusMessage}}</p>
{{if .Note}}<p>{{.Note}}</p>{{end}}
<p><a href="{{.OrderURL}}">View your order</a></p>` + layoutFoot,

	"invoice_issued": layoutHead + `
<p>Invoice <strong>{{.InvoiceNumber}}</strong> for order {{.OrderNumber}} has been issued.</p>` + layoutFoot,

	"low_stock_alert": layoutHead + `
<p>{{.Name}} (SKU {{.SKU}}) is {{if eq .AlertType "out_of_stock"}}out of stock{{else}}running low{{end}}:
{{.Stock}} left, threshold {{.Threshold}}.</p>` + layoutFoot,
}

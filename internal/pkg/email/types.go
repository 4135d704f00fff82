// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeOrderStatusUpdate EmailType = "order_status_update"
	EmailTypeInvoiceIssued     EmailType = "invoice_issued"
	EmailTypeLowStockAlert     EmailType = "low_stock_alert"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// OrderConfirmationData contains data for order confirmation email
type OrderConfirmationData struct {
	EmailTemplateData
	OrderNumber string `json:"order_number"`
	OrderTotal  string `json:"order_total"`
	OrderURL    string `json:"order_url"`
}

// OrderStatusUpdateData contains data for order status updates
type OrderStatusUpdateData struct {
	EmailTemplateData
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	StatusMessage string `json:"status_message"`
	Note          string `json:"note,omitempty"`
	OrderURL      string `json:"order_url"`
}

// InvoiceIssuedData announces a new invoice
type InvoiceIssuedData struct {
	EmailTemplateData
	InvoiceNumber string `json:"invoice_number"`
	OrderNumber   string `json:"order_number"`
}

// LowStockAlertData is sent to staff when a variant runs low
type LowStockAlertData struct {
	EmailTemplateData
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
	AlertType string `json:"alert_type"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(siteName, siteURL, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}

// statusMessages are the customer-facing lines for each order status
var statusMessages = map[string]string{
	"CONFIRMED":        "Your order has been confirmed.",
	"IN_PRODUCTION":    "Your order is being made.",
	"READY_FOR_PICKUP": "Your order is ready for pickup.",
	"SHIPPED":          "Your order is on its way.",
	"DELIVERED":        "Your order has been delivered.",
	"CANCELLED":        "Your order has been cancelled.",
	"REFUNDED":         "Your order has been refunded.",
}

// StatusMessage returns the customer-facing line for status
func StatusMessage(status string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Your order status changed to " + status + "."
}

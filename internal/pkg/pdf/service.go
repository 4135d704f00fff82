// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront-backend/internal/domain/invoice"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// Renderer turns an HTML document into PDF bytes
type Renderer func(html []byte) ([]byte, error)

// Service handles PDF generation
type Service struct {
	render   Renderer
	location *time.Location
	tmpl     *template.Template
}

// NewService creates a PDF service backed by wkhtmltopdf
func NewService(location *time.Location) *Service {
	return NewServiceWithRenderer(location, wkhtmltopdfRenderer)
}

// NewServiceWithRenderer swaps the HTML to PDF step
func NewServiceWithRenderer(location *time.Location, render Renderer) *Service {
	if location == nil {
		location = time.UTC
	}
	funcs := template.FuncMap{
		"money": money.Format,
		"date": func(t time.Time) string {
			return t.In(location).Format("January 2, 2006")
		},
	}
	return &Service{
		render:   render,
		location: location,
		tmpl:     template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceTemplate)),
	}
}

// GenerateInvoice renders an issued invoice snapshot as PDF
func (s *Service) GenerateInvoice(inv *invoice.Invoice) (*bytes.Buffer, error) {
	html, err := s.RenderHTML(inv)
	if err != nil {
		return nil, err
	}
	out, err := s.render(html)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return bytes.NewBuffer(out), nil
}

// RenderHTML executes the invoice template. Only the snapshot is read, so a
// reprint matches the original even after the order changed.
func (s *Service) RenderHTML(inv *invoice.Invoice) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("invoice is required")
	}
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, InvoiceData{Invoice: inv, TaxPercent: inv.TaxRate.Shift(2).String()}); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func wkhtmltopdfRenderer(html []byte) ([]byte, error) {
	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, err
	}
	return pdfg.Bytes(), nil
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	Invoice    *invoice.Invoice
	TaxPercent string
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.Invoice.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { display: flex; justify-content: space-between; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .company-info, .invoice-info { flex: 1; }
        .invoice-info { text-align: right; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #2563eb; margin-bottom: 10px; }
        .section-title { font-size: 16px; font-weight: bold; margin-bottom: 10px; color: #374151; }
        .items-table { width: 100%; border-collapse: collapse; margin: 30px 0; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 12px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .items-table .num { text-align: right; width: 90px; }
        .totals { float: right; width: 300px; }
        .totals table { width: 100%; border-collapse: collapse; }
        .totals td { padding: 8px; border-bottom: 1px solid #eee; text-align: right; }
        .total-row { font-size: 18px; font-weight: bold; border-top: 2px solid #333; }
        .void { color: #b91c1c; font-weight: bold; }
        .footer { margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
{{- $inv := .Invoice }}
    <div class="header">
        <div class="company-info">
            <h1>{{$inv.Company.Name}}</h1>
            <p>{{$inv.Company.Address}}</p>
            <p>Tax ID: {{$inv.Company.TaxID}}</p>
            {{if $inv.Company.Phone}}<p>Phone: {{$inv.Company.Phone}}</p>{{end}}
            {{if $inv.Company.Email}}<p>Email: {{$inv.Company.Email}}</p>{{end}}
            {{if $inv.Company.Website}}<p>{{$inv.Company.Website}}</p>{{end}}
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{$inv.InvoiceNumber}}</p>
            <p><strong>Issued:</strong> {{date $inv.IssuedAt}}</p>
            <p><strong>Order #:</strong> {{$inv.OrderNumber}}</p>
            {{if eq $inv.Status "VOID"}}<p class="void">VOID</p>{{end}}
        </div>
    </div>

    <div>
        <div class="section-title">Bill To:</div>
        <p><strong>{{$inv.Customer.Name}}</strong></p>
        {{range $inv.Customer.Address}}<p>{{.}}</p>{{end}}
        <p>Email: {{$inv.Customer.Email}}</p>
        {{if $inv.Customer.Phone}}<p>Phone: {{$inv.Customer.Phone}}</p>{{end}}
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>SKU</th>
                <th class="num">Qty</th>
                <th class="num">Price</th>
                <th class="num">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range $inv.LineItems}}
            <tr>
                <td><strong>{{.Name}}</strong>{{if .Customization}}<br><small>{{.Customization}}</small>{{end}}</td>
                <td>{{.SKU}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{money .UnitPrice}} {{$inv.Currency}}</td>
                <td class="num">{{money .TotalPrice}} {{$inv.Currency}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td>Subtotal:</td><td>{{money $inv.SubtotalAmount}} {{$inv.Currency}}</td></tr>
            <tr><td>Tax ({{.TaxPercent}}%):</td><td>{{money $inv.TaxAmount}} {{$inv.Currency}}</td></tr>
            <tr><td>Shipping:</td><td>{{money $inv.ShippingCost}} {{$inv.Currency}}</td></tr>
            <tr class="total-row"><td>Total:</td><td>{{money $inv.TotalAmount}} {{$inv.Currency}}</td></tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for your business!</p>
        {{if $inv.Company.Email}}<p>Questions about this invoice: {{$inv.Company.Email}}</p>{{end}}
    </div>
</body>
</html>
`

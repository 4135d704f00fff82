// internal/domain/order/totals.go
package order

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/pkg/money"
)

// MaxOrderTotal is the largest amount a numeric(12,2) column holds
var MaxOrderTotal = decimal.RequireFromString("9999999999.99")

// TotalsLine is the pricing input of one order line
type TotalsLine struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Totals is the priced result for an order
type Totals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Total        decimal.Decimal `json:"total"`
}

// LineTotal is the rounded unit price times quantity
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return money.Round(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// CalculateTotals prices an order. Unit prices, tax and shipping are rounded
// half away from zero to cents, so Total == Subtotal + TaxAmount + ShippingCost
// holds exactly.
func CalculateTotals(lines []TotalsLine, shipping, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineTotal(line.UnitPrice, line.Quantity))
	}
	tax := money.Round(subtotal.Mul(taxRate))
	shipping = money.Round(shipping)

	return Totals{
		Subtotal:     subtotal,
		TaxRate:      taxRate,
		TaxAmount:    tax,
		ShippingCost: shipping,
		Total:        subtotal.Add(tax).Add(shipping),
	}
}

// internal/domain/invoice/company.go
package invoice

import (
	"context"
	"strings"

	"github.com/your-org/storefront-backend/internal/config"
)

// Defaults printed when the company block is not configured.
const (
	DefaultCompanyName    = "Storefront"
	DefaultCompanyAddress = "Address not configured"
	DefaultCompanyTaxID   = "N/A"
)

// CompanySettingsProvider supplies the issuer block for new invoices
type CompanySettingsProvider interface {
	CompanySettings(ctx context.Context) (Company, error)
}

// ConfigCompanyProvider reads the company block from configuration
type ConfigCompanyProvider struct {
	cfg      config.CompanyConfig
	fallback string
}

// NewCompanyProvider builds a provider; fallbackName replaces an empty company name
func NewCompanyProvider(cfg config.CompanyConfig, fallbackName string) *ConfigCompanyProvider {
	return &ConfigCompanyProvider{cfg: cfg, fallback: fallbackName}
}

func (p *ConfigCompanyProvider) CompanySettings(ctx context.Context) (Company, error) {
	c := Company{
		Name:    strings.TrimSpace(p.cfg.Name),
		Address: strings.TrimSpace(p.cfg.Address),
		TaxID:   strings.TrimSpace(p.cfg.TaxID),
		Phone:   strings.TrimSpace(p.cfg.Phone),
		Email:   strings.TrimSpace(p.cfg.Email),
		Website: strings.TrimSpace(p.cfg.Website),
	}
	if c.Name == "" {
		c.Name = strings.TrimSpace(p.fallback)
	}
	if c.Name == "" {
		c.Name = DefaultCompanyName
	}
	if c.Address == "" {
		c.Address = DefaultCompanyAddress
	}
	if c.TaxID == "" {
		c.TaxID = DefaultCompanyTaxID
	}
	return c, nil
}

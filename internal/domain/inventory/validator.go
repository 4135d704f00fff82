// internal/domain/inventory/validator.go
package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// MaxLineQuantity bounds a single line so per-variant sums cannot overflow
const MaxLineQuantity = 10000

// LineRequest is one requested order line
type LineRequest struct {
	ProductID uint
	VariantID *uint
	Quantity  int
}

// ResolvedLine is a line whose catalog rows were loaded during validation
type ResolvedLine struct {
	Request   LineRequest
	Product   *product.Product
	Variant   *product.ProductVariant
	UnitPrice decimal.Decimal
}

// LineFailure explains why a single line was rejected
type LineFailure struct {
	Index     int            `json:"index"`
	ProductID uint           `json:"product_id"`
	VariantID *uint          `json:"variant_id,omitempty"`
	Code      apperrors.Code `json:"code"`
	Message   string         `json:"message"`
	Available int            `json:"available,omitempty"`
	Requested int            `json:"requested,omitempty"`
}

// ValidationResult is the outcome of Validate
type ValidationResult struct {
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"errors"`
	Failures []LineFailure  `json:"failures,omitempty"`
	Lines    []ResolvedLine `json:"-"`
}

// Err converts a failed result into a ValidationFailed error whose details list
// every problem. A stock shortfall is kept as the cause.
func (r *ValidationResult) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	var cause error
	for _, f := range r.Failures {
		if f.Code == apperrors.CodeInsufficientStock {
			cause = apperrors.New(apperrors.CodeInsufficientStock, f.Message)
			break
		}
	}
	return apperrors.Wrap(apperrors.CodeValidation, cause, "order validation failed").WithDetails(r.Errors)
}

// Validator checks requested lines against the catalog and current stock.
// It never writes.
type Validator struct {
	products product.Repository
}

func NewValidator(products product.Repository) *Validator {
	return &Validator{products: products}
}

// Validate checks every line and reports all failures at once. With a non-nil
// tx variant rows are locked in submission order and stay locked until the
// caller's transaction ends, so a following Debit cannot be raced.
func (v *Validator) Validate(ctx context.Context, tx *gorm.DB, lines []LineRequest) (*ValidationResult, error) {
	result := &ValidationResult{Errors: []string{}}
	if len(lines) == 0 {
		result.fail(LineFailure{Code: apperrors.CodeValidation, Message: "order must contain at least one item"})
		return result, nil
	}

	repo := v.products
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	// Requested quantity per variant across the whole order.
	requested := make(map[uint]int)

	for i, line := range lines {
		if line.Quantity <= 0 {
			result.fail(LineFailure{
				Index:     i,
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Code:      apperrors.CodeValidation,
				Message:   fmt.Sprintf("Item %d: quantity must be at least 1", i+1),
			})
			continue
		}
		if line.Quantity > MaxLineQuantity {
			result.fail(LineFailure{
				Index:     i,
				ProductID: line.ProductID,
				VariantID: line.VariantID,
				Code:      apperrors.CodeValidation,
				Message:   fmt.Sprintf("Item %d: quantity must be at most %d", i+1, MaxLineQuantity),
			})
			continue
		}

		if line.VariantID == nil {
			p, err := repo.FindProduct(ctx, line.ProductID)
			if err != nil {
				if apperrors.HasCode(err, apperrors.CodeNotFound) {
					result.fail(LineFailure{Index: i, ProductID: line.ProductID, Code: apperrors.CodeNotFound,
						Message: fmt.Sprintf("Product %d not found", line.ProductID)})
					continue
				}
				return nil, err
			}
			if !p.IsActive {
				result.fail(LineFailure{Index: i, ProductID: p.ID, Code: apperrors.CodeValidation,
					Message: fmt.Sprintf("%q (SKU %s) is not available", p.Name, p.SKU)})
				continue
			}
			result.Lines = append(result.Lines, ResolvedLine{Request: line, Product: p, UnitPrice: p.Price})
			continue
		}

		var (
			variant *product.ProductVariant
			err     error
		)
		if tx != nil {
			variant, err = repo.LockVariant(ctx, *line.VariantID)
		} else {
			variant, err = repo.FindVariant(ctx, *line.VariantID)
		}
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeNotFound) {
				result.fail(LineFailure{Index: i, ProductID: line.ProductID, VariantID: line.VariantID, Code: apperrors.CodeNotFound,
					Message: fmt.Sprintf("Variant %d not found", *line.VariantID)})
				continue
			}
			return nil, err
		}

		if line.ProductID != 0 && variant.ProductID != line.ProductID {
			result.fail(LineFailure{Index: i, ProductID: line.ProductID, VariantID: line.VariantID, Code: apperrors.CodeValidation,
				Message: fmt.Sprintf("Variant %d does not belong to product %d", variant.ID, line.ProductID)})
			continue
		}
		if !variant.IsActive || variant.DeletedAt.Valid || variant.Product == nil || !variant.Product.IsActive || variant.Product.DeletedAt.Valid {
			result.fail(LineFailure{Index: i, ProductID: variant.ProductID, VariantID: line.VariantID, Code: apperrors.CodeValidation,
				Message: fmt.Sprintf("%q (SKU %s) is not available", variant.DisplayName(), variant.SKU)})
			continue
		}

		already := requested[variant.ID]
		requested[variant.ID] = already + line.Quantity
		if line.Quantity > variant.Stock-already {
			result.fail(LineFailure{
				Index:     i,
				ProductID: variant.ProductID,
				VariantID: line.VariantID,
				Code:      apperrors.CodeInsufficientStock,
				Message:   ShortageMessage(variant, variant.Stock, requested[variant.ID]),
				Available: variant.Stock,
				Requested: requested[variant.ID],
			})
			continue
		}

		result.Lines = append(result.Lines, ResolvedLine{
			Request:   line,
			Product:   variant.Product,
			Variant:   variant,
			UnitPrice: variant.UnitPrice(variant.Product),
		})
	}

	result.Valid = len(result.Failures) == 0
	return result, nil
}

func (r *ValidationResult) fail(f LineFailure) {
	r.Failures = append(r.Failures, f)
	r.Errors = append(r.Errors, f.Message)
}

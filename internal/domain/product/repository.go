// internal/domain/product/repository.go
package product

import (
	"context"

	"github.com/your-org/storefront-backend/internal/pkg/apperrors"
	"github.com/your-org/storefront-backend/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the catalog lookup port used by the order engine.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProduct(ctx context.Context, id uint) (*Product, error)
	FindVariant(ctx context.Context, id uint) (*ProductVariant, error)
	// LockVariant loads the variant row FOR UPDATE, soft-deleted rows included,
	// so stock can still be returned for retired SKUs. Callers must be inside a transaction.
	LockVariant(ctx context.Context, id uint) (*ProductVariant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository backed by db
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "product %d not found", id)
		}
		return nil, apperrors.Internal(err, "loading product")
	}
	return &p, nil
}

func (r *repository) FindVariant(ctx context.Context, id uint) (*ProductVariant, error) {
	var v ProductVariant
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "variant %d not found", id)
		}
		return nil, apperrors.Internal(err, "loading variant")
	}
	return r.attachProduct(ctx, &v)
}

func (r *repository) LockVariant(ctx context.Context, id uint) (*ProductVariant, error) {
	var v ProductVariant
	err := r.db.WithContext(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&v, id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "variant %d not found", id)
		}
		return nil, apperrors.Internal(err, "locking variant")
	}
	return r.attachProduct(ctx, &v)
}

// attachProduct loads the parent separately so the row lock stays on the variant only.
func (r *repository) attachProduct(ctx context.Context, v *ProductVariant) (*ProductVariant, error) {
	var p Product
	err := r.db.WithContext(ctx).Unscoped().First(&p, v.ProductID).Error
	switch {
	case err == nil:
		v.Product = &p
	case database.IsNotFound(err):
	default:
		return nil, apperrors.Internal(err, "loading variant product")
	}
	return v, nil
}

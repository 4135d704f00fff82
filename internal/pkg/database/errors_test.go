package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil, ""))
	assert.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey, ""))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), ""))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_invoices_order_id"`), ""))
	assert.True(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_invoices_order_id"`), "idx_invoices_order_id"))
	assert.False(t, IsUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "idx_orders_order_number"`), "idx_invoices_order_id"))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: invoices.order_id"), ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("other")))
}

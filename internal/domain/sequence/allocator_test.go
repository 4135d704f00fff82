package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/database/dbtest"
	"gorm.io/gorm"
)

func TestFormatNumbers(t *testing.T) {
	day := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "LV240115-001", FormatOrderNumber(day, 1))
	assert.Equal(t, "LV240115-042", FormatOrderNumber(day, 42))
	assert.Equal(t, "LV240115-1000", FormatOrderNumber(day, 1000))
	assert.Equal(t, "2024-0001", FormatInvoiceNumber(day, 1))
	assert.Equal(t, "2024-0123", FormatInvoiceNumber(day, 123))
	assert.Equal(t, "order:20240115", OrderScope(day))
	assert.Equal(t, "invoice:2024", InvoiceScope(day))
}

func TestNextIsSequentialPerScope(t *testing.T) {
	db := dbtest.NewTestDB(t, &Counter{})
	alloc := NewAllocator()
	ctx := context.Background()

	next := func(scope string) int64 {
		var v int64
		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			var err error
			v, err = alloc.Next(ctx, tx, scope)
			return err
		}))
		return v
	}

	assert.Equal(t, int64(1), next("order:20240115"))
	assert.Equal(t, int64(2), next("order:20240115"))
	assert.Equal(t, int64(1), next("order:20240116"))
	assert.Equal(t, int64(3), next("order:20240115"))
}

func TestRollbackReleasesValue(t *testing.T) {
	db := dbtest.NewTestDB(t, &Counter{})
	alloc := NewAllocator()
	ctx := context.Background()
	boom := errors.New("insert failed")

	err := db.Transaction(func(tx *gorm.DB) error {
		v, err := alloc.Next(ctx, tx, "invoice:2024")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)
		return boom
	})
	require.ErrorIs(t, err, boom)

	peek, err := alloc.Peek(ctx, db, "invoice:2024")
	require.NoError(t, err)
	assert.Equal(t, int64(0), peek)

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		v, err := alloc.Next(ctx, tx, "invoice:2024")
		assert.Equal(t, int64(1), v)
		return err
	}))
}

func TestConcurrentAllocationsAreUnique(t *testing.T) {
	db := dbtest.NewTestDB(t, &Counter{})
	alloc := NewAllocator()
	ctx := context.Background()

	const workers = 20
	values := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Transaction(func(tx *gorm.DB) error {
				v, err := alloc.Next(ctx, tx, "order:20240115")
				if err == nil {
					values <- v
				}
				return err
			})
		}()
	}
	wg.Wait()
	close(values)

	seen := map[int64]bool{}
	for v := range values {
		assert.False(t, seen[v], "duplicate value %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing value %d", i)
	}
}

func TestNextRequiresTransaction(t *testing.T) {
	_, err := NewAllocator().Next(context.Background(), nil, "x")
	require.ErrorIs(t, err, ErrTransactionRequired)
}

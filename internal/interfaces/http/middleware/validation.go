// internal/interfaces/http/middleware/validation.go
package middleware

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/your-org/storefront-backend/internal/domain/order"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags used by request DTOs.
// Safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return order.Status(fl.Field().String()).Valid()
		}); err != nil {
			return
		}
		err = v.RegisterValidation("production_status", func(fl validator.FieldLevel) bool {
			return order.ProductionStatus(fl.Field().String()).Valid()
		})
	})
	return err
}

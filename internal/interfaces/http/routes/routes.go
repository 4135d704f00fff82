// internal/interfaces/http/routes/routes.go
package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
)

// Handlers bundles every HTTP handler mounted under /api/v1
type Handlers struct {
	Auth      *handlers.AuthHandler
	Orders    *handlers.OrderHandler
	Checkout  *handlers.CheckoutHandler
	Inventory *handlers.InventoryHandler
	Invoices  *handlers.InvoiceHandler
	Addresses *handlers.UserAddressHandler
}

// Guards are the per-route middleware dependencies
type Guards struct {
	Tokens         middleware.TokenValidator
	Idempotency    middleware.IdempotencyStore
	IdempotencyTTL time.Duration
	Logger         logrus.FieldLogger
}

// SetupRoutes mounts all API routes on rg
func SetupRoutes(rg *gin.RouterGroup, h Handlers, g Guards) {
	SetupAuthRoutes(rg, h.Auth, g)
	SetupCheckoutRoutes(rg, h.Checkout)
	SetupOrderRoutes(rg, h.Orders, h.Invoices, g)
	SetupUserRoutes(rg, h.Addresses, g)
	SetupAdminRoutes(rg, h, g)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, authHandler *handlers.AuthHandler, g Guards) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", middleware.AuthMiddleware(g.Tokens), authHandler.Me)
	}
}

// SetupCheckoutRoutes sets up checkout routes. Both are read-only and public.
func SetupCheckoutRoutes(rg *gin.RouterGroup, checkoutHandler *handlers.CheckoutHandler) {
	checkout := rg.Group("/checkout")
	{
		checkout.GET("/shipping-methods", checkoutHandler.GetShippingMethods)
		checkout.POST("/preview", checkoutHandler.Preview)
	}
}

// SetupOrderRoutes sets up customer-facing order routes
func SetupOrderRoutes(rg *gin.RouterGroup, orderHandler *handlers.OrderHandler, invoiceHandler *handlers.InvoiceHandler, g Guards) {
	orders := rg.Group("/orders")
	{
		orders.POST("",
			middleware.OptionalAuthMiddleware(g.Tokens),
			middleware.Idempotency(g.Idempotency, g.IdempotencyTTL, g.Logger),
			orderHandler.CreateOrder,
		)

		protected := orders.Group("")
		protected.Use(middleware.AuthMiddleware(g.Tokens))
		{
			protected.GET("", orderHandler.GetMyOrders)
			protected.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
			protected.GET("/number/:orderNumber/invoice/pdf", invoiceHandler.DownloadMyInvoice)
		}
	}
}

// SetupUserRoutes sets up the customer address book
func SetupUserRoutes(rg *gin.RouterGroup, addressHandler *handlers.UserAddressHandler, g Guards) {
	users := rg.Group("/users")
	users.Use(middleware.AuthMiddleware(g.Tokens))
	{
		users.GET("/addresses", addressHandler.GetAddresses)
		users.POST("/addresses", addressHandler.CreateAddress)
		users.DELETE("/addresses/:id", addressHandler.DeleteAddress)
	}
}

// SetupAdminRoutes sets up back-office routes for staff and admins
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers, g Guards) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(g.Tokens))
	admin.Use(middleware.RequireRoles(auth.RoleStaff, auth.RoleAdmin))

	orders := admin.Group("/orders")
	{
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PUT("/:id/status", h.Orders.UpdateOrderStatus)
		orders.PUT("/:id/items/:itemId/production", h.Orders.UpdateItemProduction)
		orders.PUT("/:id/tracking", h.Orders.UpdateTracking)
		orders.DELETE("/:id", middleware.RequireRoles(auth.RoleAdmin), h.Orders.DeleteOrder)

		orders.POST("/:id/invoice", h.Invoices.IssueInvoice)
		orders.GET("/:id/invoice", h.Invoices.GetInvoice)
		orders.GET("/:id/invoice/pdf", h.Invoices.DownloadInvoice)
	}

	admin.PUT("/invoices/:id/status", h.Invoices.UpdateInvoiceStatus)

	variants := admin.Group("/variants")
	{
		variants.PUT("/:id/stock", h.Inventory.AdjustStock)
		variants.POST("/:id/stock/receive", h.Inventory.ReceiveStock)
		variants.GET("/:id/movements", h.Inventory.GetMovements)
		variants.GET("/:id/reconcile", h.Inventory.Reconcile)
	}

	inventory := admin.Group("/inventory")
	{
		inventory.GET("/alerts", h.Inventory.GetAlerts)
		inventory.PUT("/alerts/:id/resolve", h.Inventory.ResolveAlert)
	}
}

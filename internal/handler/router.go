package handler

import (
	"context"
	"time"

	"pilotopos/internal/middleware"
	"pilotopos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger is the health probe of the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds every handler and mounts the routes on an app.
type Router struct {
	Auth    *middleware.Auth
	Sale    *SaleHandler
	Catalog *CatalogHandler
	History *HistoryHandler
	Login   *AuthHandler
	WS      *WSHandler
	DB      Pinger
	Metrics fiber.Handler // served on /metrics when set
}

func displayView(c *fiber.Ctx) bool {
	return c.Method() == fiber.MethodGet && c.Path() == "/venta" && c.Query("display") == "1"
}

func (r *Router) Mount(app *fiber.App) {
	// ============ PUBLIC ROUTES ============
	app.Get("/healthz", r.Health)
	if r.Metrics != nil {
		app.Get("/metrics", r.Metrics)
	}
	app.Get("/login", r.Login.LoginStatus)
	app.Post("/login", r.Login.Login)
	app.Get("/logout", r.Login.Logout)

	app.Use("/ws", r.Auth.Optional(), r.WS.Upgrade)
	app.Get("/ws", r.WS.Serve())

	// ============ PROTECTED ROUTES ============
	protected := app.Group("", r.Auth.RequireAuth(displayView))

	protected.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/venta", fiber.StatusFound)
	})

	// Register and cart
	protected.Get("/venta", r.Sale.Venta)
	protected.Post("/agregar-producto", r.Sale.AgregarProducto)
	protected.Get("/almacen", r.Sale.Almacen)
	protected.Post("/carrito/agregar_manual", r.Sale.AgregarManual)
	protected.Post("/carrito/eliminar", r.Sale.EliminarDelCarrito)
	protected.Post("/redondear", r.Sale.Redondear)

	// Catalog
	protected.Get("/guardar_producto", r.Catalog.ProductForm)
	protected.Post("/guardar_producto", r.Catalog.SaveProduct)
	protected.Post("/eliminar_producto", r.Catalog.DeleteProduct)
	protected.Get("/api/productos", r.Catalog.GetProducts)
	protected.Get("/guardar_proveedor", r.Catalog.SupplierForm)
	protected.Post("/guardar_proveedor", r.Catalog.SaveSupplier)
	protected.Post("/eliminar_proveedor", r.Catalog.DeleteSupplier)
	protected.Get("/api/proveedores", r.Catalog.GetSuppliers)

	// History and receipts
	protected.Get("/api/historial", r.History.GetHistory)
	protected.Get("/api/ventas", r.History.GetSales)
	protected.Post("/ventas/update", r.History.UpdateSale)
	protected.Post("/ventas/delete", r.History.DeleteSale)
	protected.Get("/ticket/ultimo", r.History.LastReceipt)
	protected.Get("/ticket/:id", r.History.Receipt)
	protected.Get("/centavos", r.History.Centavos)
}

// GET /healthz
func (r *Router) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := r.DB.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "down", "error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ErrorHandler answers unexpected errors with a bare 500 and logs them.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	if code >= 500 {
		logger.FromCtx(c).Error("request failed", zap.Error(err))
		return c.Status(code).JSON(fiber.Map{"error": "Internal server error"})
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

package handler

import (
	"strings"

	"pilotopos/internal/middleware"
	"pilotopos/internal/model"
	"pilotopos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

type DeleteProductRequest struct {
	Code string `json:"codigo"`
}

type DeleteSupplierRequest struct {
	ID string `json:"id"`
}

// ProductForm prefills the product form.
// GET /guardar_producto?codigo=
func (h *CatalogHandler) ProductForm(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("codigo"))
	view := fiber.Map{"codigo": code}
	if code == "" {
		return c.JSON(view)
	}
	product, err := h.service.GetProduct(c.UserContext(), middleware.TenantOf(c), code)
	switch {
	case errors.Is(err, service.ErrProductNotFound):
	case err != nil:
		return err
	default:
		view["producto"] = product
	}
	return c.JSON(view)
}

// POST /guardar_producto
func (h *CatalogHandler) SaveProduct(c *fiber.Ctx) error {
	var req model.ProductInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	id, err := h.service.SaveProduct(c.UserContext(), middleware.TenantOf(c), &req)
	if err != nil {
		return fail(c, "success", err)
	}
	return c.JSON(fiber.Map{"success": true, "id": id})
}

// POST /eliminar_producto
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	var req DeleteProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if err := h.service.DeleteProduct(c.UserContext(), middleware.TenantOf(c), req.Code); err != nil {
		return fail(c, "success", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GET /api/productos, ?todos=1 includes ad-hoc products
func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), middleware.TenantOf(c), c.Query("todos") == "1")
	if err != nil {
		return err
	}
	if products == nil {
		products = []model.Product{}
	}
	return c.JSON(products)
}

// GET /guardar_proveedor?id=
func (h *CatalogHandler) SupplierForm(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Query("id"))
	view := fiber.Map{"id": id}
	if id == "" {
		return c.JSON(view)
	}
	supplier, err := h.service.GetSupplier(c.UserContext(), middleware.TenantOf(c), id)
	switch {
	case errors.Is(err, service.ErrSupplierNotFound):
	case err != nil:
		return err
	default:
		view["proveedor"] = supplier
	}
	return c.JSON(view)
}

// POST /guardar_proveedor
func (h *CatalogHandler) SaveSupplier(c *fiber.Ctx) error {
	var req model.SupplierInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	id, err := h.service.SaveSupplier(c.UserContext(), middleware.TenantOf(c), &req)
	if err != nil {
		return fail(c, "success", err)
	}
	return c.JSON(fiber.Map{"success": true, "id": id})
}

// POST /eliminar_proveedor
func (h *CatalogHandler) DeleteSupplier(c *fiber.Ctx) error {
	var req DeleteSupplierRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if err := h.service.DeleteSupplier(c.UserContext(), middleware.TenantOf(c), req.ID); err != nil {
		return fail(c, "success", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GET /api/proveedores
func (h *CatalogHandler) GetSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.service.ListSuppliers(c.UserContext(), middleware.TenantOf(c))
	if err != nil {
		return err
	}
	if suppliers == nil {
		suppliers = []model.Supplier{}
	}
	return c.JSON(suppliers)
}

package handler

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"pilotopos/internal/middleware"
	"pilotopos/internal/model"
	"pilotopos/internal/service"
	"pilotopos/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SaleHandler struct {
	sessions *Sessions
	cart     service.CartService
	sales    service.SaleService
	catalog  service.CatalogService
}

func NewSaleHandler(sessions *Sessions, cart service.CartService, sales service.SaleService, catalog service.CatalogService) *SaleHandler {
	return &SaleHandler{sessions: sessions, cart: cart, sales: sales, catalog: catalog}
}

type ManualLineRequest struct {
	Name  string          `json:"nombre"`
	Price decimal.Decimal `json:"precio"`
}

type RemoveLineRequest struct {
	Index json.RawMessage `json:"index"`
}

// Venta renders the register: cart, totals and the pending flash message.
// GET /venta, ?display=1 for the read-only customer view
func (h *SaleHandler) Venta(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	display := c.Query("display") == "1"
	cart := h.sessions.Cart(c, sess)
	total := cart.Total().Round(2)
	rounded, _ := service.RoundUp(total)

	view := fiber.Map{
		"carrito":          cart.Lines,
		"total":            total,
		"total_redondeado": rounded,
		"count":            cart.Count(),
		"display":          display,
	}
	if display {
		return c.JSON(view)
	}

	// Save releases the session, so every read happens first.
	if last, ok := sess.Get(sessLastReceipt).(string); ok {
		view["ultimo_ticket"] = last
	}
	if msg, ok := h.sessions.PopFlash(sess); ok {
		view["mensaje"] = msg
		if err := sess.Save(); err != nil {
			return errors.Wrap(err, "save session")
		}
	}
	return c.JSON(view)
}

// AgregarProducto adds a catalog product by code. Unknown codes continue to
// the catalog entry form.
// POST /agregar-producto
func (h *SaleHandler) AgregarProducto(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.FormValue("codigo"))
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	cart := h.sessions.Cart(c, sess)

	if _, err := h.cart.AddFromCatalog(c.UserContext(), middleware.TenantOf(c), cart, code); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Redirect("/almacen?codigo="+url.QueryEscape(code), fiber.StatusSeeOther)
		}
		return err
	}
	if err := h.sessions.SaveCart(sess, cart); err != nil {
		return err
	}
	return c.Redirect("/venta", fiber.StatusSeeOther)
}

// Almacen is the catalog entry flow for a code that missed.
// GET /almacen?codigo=
func (h *SaleHandler) Almacen(c *fiber.Ctx) error {
	code := strings.TrimSpace(c.Query("codigo"))
	view := fiber.Map{"codigo": code}
	if code == "" {
		return c.JSON(view)
	}
	product, err := h.catalog.GetProduct(c.UserContext(), middleware.TenantOf(c), code)
	switch {
	case errors.Is(err, service.ErrProductNotFound):
	case err != nil:
		return err
	default:
		view["producto"] = product
	}
	return c.JSON(view)
}

// POST /carrito/agregar_manual
func (h *SaleHandler) AgregarManual(c *fiber.Ctx) error {
	var req ManualLineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"ok": false, "error": "Invalid JSON"})
	}
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	cart := h.sessions.Cart(c, sess)

	sum, err := h.cart.AddManual(cart, req.Name, req.Price)
	if err != nil {
		return fail(c, "ok", err)
	}
	if err := h.sessions.SaveCart(sess, cart); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true, "total": sum.Total, "count": sum.Count})
}

// POST /carrito/eliminar
func (h *SaleHandler) EliminarDelCarrito(c *fiber.Ctx) error {
	var req RemoveLineRequest
	_ = c.BodyParser(&req)

	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	cart := h.sessions.Cart(c, sess)

	sum, err := h.cart.RemoveAt(cart, parseIndex(req.Index))
	if err != nil {
		return fail(c, "ok", err)
	}
	if err := h.sessions.SaveCart(sess, cart); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true, "total": sum.Total, "count": sum.Count})
}

// Redondear completes the sale, with rounding when aceptado=si. The cart is
// only cleared once the sale is stored.
// POST /redondear
func (h *SaleHandler) Redondear(c *fiber.Ctx) error {
	accepted := c.FormValue("aceptado") == "si"
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	cart := h.sessions.Cart(c, sess)

	sale, err := h.sales.Checkout(c.UserContext(), middleware.TenantOf(c), cart, accepted)
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		sess.Set(sessFlash, "⚠️ El carrito está vacío.")
	case err != nil:
		logger.FromCtx(c).Error("checkout failed", zap.Error(err))
		sess.Set(sessFlash, "❌ No se pudo completar la venta. El carrito se conservó.")
	default:
		cart.Clear()
		sess.Set(sessLastReceipt, sale.ID)
		sess.Set(sessFlash, completedMessage(accepted, sale))
		if err := h.sessions.SaveCart(sess, cart); err != nil {
			return err
		}
		return c.Redirect("/venta", fiber.StatusSeeOther)
	}

	if err := sess.Save(); err != nil {
		return errors.Wrap(err, "save session")
	}
	return c.Redirect("/venta", fiber.StatusSeeOther)
}

func completedMessage(accepted bool, sale *model.Sale) string {
	if accepted {
		return fmt.Sprintf("✅ Venta completada con redondeo de $%s.", sale.Rounding().StringFixed(2))
	}
	return "✅ Venta completada sin redondeo."
}

// parseIndex accepts a JSON number or numeric string; anything else is -1.
func parseIndex(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return int(i)
		}
		return -1
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i
		}
	}
	return -1
}

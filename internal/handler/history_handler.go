package handler

import (
	"pilotopos/internal/middleware"
	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type HistoryHandler struct {
	sessions *Sessions
	service  service.HistoryService
}

func NewHistoryHandler(sessions *Sessions, s service.HistoryService) *HistoryHandler {
	return &HistoryHandler{sessions: sessions, service: s}
}

type DeleteSaleRequest struct {
	ID string `json:"id"`
}

// GET /api/historial
func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.service.History(c.UserContext(), middleware.TenantOf(c))
	if err != nil {
		return err
	}
	return c.JSON(nonNil(entries))
}

// GET /api/ventas?q=&desde=&hasta=
func (h *HistoryHandler) GetSales(c *fiber.Ctx) error {
	filter := repository.SaleFilter{
		Query: c.Query("q"),
		From:  c.Query("desde"),
		To:    c.Query("hasta"),
	}
	entries, err := h.service.ListSales(c.UserContext(), middleware.TenantOf(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(nonNil(entries))
}

// POST /ventas/update
func (h *HistoryHandler) UpdateSale(c *fiber.Ctx) error {
	var req service.SaleUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if err := h.service.UpdateSale(c.UserContext(), middleware.TenantOf(c), &req); err != nil {
		return fail(c, "success", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// POST /ventas/delete
func (h *HistoryHandler) DeleteSale(c *fiber.Ctx) error {
	var req DeleteSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"success": false, "error": "Invalid JSON"})
	}
	if err := h.service.DeleteSale(c.UserContext(), middleware.TenantOf(c), req.ID); err != nil {
		return fail(c, "success", err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// LastReceipt shows the receipt of the sale this session completed last.
// GET /ticket/ultimo
func (h *HistoryHandler) LastReceipt(c *fiber.Ctx) error {
	sess, err := h.sessions.Get(c)
	if err != nil {
		return err
	}
	id, ok := sess.Get(sessLastReceipt).(string)
	if !ok || id == "" {
		return c.Status(404).JSON(fiber.Map{"error": service.ErrSaleNotFound.Error()})
	}
	return h.receipt(c, id)
}

// GET /ticket/:id
func (h *HistoryHandler) Receipt(c *fiber.Ctx) error {
	return h.receipt(c, c.Params("id"))
}

func (h *HistoryHandler) receipt(c *fiber.Ctx, id string) error {
	r, err := h.service.Receipt(c.UserContext(), middleware.TenantOf(c), id)
	if err != nil {
		if status := statusFor(err); status != 0 {
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return err
	}
	return c.JSON(r)
}

// Centavos lists the rounded sales and what they collected.
// GET /centavos
func (h *HistoryHandler) Centavos(c *fiber.Ctx) error {
	report, err := h.service.RoundingReport(c.UserContext(), middleware.TenantOf(c))
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func nonNil(entries []model.HistoryEntry) []model.HistoryEntry {
	if entries == nil {
		return []model.HistoryEntry{}
	}
	return entries
}

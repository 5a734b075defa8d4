package handler

import (
	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// MasterDataHandler serves the item collection and ratio table pushed by the import pipeline.
type MasterDataHandler struct {
	stock *service.StockManager
	calc  *service.ConversionCalculator
}

func NewMasterDataHandler(stock *service.StockManager, calc *service.ConversionCalculator) *MasterDataHandler {
	return &MasterDataHandler{stock: stock, calc: calc}
}

func (h *MasterDataHandler) GetItems(c *fiber.Ctx) error {
	items, err := h.stock.ListItems(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(items)
}

func (h *MasterDataHandler) ReplaceItems(c *fiber.Ctx) error {
	var items []model.Item
	if err := c.BodyParser(&items); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if err := h.stock.ReplaceItems(c.UserContext(), items); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Items replaced", "count": len(items)})
}

func (h *MasterDataHandler) GetConversionRatios(c *fiber.Ctx) error {
	ratios, err := h.calc.GetAllRatios()
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(ratios)
}

func (h *MasterDataHandler) ReplaceConversionRatios(c *fiber.Ctx) error {
	var ratios []model.ConversionRatio
	if err := c.BodyParser(&ratios); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if err := h.calc.SaveConversionRatios(c.UserContext(), ratios); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Conversion ratios replaced", "count": len(ratios)})
}

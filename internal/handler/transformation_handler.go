package handler

import (
	"errors"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/service"

	"github.com/gofiber/fiber/v2"
)

const defaultHistoryLimit = 50

type TransformationHandler struct {
	manager *service.TransformationManager
}

func NewTransformationHandler(m *service.TransformationManager) *TransformationHandler {
	return &TransformationHandler{manager: m}
}

func (h *TransformationHandler) GetTransformableItems(c *fiber.Ctx) error {
	groups, err := h.manager.GetTransformableItems(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(groups)
}

func (h *TransformationHandler) GetConversionOptions(c *fiber.Ctx) error {
	options, err := h.manager.GetConversionOptions(c.UserContext(), c.Params("baseProduct"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(options)
}

func (h *TransformationHandler) ValidateTransformation(c *fiber.Ctx) error {
	var req model.TransformationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	result, err := h.manager.ValidateTransformation(c.UserContext(), req.SourceItemID, req.TargetItemID, req.Quantity)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

func (h *TransformationHandler) PreviewTransformation(c *fiber.Ctx) error {
	var req model.TransformationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	preview, err := h.manager.GetTransformationPreview(c.UserContext(), req.SourceItemID, req.TargetItemID, req.Quantity)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(preview)
}

func (h *TransformationHandler) ExecuteTransformation(c *fiber.Ctx) error {
	var req model.TransformationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	// the token decides who acted, never the body
	req.User = actor(c)

	record, err := h.manager.ExecuteTransformation(c.UserContext(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.Status(400).JSON(fiber.Map{
				"error":    "Validation failed",
				"errors":   verr.Errors,
				"warnings": verr.Warnings,
			})
		}
		body := fiber.Map{"error": err.Error()}
		if record != nil {
			body["data"] = record
		}
		status := errorStatus(err)
		if status == fiber.StatusNotFound {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(body)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Transformation completed", "data": record})
}

func (h *TransformationHandler) GetTransformationHistory(c *fiber.Ctx) error {
	filter := model.HistoryFilter{
		ItemID: c.Query("item"),
		Status: model.TransformationStatus(c.Query("status")),
		Limit:  c.QueryInt("limit", defaultHistoryLimit),
	}
	switch filter.Status {
	case "", model.StatusPending, model.StatusCompleted, model.StatusFailed:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "Invalid status filter"})
	}
	if filter.Limit <= 0 {
		return c.Status(400).JSON(fiber.Map{"error": "limit must be positive"})
	}

	history, err := h.manager.GetTransformationHistory(c.UserContext(), filter)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(history)
}

func (h *TransformationHandler) GetTransformation(c *fiber.Ctx) error {
	record, err := h.manager.GetTransformation(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(record)
}

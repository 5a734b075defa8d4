package handler

import (
	"context"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BackupRunner takes a stock snapshot and stores it.
type BackupRunner interface {
	BackupNow(ctx context.Context) (*model.StockBackup, error)
}

// RestoreNotifier is told when stock was overwritten from a backup.
type RestoreNotifier interface {
	NotifyStockRestored(ctx context.Context, result model.RestoreResult, user string) error
}

type StockHandler struct {
	stock    *service.StockManager
	backups  repository.BackupRepository
	runner   BackupRunner
	notifier RestoreNotifier
	logger   *zap.Logger
}

func NewStockHandler(stock *service.StockManager, backups repository.BackupRepository, runner BackupRunner, notifier RestoreNotifier, logger *zap.Logger) *StockHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockHandler{stock: stock, backups: backups, runner: runner, notifier: notifier, logger: logger}
}

func (h *StockHandler) GetStockBalance(c *fiber.Ctx) error {
	code := c.Params("code")
	stock, err := h.stock.GetStockBalance(c.UserContext(), code)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"itemId": code, "stock": stock})
}

type bulkStockRequest struct {
	ItemIDs []string `json:"itemIds"`
}

func (h *StockHandler) GetBulkStockBalance(c *fiber.Ctx) error {
	var req bulkStockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if len(req.ItemIDs) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "itemIds must not be empty"})
	}
	return c.JSON(h.stock.GetBulkStockBalance(c.UserContext(), req.ItemIDs))
}

func (h *StockHandler) GetStockStatistics(c *fiber.Ctx) error {
	stats, err := h.stock.GetStockStatistics(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(stats)
}

func (h *StockHandler) GetLatestBackup(c *fiber.Ctx) error {
	backup, err := h.backups.Latest(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(backup)
}

func (h *StockHandler) CreateBackup(c *fiber.Ctx) error {
	backup, err := h.runner.BackupNow(c.UserContext())
	if err != nil {
		h.logger.Error("manual stock backup failed", zap.Error(err))
		return errorResponse(c, err)
	}
	h.logger.Info("manual stock backup stored", zap.String("user", actor(c)), zap.Int("items", len(backup.Items)))
	return c.Status(201).JSON(fiber.Map{"message": "Backup stored", "data": backup})
}

// RestoreBackup restores the snapshot in the body, or the latest stored one when the body is empty.
func (h *StockHandler) RestoreBackup(c *fiber.Ctx) error {
	var backup model.StockBackup
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&backup); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
		}
	}
	if len(backup.Items) == 0 {
		latest, err := h.backups.Latest(c.UserContext())
		if err != nil {
			return errorResponse(c, err)
		}
		backup = *latest
	}

	result, err := h.stock.RestoreStockFromBackup(c.UserContext(), backup)
	if err != nil {
		return errorResponse(c, err)
	}

	user := actor(c)
	h.logger.Warn("stock restored from backup", zap.String("user", user), zap.Int("restored", result.Restored))
	if h.notifier != nil {
		go func() {
			if err := h.notifier.NotifyStockRestored(context.Background(), *result, user); err != nil {
				h.logger.Warn("restore notification failed", zap.Error(err))
			}
		}()
	}
	return c.JSON(fiber.Map{"message": "Stock restored", "data": result})
}

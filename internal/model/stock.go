package model

import "time"

// StockChange asks for a signed quantity change on one item.
type StockChange struct {
	ItemID         string  `json:"itemId" validate:"required"`
	QuantityChange float64 `json:"quantityChange"`
}

type StockUpdateResult struct {
	Success        bool      `json:"success"`
	ItemID         string    `json:"itemId"`
	PreviousStock  float64   `json:"previousStock"`
	NewStock       float64   `json:"newStock"`
	QuantityChange float64   `json:"quantityChange"`
	Timestamp      time.Time `json:"timestamp"`
}

// RollbackData restores both items of a transformation to their stock before the update.
// It is not crash safe: if the process dies before a rollback, the forward write stays.
type RollbackData struct {
	SourceID            string  `json:"sourceId"`
	TargetID            string  `json:"targetId"`
	OriginalSourceStock float64 `json:"originalSourceStock"`
	OriginalTargetStock float64 `json:"originalTargetStock"`
}

type AtomicUpdateResult struct {
	Success      bool              `json:"success"`
	SourceUpdate StockUpdateResult `json:"sourceUpdate"`
	TargetUpdate StockUpdateResult `json:"targetUpdate"`
	RollbackData RollbackData      `json:"rollbackData"`
}

// StockStatistics summarizes the item collection for dashboards.
type StockStatistics struct {
	TotalItems     int                `json:"totalItems"`
	TotalStock     float64            `json:"totalStock"`
	ZeroStockItems int                `json:"zeroStockItems"`
	LowStockItems  int                `json:"lowStockItems"`
	LowStockLimit  float64            `json:"lowStockLimit"`
	StockByUnit    map[string]float64 `json:"stockByUnit"`
	BaseProducts   int                `json:"baseProducts"`
	GeneratedAt    time.Time          `json:"generatedAt"`
}

type BackupEntry struct {
	Code  string  `json:"code" msgpack:"code"`
	Name  string  `json:"name" msgpack:"name"`
	Stock float64 `json:"stock" msgpack:"stock"`
}

type StockBackup struct {
	Timestamp time.Time     `json:"timestamp" msgpack:"timestamp"`
	Items     []BackupEntry `json:"items" msgpack:"items"`
}

type RestoreResult struct {
	Restored int      `json:"restored"`
	Skipped  []string `json:"skipped"`
}

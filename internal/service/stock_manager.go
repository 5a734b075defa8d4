package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"
	"go-inventory-uom/pkg/validator"

	"go.uber.org/zap"
)

const (
	DefaultStockCacheTTL     = 5 * time.Minute
	DefaultLowStockThreshold = 10
	targetQuantityTolerance  = 1
)

type StockManagerOptions struct {
	CacheTTL          time.Duration
	LowStockThreshold float64
	Logger            *zap.Logger
	Clock             func() time.Time
}

type cacheEntry struct {
	stock    float64
	loadedAt time.Time
}

// StockManager is the only writer of item stock. Every read-modify-write runs
// under mu, so two goroutines can never interleave between the read of the
// collection and its persist. The cache only serves GetStockBalance.
type StockManager struct {
	items    repository.ItemRepository
	logger   *zap.Logger
	ttl      time.Duration
	lowStock float64
	now      func() time.Time

	mu sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string]cacheEntry
}

func NewStockManager(items repository.ItemRepository, opts StockManagerOptions) (*StockManager, error) {
	if items == nil {
		return nil, fmt.Errorf("%w: item repository is required", ErrInvalidArgument)
	}
	m := &StockManager{
		items:    items,
		logger:   opts.Logger,
		ttl:      opts.CacheTTL,
		lowStock: opts.LowStockThreshold,
		now:      opts.Clock,
		cache:    make(map[string]cacheEntry),
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.ttl <= 0 {
		m.ttl = DefaultStockCacheTTL
	}
	if m.lowStock <= 0 {
		m.lowStock = DefaultLowStockThreshold
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

func (m *StockManager) ready() error {
	if m == nil || m.items == nil {
		return ErrNotInitialized
	}
	return nil
}

// ListItems reads the full collection from storage.
func (m *StockManager) ListItems(ctx context.Context) ([]model.Item, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.items.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	m.refreshCache(items)
	return items, nil
}

// ReplaceItems swaps in a new collection pushed by the import pipeline.
func (m *StockManager) ReplaceItems(ctx context.Context, items []model.Item) error {
	if err := m.ready(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(items))
	for i := range items {
		if msgs := validator.Messages(items[i]); len(msgs) > 0 {
			return fmt.Errorf("%w: item %d: %s", ErrInvalidArgument, i, strings.Join(msgs, "; "))
		}
		if seen[items[i].Code] {
			return fmt.Errorf("%w: duplicate item code %s", ErrInvalidArgument, items[i].Code)
		}
		seen[items[i].Code] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.items.SaveAll(ctx, items); err != nil {
		return err
	}
	m.InvalidateCache()
	m.refreshCache(items)
	m.logger.Info("item collection replaced", zap.Int("items", len(items)))
	return nil
}

// GetStockBalance serves from cache while the entry is fresh, otherwise re-reads storage.
func (m *StockManager) GetStockBalance(ctx context.Context, itemID string) (float64, error) {
	if err := m.ready(); err != nil {
		return 0, err
	}
	if itemID == "" {
		return 0, fmt.Errorf("%w: item id is required", ErrInvalidArgument)
	}

	m.cacheMu.RLock()
	entry, ok := m.cache[itemID]
	m.cacheMu.RUnlock()
	if ok && m.now().Sub(entry.loadedAt) < m.ttl {
		return entry.stock, nil
	}

	items, err := m.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	i := indexOf(items, itemID)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return items[i].Stock, nil
}

// UpdateStock applies delta to one item. A result below zero fails with
// ErrInsufficientStock and nothing is written.
func (m *StockManager) UpdateStock(ctx context.Context, itemID, unit string, delta float64) (*model.StockUpdateResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	if itemID == "" {
		return nil, fmt.Errorf("%w: item id is required", ErrInvalidArgument)
	}
	if !onQuantityGrid(delta) {
		return nil, fmt.Errorf("%w: quantity change must be finite with at most 6 decimals, got %v", ErrInvalidArgument, delta)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.items.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(items, itemID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}

	previous := items[i].Stock
	next, err := applyDelta(previous, delta)
	if err != nil {
		return nil, err
	}
	if next < 0 {
		return nil, fmt.Errorf("%w: %s has %v %s, change %v", ErrInsufficientStock, itemID, previous, items[i].Unit, delta)
	}

	items[i].Stock = next
	if err := m.items.SaveAll(ctx, items); err != nil {
		return nil, err
	}

	ts := m.now()
	m.putCache(itemID, next, ts)
	m.logger.Info("stock updated",
		zap.String("item", itemID),
		zap.String("unit", unit),
		zap.Float64("previous", previous),
		zap.Float64("new", next))

	return &model.StockUpdateResult{
		Success:        true,
		ItemID:         itemID,
		PreviousStock:  previous,
		NewStock:       next,
		QuantityChange: delta,
		Timestamp:      ts,
	}, nil
}

// AtomicTransformationUpdate applies both changes in one persist, or neither.
// Both non-negativity checks run before anything is written.
func (m *StockManager) AtomicTransformationUpdate(ctx context.Context, source, target model.StockChange) (*model.AtomicUpdateResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	for _, c := range []model.StockChange{source, target} {
		if c.ItemID == "" {
			return nil, fmt.Errorf("%w: item id is required", ErrInvalidArgument)
		}
		if !onQuantityGrid(c.QuantityChange) {
			return nil, fmt.Errorf("%w: quantity change must be finite with at most 6 decimals, got %v", ErrInvalidArgument, c.QuantityChange)
		}
	}
	if source.ItemID == target.ItemID {
		return nil, fmt.Errorf("%w: source and target must be different items", ErrInvalidArgument)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.items.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	si := indexOf(items, source.ItemID)
	if si < 0 {
		return nil, fmt.Errorf("%w: source %s", ErrItemNotFound, source.ItemID)
	}
	ti := indexOf(items, target.ItemID)
	if ti < 0 {
		return nil, fmt.Errorf("%w: target %s", ErrItemNotFound, target.ItemID)
	}

	sourcePrev, targetPrev := items[si].Stock, items[ti].Stock
	sourceNext, err := applyDelta(sourcePrev, source.QuantityChange)
	if err != nil {
		return nil, err
	}
	targetNext, err := applyDelta(targetPrev, target.QuantityChange)
	if err != nil {
		return nil, err
	}
	if sourceNext < 0 {
		return nil, fmt.Errorf("%w: source %s has %v, change %v", ErrInsufficientStock, source.ItemID, sourcePrev, source.QuantityChange)
	}
	if targetNext < 0 {
		return nil, fmt.Errorf("%w: target %s has %v, change %v", ErrInsufficientStock, target.ItemID, targetPrev, target.QuantityChange)
	}

	items[si].Stock = sourceNext
	items[ti].Stock = targetNext
	if err := m.items.SaveAll(ctx, items); err != nil {
		return nil, err
	}

	ts := m.now()
	m.putCache(source.ItemID, sourceNext, ts)
	m.putCache(target.ItemID, targetNext, ts)
	m.logger.Info("transformation stock applied",
		zap.String("source", source.ItemID),
		zap.Float64("source_new", sourceNext),
		zap.String("target", target.ItemID),
		zap.Float64("target_new", targetNext))

	return &model.AtomicUpdateResult{
		Success: true,
		SourceUpdate: model.StockUpdateResult{
			Success:        true,
			ItemID:         source.ItemID,
			PreviousStock:  sourcePrev,
			NewStock:       sourceNext,
			QuantityChange: source.QuantityChange,
			Timestamp:      ts,
		},
		TargetUpdate: model.StockUpdateResult{
			Success:        true,
			ItemID:         target.ItemID,
			PreviousStock:  targetPrev,
			NewStock:       targetNext,
			QuantityChange: target.QuantityChange,
			Timestamp:      ts,
		},
		RollbackData: model.RollbackData{
			SourceID:            source.ItemID,
			TargetID:            target.ItemID,
			OriginalSourceStock: sourcePrev,
			OriginalTargetStock: targetPrev,
		},
	}, nil
}

// RollbackStockChanges restores both items to the stock captured in token.
// It is a recovery path: failures are logged and reported as false.
func (m *StockManager) RollbackStockChanges(ctx context.Context, token model.RollbackData) bool {
	if m.ready() != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.items.FindAll(ctx)
	if err != nil {
		m.logger.Error("rollback: load items failed", zap.Error(err))
		return false
	}
	si := indexOf(items, token.SourceID)
	ti := indexOf(items, token.TargetID)
	if si < 0 || ti < 0 {
		m.logger.Warn("rollback: item no longer exists",
			zap.String("source", token.SourceID),
			zap.String("target", token.TargetID))
		return false
	}

	items[si].Stock = token.OriginalSourceStock
	items[ti].Stock = token.OriginalTargetStock
	if err := m.items.SaveAll(ctx, items); err != nil {
		m.logger.Error("rollback: persist failed", zap.Error(err))
		return false
	}

	ts := m.now()
	m.putCache(token.SourceID, token.OriginalSourceStock, ts)
	m.putCache(token.TargetID, token.OriginalTargetStock, ts)
	m.logger.Info("transformation stock rolled back",
		zap.String("source", token.SourceID),
		zap.String("target", token.TargetID))
	return true
}

// ValidateStockConsistency cross-checks a completed record against its own
// arithmetic and the persisted stock, exactly in decimal. It never returns an error.
func (m *StockManager) ValidateStockConsistency(ctx context.Context, record model.TransformationRecord) bool {
	if m.ready() != nil {
		return false
	}
	src, tgt := record.SourceItem, record.TargetItem

	expectedTarget := src.Quantity * record.ConversionRatio
	if math.Abs(tgt.Quantity-expectedTarget) > targetQuantityTolerance {
		m.logger.Warn("consistency: target quantity does not match ratio",
			zap.String("record", record.ID),
			zap.Float64("expected", expectedTarget),
			zap.Float64("actual", tgt.Quantity))
		return false
	}
	if !deltaMatches(src.StockAfter, src.StockBefore, src.Quantity) {
		m.logger.Warn("consistency: source stock delta mismatch", zap.String("record", record.ID))
		return false
	}
	if !deltaMatches(tgt.StockBefore, tgt.StockAfter, tgt.Quantity) {
		m.logger.Warn("consistency: target stock delta mismatch", zap.String("record", record.ID))
		return false
	}

	items, err := m.items.FindAll(ctx)
	if err != nil {
		m.logger.Error("consistency: load items failed", zap.Error(err))
		return false
	}
	si, ti := indexOf(items, src.ID), indexOf(items, tgt.ID)
	if si < 0 || ti < 0 {
		return false
	}
	if !deltaMatches(items[si].Stock, src.StockAfter, 0) || !deltaMatches(items[ti].Stock, tgt.StockAfter, 0) {
		m.logger.Warn("consistency: persisted stock differs from record", zap.String("record", record.ID))
		return false
	}
	return true
}

// GetBulkStockBalance never fails as a whole; unknown items read as 0.
func (m *StockManager) GetBulkStockBalance(ctx context.Context, itemIDs []string) map[string]float64 {
	balances := make(map[string]float64, len(itemIDs))
	if m.ready() != nil {
		for _, id := range itemIDs {
			balances[id] = 0
		}
		return balances
	}
	for _, id := range itemIDs {
		stock, err := m.GetStockBalance(ctx, id)
		if err != nil {
			m.logger.Debug("bulk balance defaulted to zero", zap.String("item", id), zap.Error(err))
			stock = 0
		}
		balances[id] = stock
	}
	return balances
}

func (m *StockManager) GetStockStatistics(ctx context.Context) (*model.StockStatistics, error) {
	items, err := m.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	stats := &model.StockStatistics{
		TotalItems:    len(items),
		LowStockLimit: m.lowStock,
		StockByUnit:   make(map[string]float64),
		GeneratedAt:   m.now(),
	}
	baseProducts := make(map[string]bool)
	for _, item := range items {
		stats.TotalStock += item.Stock
		stats.StockByUnit[item.Unit] += item.Stock
		switch {
		case item.Stock == 0:
			stats.ZeroStockItems++
		case item.Stock < m.lowStock:
			stats.LowStockItems++
		}
		if item.BaseProduct != "" {
			baseProducts[item.BaseProduct] = true
		}
	}
	stats.TotalStock = roundQuantity(stats.TotalStock)
	stats.BaseProducts = len(baseProducts)
	return stats, nil
}

// CreateStockBackup snapshots code, name and stock of every item.
func (m *StockManager) CreateStockBackup(ctx context.Context) (*model.StockBackup, error) {
	items, err := m.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	backup := &model.StockBackup{
		Timestamp: m.now().UTC(),
		Items:     make([]model.BackupEntry, 0, len(items)),
	}
	for _, item := range items {
		backup.Items = append(backup.Items, model.BackupEntry{Code: item.Code, Name: item.Name, Stock: item.Stock})
	}
	return backup, nil
}

// RestoreStockFromBackup writes backed up stock onto items that still exist.
// Codes missing from the collection are reported in Skipped.
func (m *StockManager) RestoreStockFromBackup(ctx context.Context, backup model.StockBackup) (*model.RestoreResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	for _, entry := range backup.Items {
		if !isFinite(entry.Stock) || entry.Stock < 0 {
			return nil, fmt.Errorf("%w: backup stock for %s is %v", ErrInvalidArgument, entry.Code, entry.Stock)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	items, err := m.items.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	result := &model.RestoreResult{Skipped: []string{}}
	for _, entry := range backup.Items {
		i := indexOf(items, entry.Code)
		if i < 0 {
			result.Skipped = append(result.Skipped, entry.Code)
			continue
		}
		items[i].Stock = entry.Stock
		result.Restored++
	}

	if err := m.items.SaveAll(ctx, items); err != nil {
		return nil, err
	}
	m.InvalidateCache()
	m.logger.Info("stock restored from backup",
		zap.Time("backup_time", backup.Timestamp),
		zap.Int("restored", result.Restored),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// InvalidateCache drops every cached balance.
func (m *StockManager) InvalidateCache() {
	if m == nil {
		return
	}
	m.cacheMu.Lock()
	m.cache = make(map[string]cacheEntry)
	m.cacheMu.Unlock()
}

func (m *StockManager) refreshCache(items []model.Item) {
	ts := m.now()
	m.cacheMu.Lock()
	for _, item := range items {
		m.cache[item.Code] = cacheEntry{stock: item.Stock, loadedAt: ts}
	}
	m.cacheMu.Unlock()
}

func (m *StockManager) putCache(itemID string, stock float64, ts time.Time) {
	m.cacheMu.Lock()
	m.cache[itemID] = cacheEntry{stock: stock, loadedAt: ts}
	m.cacheMu.Unlock()
}

func indexOf(items []model.Item, code string) int {
	for i := range items {
		if items[i].Code == code {
			return i
		}
	}
	return -1
}

func findItem(items []model.Item, code string) (model.Item, bool) {
	if i := indexOf(items, code); i >= 0 {
		return items[i], true
	}
	return model.Item{}, false
}

package service

import (
	"context"
	"fmt"
	"time"

	"go-inventory-uom/internal/model"
	"go-inventory-uom/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const notifyTimeout = 15 * time.Second

// Notifier is told about every finished transformation, completed or failed.
type Notifier interface {
	NotifyTransformation(ctx context.Context, record model.TransformationRecord) error
}

// Notifiers fans one notification out to several notifiers and returns the first error.
type Notifiers []Notifier

func (n Notifiers) NotifyTransformation(ctx context.Context, record model.TransformationRecord) error {
	var first error
	for _, notifier := range n {
		if err := notifier.NotifyTransformation(ctx, record); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type TransformationManagerDeps struct {
	Calculator *ConversionCalculator
	Stock      *StockManager
	Validator  *ValidationEngine
	Audit      repository.AuditRepository
	Notifier   Notifier
	Logger     *zap.Logger
	Clock      func() time.Time
	NewID      func() string
}

// TransformationManager runs validate -> calculate -> stock update -> audit.
type TransformationManager struct {
	calc      *ConversionCalculator
	stock     *StockManager
	validator *ValidationEngine
	audit     repository.AuditRepository
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

func NewTransformationManager(deps TransformationManagerDeps) (*TransformationManager, error) {
	if err := deps.Calculator.ready(); err != nil {
		return nil, fmt.Errorf("calculator: %w", err)
	}
	if err := deps.Stock.ready(); err != nil {
		return nil, fmt.Errorf("stock manager: %w", err)
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("%w: audit repository is required", ErrInvalidArgument)
	}

	m := &TransformationManager{
		calc:      deps.Calculator,
		stock:     deps.Stock,
		validator: deps.Validator,
		audit:     deps.Audit,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		now:       deps.Clock,
		newID:     deps.NewID,
	}
	if m.validator == nil {
		m.validator = &ValidationEngine{calc: deps.Calculator}
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.New().String() }
	}
	return m, nil
}

func (m *TransformationManager) ready() error {
	if m == nil || m.calc == nil || m.stock == nil {
		return ErrNotInitialized
	}
	return nil
}

// GetTransformableItems groups items by base product and keeps groups with more
// than one item and at least one conversion. Storage order is preserved.
func (m *TransformationManager) GetTransformableItems(ctx context.Context) ([]model.TransformableGroup, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	items, err := m.stock.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	var order []string
	groups := make(map[string][]model.Item)
	for _, item := range items {
		if item.BaseProduct == "" {
			continue
		}
		if _, ok := groups[item.BaseProduct]; !ok {
			order = append(order, item.BaseProduct)
		}
		groups[item.BaseProduct] = append(groups[item.BaseProduct], item)
	}

	result := []model.TransformableGroup{}
	for _, bp := range order {
		members := groups[bp]
		ratio, ok := m.calc.GetRatiosForProduct(bp)
		if len(members) < 2 || !ok || len(ratio.Conversions) == 0 {
			continue
		}
		result = append(result, model.TransformableGroup{BaseProduct: bp, Items: members})
	}
	return result, nil
}

// ValidateTransformation runs every check and collects all failures. The
// returned error is reserved for storage problems.
func (m *TransformationManager) ValidateTransformation(ctx context.Context, sourceID, targetID string, qty float64) (*model.ValidationResult, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	result := model.NewValidationResult()
	if sourceID == "" {
		result.AddError("source item is required")
	}
	if targetID == "" {
		result.AddError("target item is required")
	}

	items, err := m.stock.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	// 1. Both items exist
	source, sourceFound := findItem(items, sourceID)
	if sourceID != "" && !sourceFound {
		result.AddError(fmt.Sprintf("source item %s not found", sourceID))
	}
	target, targetFound := findItem(items, targetID)
	if targetID != "" && !targetFound {
		result.AddError(fmt.Sprintf("target item %s not found", targetID))
	}
	if !sourceFound || !targetFound {
		result.Merge(m.validator.ValidateQuantityCalculation(qty, 1))
		return result, nil
	}

	// 2. Same product family
	result.Merge(m.validator.ValidateProductMatch(source, target))

	// 3. Source holds enough
	result.Merge(m.validator.ValidateStockAvailability(source, qty))

	// 4. Ratio exists for the unit pair
	ratio, err := m.calc.GetConversionRatio(source.Unit, target.Unit, source.BaseProduct)
	if err != nil {
		result.AddError(fmt.Sprintf("no conversion ratio from %s to %s for %s", source.Unit, target.Unit, source.BaseProduct))
		result.Merge(m.validator.ValidateQuantityCalculation(qty, 1))
		return result, nil
	}

	// 5. Quantity converts cleanly
	result.Merge(m.validator.ValidateQuantityCalculation(qty, ratio))

	// 6. Source stock stays non-negative
	if isFinite(qty) && source.Stock-qty < 0 {
		result.AddError(fmt.Sprintf("resulting stock of %s would be negative (%v)", source.Code, roundQuantity(source.Stock-qty)))
	}
	return result, nil
}

// GetTransformationPreview projects the outcome without touching stock.
func (m *TransformationManager) GetTransformationPreview(ctx context.Context, sourceID, targetID string, qty float64) (*model.TransformationPreview, error) {
	validation, err := m.ValidateTransformation(ctx, sourceID, targetID, qty)
	if err != nil {
		return nil, err
	}
	items, err := m.stock.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	preview := &model.TransformationPreview{Validation: *validation}
	source, sourceFound := findItem(items, sourceID)
	target, targetFound := findItem(items, targetID)
	if sourceFound {
		preview.SourceItem = previewSide(source, qty, -qty)
	}
	if !sourceFound || !targetFound {
		return preview, nil
	}

	ratio, err := m.calc.GetConversionRatio(source.Unit, target.Unit, source.BaseProduct)
	if err != nil {
		preview.TargetItem = previewSide(target, 0, 0)
		return preview, nil
	}
	targetQty, err := m.calc.CalculateTargetQuantity(qty, ratio)
	if err != nil {
		targetQty = 0
	}
	preview.ConversionRatio = ratio
	preview.TargetItem = previewSide(target, targetQty, targetQty)
	preview.Formula = fmt.Sprintf("%v %s x %v = %v %s", qty, source.Unit, ratio, targetQty, target.Unit)
	return preview, nil
}

func previewSide(item model.Item, qty, delta float64) model.PreviewSide {
	return model.PreviewSide{
		ID:             item.Code,
		Name:           item.Name,
		Unit:           item.Unit,
		CurrentStock:   item.Stock,
		Quantity:       qty,
		ResultingStock: roundQuantity(item.Stock + delta),
	}
}

// ExecuteTransformation validates and applies one transformation. When a record
// was already built and the run fails, the failed record is returned with the error.
func (m *TransformationManager) ExecuteTransformation(ctx context.Context, req model.TransformationRequest) (*model.TransformationRecord, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}

	// 1. Validate, never mutate on invalid input
	if shape := m.validator.ValidateRequest(req); !shape.IsValid {
		return nil, &ValidationError{Errors: shape.Errors, Warnings: shape.Warnings}
	}
	validation, err := m.ValidateTransformation(ctx, req.SourceItemID, req.TargetItemID, req.Quantity)
	if err != nil {
		return nil, err
	}
	if !validation.IsValid {
		m.logger.Info("transformation rejected",
			zap.String("source", req.SourceItemID),
			zap.String("target", req.TargetItemID),
			zap.Strings("errors", validation.Errors))
		return nil, &ValidationError{Errors: validation.Errors, Warnings: validation.Warnings}
	}

	// 2. Ratio and target quantity
	items, err := m.stock.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	source, ok := findItem(items, req.SourceItemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, req.SourceItemID)
	}
	target, ok := findItem(items, req.TargetItemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, req.TargetItemID)
	}
	ratio, err := m.calc.GetConversionRatio(source.Unit, target.Unit, source.BaseProduct)
	if err != nil {
		return nil, err
	}
	targetQty, err := m.calc.CalculateTargetQuantity(req.Quantity, ratio)
	if err != nil {
		return nil, err
	}

	// 3. Pending record with before snapshots
	user := req.User
	if user == "" {
		user = "system"
	}
	record := &model.TransformationRecord{
		ID:              m.newID(),
		Timestamp:       m.now().UTC(),
		User:            user,
		SourceItem:      snapshot(source, req.Quantity),
		TargetItem:      snapshot(target, targetQty),
		ConversionRatio: ratio,
		Status:          model.StatusPending,
	}

	// 4. Both stock changes in one write
	update, err := m.stock.AtomicTransformationUpdate(ctx,
		model.StockChange{ItemID: source.Code, QuantityChange: -req.Quantity},
		model.StockChange{ItemID: target.Code, QuantityChange: targetQty},
	)
	if err != nil {
		return m.fail(ctx, record, err)
	}
	record.SourceItem.StockBefore = update.SourceUpdate.PreviousStock
	record.SourceItem.StockAfter = update.SourceUpdate.NewStock
	record.TargetItem.StockBefore = update.TargetUpdate.PreviousStock
	record.TargetItem.StockAfter = update.TargetUpdate.NewStock
	record.Status = model.StatusCompleted

	// 5. Audit; an unaudited transformation is compensated
	if err := m.audit.LogTransformation(ctx, *record); err != nil {
		m.logger.Error("audit of completed transformation failed, rolling back",
			zap.String("record", record.ID), zap.Error(err))
		if m.stock.RollbackStockChanges(ctx, update.RollbackData) {
			record.SourceItem.StockAfter = record.SourceItem.StockBefore
			record.TargetItem.StockAfter = record.TargetItem.StockBefore
		} else {
			m.logger.Error("rollback failed, stock left forward-committed", zap.String("record", record.ID))
		}
		return m.fail(ctx, record, fmt.Errorf("audit transformation: %w", err))
	}

	m.logger.Info("transformation completed",
		zap.String("record", record.ID),
		zap.String("user", record.User),
		zap.String("source", source.Code),
		zap.Float64("source_qty", req.Quantity),
		zap.String("target", target.Code),
		zap.Float64("target_qty", targetQty))
	m.notify(*record)
	return record, nil
}

func (m *TransformationManager) fail(ctx context.Context, record *model.TransformationRecord, cause error) (*model.TransformationRecord, error) {
	record.Status = model.StatusFailed
	record.Error = cause.Error()
	if err := m.audit.LogTransformation(ctx, *record); err != nil {
		m.logger.Error("audit of failed transformation failed", zap.String("record", record.ID), zap.Error(err))
	}
	m.logger.Warn("transformation failed", zap.String("record", record.ID), zap.Error(cause))
	m.notify(*record)
	return record, cause
}

func (m *TransformationManager) notify(record model.TransformationRecord) {
	if m.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := m.notifier.NotifyTransformation(ctx, record); err != nil {
			m.logger.Warn("transformation notification failed", zap.String("record", record.ID), zap.Error(err))
		}
	}()
}

func snapshot(item model.Item, qty float64) model.ItemSnapshot {
	return model.ItemSnapshot{
		ID:          item.Code,
		Name:        item.Name,
		Unit:        item.Unit,
		Quantity:    qty,
		StockBefore: item.Stock,
		StockAfter:  item.Stock,
		BaseProduct: item.BaseProduct,
	}
}

// GetConversionOptions lists each directional conversion of baseProduct with
// the items on both sides. Conversions whose unit has no item are skipped.
func (m *TransformationManager) GetConversionOptions(ctx context.Context, baseProduct string) ([]model.ConversionOption, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	options := []model.ConversionOption{}
	ratio, ok := m.calc.GetRatiosForProduct(baseProduct)
	if !ok {
		return options, nil
	}
	items, err := m.stock.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	for _, conv := range ratio.Conversions {
		from, fromOK := itemForUnit(items, baseProduct, conv.From)
		to, toOK := itemForUnit(items, baseProduct, conv.To)
		if !fromOK || !toOK {
			continue
		}
		options = append(options, model.ConversionOption{
			From:      model.OptionSide{Unit: conv.From, Item: from, Stock: from.Stock},
			To:        model.OptionSide{Unit: conv.To, Item: to, Stock: to.Stock},
			Ratio:     conv.Ratio,
			Available: from.Stock > 0,
		})
	}
	return options, nil
}

func itemForUnit(items []model.Item, baseProduct, unit string) (model.Item, bool) {
	for _, item := range items {
		if item.BaseProduct == baseProduct && item.Unit == unit {
			return item, true
		}
	}
	return model.Item{}, false
}

func (m *TransformationManager) GetTransformationHistory(ctx context.Context, filter model.HistoryFilter) ([]model.TransformationRecord, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.audit.GetTransformationHistory(ctx, filter)
}

func (m *TransformationManager) GetTransformation(ctx context.Context, id string) (*model.TransformationRecord, error) {
	if err := m.ready(); err != nil {
		return nil, err
	}
	return m.audit.GetTransformationByID(ctx, id)
}
